package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		values[key] = value
	}

	return values, scanner.Err()
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "testnet.magic":
		var v uint64
		v, err = strconv.ParseUint(value, 10, 32)
		cfg.TestnetMagic = uint32(v)
	case "datadir":
		cfg.DataDir = value

	// cardano-cli
	case "cli.path":
		cfg.CLI.Path = value
	case "cli.timeout":
		cfg.CLI.Timeout, err = time.ParseDuration(value)
	case "cli.socket":
		cfg.CLI.SocketPath = value

	// Wallets
	case "wallet.payment":
		cfg.Wallet.Payment = value
	case "wallet.policy":
		cfg.Wallet.Policy = value

	// Selection
	case "select.minlovelace":
		cfg.Select.MinLovelace, err = strconv.ParseInt(value, 10, 64)

	// Fees
	case "fee.multiplier":
		cfg.Fee.Multiplier, err = strconv.ParseFloat(value, 64)
	case "fee.witnesses":
		cfg.Fee.Witnesses, err = strconv.Atoi(value)

	// Transactions
	case "tx.ttl":
		cfg.Tx.TTL, err = strconv.ParseUint(value, 10, 64)
	case "tx.keep":
		cfg.Tx.Keep = parseBool(value)
	case "submit.retries":
		cfg.Submit.Retries, err = strconv.ParseUint(value, 10, 64)

	// Policy
	case "policy.lockslots":
		cfg.Policy.LockSlots, err = strconv.ParseUint(value, 10, 64)

	// Explorer
	case "explorer.url":
		cfg.Explorer.URL = value

	// Cache
	case "cache.enabled", "cache":
		cfg.Cache.Enabled = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	d := Default(network)
	content := `# Automint Configuration
#
# Precedence: flags > this file > AUTOMINT_* environment > defaults.

# Network: mainnet or testnet
network = ` + string(network) + `
`
	if network == Testnet {
		content += `testnet.magic = ` + strconv.FormatUint(uint64(d.TestnetMagic), 10) + `
`
	}
	content += `
# cardano-cli
cli.path = ` + d.CLI.Path + `
cli.timeout = ` + d.CLI.Timeout.String() + `
# cli.socket = /path/to/node.socket

# Key pairs under <datadir>/<network>/keys
wallet.payment = ` + d.Wallet.Payment + `
wallet.policy = ` + d.Wallet.Policy + `

# Automatic UTXO selection: smallest UTXO holding at least this much lovelace
select.minlovelace = ` + strconv.FormatInt(d.Select.MinLovelace, 10) + `

# Fees
fee.multiplier = ` + strconv.FormatFloat(d.Fee.Multiplier, 'f', -1, 64) + `
# fee.witnesses = 2

# Transactions
tx.ttl = ` + strconv.FormatUint(d.Tx.TTL, 10) + `
tx.keep = false
submit.retries = ` + strconv.FormatUint(d.Submit.Retries, 10) + `

# Minting policy time lock in slots (0 = signature only)
policy.lockslots = ` + strconv.FormatUint(d.Policy.LockSlots, 10) + `

# Block explorer used by return-address and stake-key
explorer.url = ` + d.Explorer.URL + `

# Local UTXO snapshot cache
cache.enabled = true

# Logging
log.level = info
# log.file = /var/log/automint.log
log.json = false
`

	return os.WriteFile(path, []byte(content), 0644)
}
