// Package config handles automint configuration.
//
// Settings are layered: built-in defaults, then AUTOMINT_* environment
// variables (optionally from a .env file), then <datadir>/automint.conf,
// then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// DefaultTestnetMagic is the magic of the public preprod testnet.
const DefaultTestnetMagic = 1

// Config holds runtime configuration.
type Config struct {
	// Core
	Network      NetworkType `conf:"network"`
	TestnetMagic uint32      `conf:"testnet.magic"`
	DataDir      string      `conf:"datadir"`

	// cardano-cli
	CLI CLIConfig

	// Wallets
	Wallet WalletConfig

	// UTXO selection
	Select SelectConfig

	// Transactions
	Fee    FeeConfig
	Tx     TxConfig
	Submit SubmitConfig

	// Minting policy
	Policy PolicyConfig

	// Block explorer
	Explorer ExplorerConfig

	// Local UTXO snapshot cache
	Cache CacheConfig

	// Logging
	Log LogConfig
}

// CLIConfig holds cardano-cli settings.
type CLIConfig struct {
	Path       string        `conf:"cli.path"`
	Timeout    time.Duration `conf:"cli.timeout"`
	SocketPath string        `conf:"cli.socket"` // exported as CARDANO_NODE_SOCKET_PATH
}

// WalletConfig names the key pairs under <datadir>/<network>/keys.
type WalletConfig struct {
	Payment string `conf:"wallet.payment"`
	Policy  string `conf:"wallet.policy"`
}

// SelectConfig holds automatic UTXO selection settings.
type SelectConfig struct {
	MinLovelace int64 `conf:"select.minlovelace"`
}

// FeeConfig holds fee calculation settings.
type FeeConfig struct {
	Multiplier float64 `conf:"fee.multiplier"`
	Witnesses  int     `conf:"fee.witnesses"` // 0 = one per signing key
}

// TxConfig holds transaction build settings.
type TxConfig struct {
	TTL  uint64 `conf:"tx.ttl"`  // slots past the tip before a transaction expires
	Keep bool   `conf:"tx.keep"` // keep tmp/<run> after a run
}

// SubmitConfig holds submission settings.
type SubmitConfig struct {
	Retries uint64 `conf:"submit.retries"`
}

// PolicyConfig holds minting policy settings.
type PolicyConfig struct {
	LockSlots uint64 `conf:"policy.lockslots"` // 0 = no time lock
}

// ExplorerConfig holds block explorer settings.
type ExplorerConfig struct {
	URL string `conf:"explorer.url"`
}

// CacheConfig holds UTXO snapshot cache settings.
type CacheConfig struct {
	Enabled bool `conf:"cache.enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.automint
//	macOS:   ~/Library/Application Support/Automint
//	Windows: %APPDATA%\Automint
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".automint"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Automint")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Automint")
		}
		return filepath.Join(home, "AppData", "Roaming", "Automint")
	default:
		return filepath.Join(home, ".automint")
	}
}

// NetworkDir returns the network-specific data directory.
func (c *Config) NetworkDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeysDir returns the wallet key directory.
func (c *Config) KeysDir() string {
	return filepath.Join(c.NetworkDir(), "keys")
}

// PolicyDir returns the directory holding policy.script and policy.id.
func (c *Config) PolicyDir() string {
	return filepath.Join(c.NetworkDir(), "policy")
}

// TmpDir returns the directory for per-run transaction files.
func (c *Config) TmpDir() string {
	return filepath.Join(c.NetworkDir(), "tmp")
}

// CacheDir returns the UTXO snapshot database directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "automint.conf")
}

// EnvFile returns the optional .env file path.
func (c *Config) EnvFile() string {
	return filepath.Join(c.DataDir, ".env")
}
