package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrHelp is returned by ParseFlags when -h or --help was given.
var ErrHelp = flag.ErrHelp

// Flags holds parsed global command-line flags.
type Flags struct {
	Help bool

	// Core
	Network      string
	TestnetMagic uint
	DataDir      string
	Config       string

	// cardano-cli
	CLIPath    string
	CLITimeout time.Duration
	Socket     string

	// Transactions
	FeeMultiplier float64
	TTL           uint64
	Keep          bool
	Retries       uint64

	// Cache
	NoCache bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the command and its arguments.
	Args []string

	// Explicitly-set flags (for zero-value overrides).
	SetKeep    bool
	SetLogJSON bool
	SetRetries bool
}

// ParseFlags parses global flags from args (without the program name).
// Parsing stops at the first non-flag argument, the command name.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("automint", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&f.Help, "help", false, "Show help")
	fs.BoolVar(&f.Help, "h", false, "Show help (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network: mainnet or testnet")
	fs.UintVar(&f.TestnetMagic, "testnet-magic", 0, "Testnet magic number")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory")
	fs.StringVar(&f.Config, "config", "", "Config file path")

	// cardano-cli
	fs.StringVar(&f.CLIPath, "cli", "", "Path to cardano-cli")
	fs.DurationVar(&f.CLITimeout, "cli-timeout", 0, "Per-command timeout")
	fs.StringVar(&f.Socket, "socket", "", "cardano-node socket path")

	// Transactions
	fs.Float64Var(&f.FeeMultiplier, "fee-multiplier", 0, "Multiplier applied to the calculated minimum fee")
	fs.Uint64Var(&f.TTL, "ttl", 0, "Slots past the tip before a transaction expires")
	fs.BoolVar(&f.Keep, "keep", false, "Keep per-run transaction files")
	fs.Uint64Var(&f.Retries, "retries", 0, "Submit retries on transient failures")

	fs.BoolVar(&f.NoCache, "no-cache", false, "Disable the local UTXO snapshot cache")

	// Logging
	fs.StringVar(&f.LogLevel, "loglevel", "", "Log level: trace, debug, info, warn, error")
	fs.StringVar(&f.LogFile, "logfile", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs in JSON format")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.Help {
		return f, ErrHelp
	}

	f.Args = fs.Args()
	f.SetKeep = isFlagSet(fs, "keep")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetRetries = isFlagSet(fs, "retries")
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.TestnetMagic != 0 {
		cfg.TestnetMagic = uint32(f.TestnetMagic)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// cardano-cli
	if f.CLIPath != "" {
		cfg.CLI.Path = f.CLIPath
	}
	if f.CLITimeout != 0 {
		cfg.CLI.Timeout = f.CLITimeout
	}
	if f.Socket != "" {
		cfg.CLI.SocketPath = f.Socket
	}

	// Transactions
	if f.FeeMultiplier != 0 {
		cfg.Fee.Multiplier = f.FeeMultiplier
	}
	if f.TTL != 0 {
		cfg.Tx.TTL = f.TTL
	}
	if f.SetKeep {
		cfg.Tx.Keep = f.Keep
	}
	if f.SetRetries {
		cfg.Submit.Retries = f.Retries
	}

	if f.NoCache {
		cfg.Cache.Enabled = false
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Load builds the configuration from all sources.
// Precedence (lowest to highest):
// 1. Built-in defaults for the network
// 2. AUTOMINT_* environment (.env in the data dir, then the process)
// 3. Config file
// 4. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, flags, err
	}

	// The network and data dir pick the defaults and the file locations, so
	// resolve them before anything else.
	envValues, err := LoadEnv("")
	if err != nil {
		return nil, nil, err
	}
	dataDir := firstNonEmpty(flags.DataDir, envValues["datadir"], DefaultDataDir())
	network := NetworkType(strings.ToLower(firstNonEmpty(flags.Network, envValues["network"], string(Mainnet))))

	cfg := Default(network)
	cfg.DataDir = dataDir

	envValues, err = LoadEnv(cfg.EnvFile())
	if err != nil {
		return nil, nil, fmt.Errorf("loading environment: %w", err)
	}
	if err := ApplyFileConfig(cfg, envValues); err != nil {
		return nil, nil, fmt.Errorf("applying environment: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDir(),
		cfg.KeysDir(),
		cfg.PolicyDir(),
		cfg.TmpDir(),
	}
	if cfg.Cache.Enabled {
		dirs = append(dirs, cfg.CacheDir())
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
