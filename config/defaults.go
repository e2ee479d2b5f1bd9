package config

import (
	"time"

	"github.com/Klingon-tech/automint/internal/explorer"
	"github.com/Klingon-tech/automint/internal/policy"
	"github.com/Klingon-tech/automint/internal/txbuilder"
	"github.com/Klingon-tech/automint/internal/wallet"
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		CLI: CLIConfig{
			Path:    "cardano-cli",
			Timeout: 2 * time.Minute,
		},
		Wallet: WalletConfig{
			Payment: "payment",
			Policy:  "policy",
		},
		Select: SelectConfig{
			MinLovelace: wallet.DefaultMinLovelace,
		},
		Fee: FeeConfig{
			Multiplier: txbuilder.DefaultFeeMultiplier,
		},
		Tx: TxConfig{
			TTL: 3600,
		},
		Submit: SubmitConfig{
			Retries: 3,
		},
		Policy: PolicyConfig{
			LockSlots: policy.DefaultLockSlots,
		},
		Explorer: ExplorerConfig{
			URL: explorer.DefaultURL,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.TestnetMagic = DefaultTestnetMagic
	cfg.Explorer.URL = "https://preprod.cardanoscan.io"
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
