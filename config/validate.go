package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Network == Testnet && cfg.TestnetMagic == 0 {
		return fmt.Errorf("testnet requires testnet.magic")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("datadir is empty")
	}
	if cfg.CLI.Path == "" {
		return fmt.Errorf("cli.path is empty")
	}
	if cfg.CLI.Timeout < 0 {
		return fmt.Errorf("cli.timeout must not be negative")
	}
	if cfg.Wallet.Payment == "" || cfg.Wallet.Policy == "" {
		return fmt.Errorf("wallet.payment and wallet.policy must be set")
	}
	if cfg.Wallet.Payment == cfg.Wallet.Policy {
		return fmt.Errorf("wallet.payment and wallet.policy must differ")
	}
	if cfg.Select.MinLovelace < 0 {
		return fmt.Errorf("select.minlovelace must not be negative")
	}
	if cfg.Fee.Multiplier < 1 {
		return fmt.Errorf("fee.multiplier must be at least 1")
	}
	if cfg.Fee.Witnesses < 0 {
		return fmt.Errorf("fee.witnesses must not be negative")
	}
	if cfg.Tx.TTL == 0 {
		return fmt.Errorf("tx.ttl must be positive")
	}
	if cfg.Explorer.URL != "" {
		u, err := url.Parse(cfg.Explorer.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("explorer.url must be an http(s) URL")
		}
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
