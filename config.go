package sharecore

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// fileConfig is the on-disk shape sharecore.toml decodes into: pool-level
// settings plus one [[coins]] table per CoinTemplate.
type fileConfig struct {
	Pool struct {
		PayoutAddress           string `toml:"payout_address"`
		Network                 string `toml:"network"`
		Extranonce1Size         int    `toml:"extranonce1_size"`
		Extranonce2Size         int    `toml:"extranonce2_size"`
		TemplateExtraNonce2Size int    `toml:"template_extranonce2_size"`
		VersionMask             string `toml:"version_rolling_mask"`
	} `toml:"pool"`
	Coins []CoinTemplate `toml:"coins"`
}

// loadTOMLFile reads and decodes path into a fresh T, mirroring the pool's
// own generic config-file loader: absent files are not an error, callers
// decide what that means.
func loadTOMLFile[T any](path string) (*T, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg T
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, true, nil
}

// LoadPoolConfig reads path and returns the operator-level PoolConfig plus
// the pool's payout destination, network selection, and per-coin templates.
// Every CoinTemplate's Diff1() cache is left unresolved; Diff1 resolves and
// caches it on first call.
func LoadPoolConfig(path string) (*PoolConfig, string, Network, []CoinTemplate, error) {
	fc, ok, err := loadTOMLFile[fileConfig](path)
	if err != nil {
		return nil, "", NetworkMainnet, nil, err
	}
	if !ok {
		return nil, "", NetworkMainnet, nil, fmt.Errorf("config file not found: %s", path)
	}
	if fc.Pool.PayoutAddress == "" {
		return nil, "", NetworkMainnet, nil, fmt.Errorf("pool.payout_address is required")
	}

	network := parseNetwork(fc.Pool.Network)

	pool := &PoolConfig{
		Extranonce1Size:         fc.Pool.Extranonce1Size,
		Extranonce2Size:         fc.Pool.Extranonce2Size,
		TemplateExtraNonce2Size: fc.Pool.TemplateExtraNonce2Size,
	}
	if pool.Extranonce1Size == 0 {
		pool.Extranonce1Size = 4
	}
	if pool.Extranonce2Size == 0 {
		pool.Extranonce2Size = 4
	}
	if fc.Pool.VersionMask != "" {
		mask, err := parseUint32BEHex(fc.Pool.VersionMask)
		if err != nil {
			return nil, "", network, nil, fmt.Errorf("pool.version_rolling_mask: %w", err)
		}
		pool.VersionMask = mask
		pool.VersionMaskConfigured = true
	}

	if len(fc.Coins) == 0 {
		return nil, "", network, nil, fmt.Errorf("at least one [[coins]] entry is required")
	}
	for i := range fc.Coins {
		if fc.Coins[i].Symbol == "" {
			return nil, "", network, nil, fmt.Errorf("coins[%d].symbol is required", i)
		}
	}

	return pool, fc.Pool.PayoutAddress, network, fc.Coins, nil
}

func parseNetwork(name string) Network {
	switch name {
	case "testnet3", "testnet":
		return NetworkTestnet3
	case "signet":
		return NetworkSignet
	case "regtest":
		return NetworkRegtest
	default:
		return NetworkMainnet
	}
}

// CoinBySymbol finds the CoinTemplate matching symbol, case-sensitively
// (coin symbols are configured uppercase by convention).
func CoinBySymbol(coins []CoinTemplate, symbol string) (*CoinTemplate, error) {
	for i := range coins {
		if coins[i].Symbol == symbol {
			return &coins[i], nil
		}
	}
	return nil, fmt.Errorf("unknown coin symbol %q", symbol)
}
