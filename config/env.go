package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable the wallet reads.
const EnvPrefix = "NOVA"

// explorerKeyEnv lists the explorer API keys under their conventional
// names. Each is read as NOVA_<NAME> first, then as plain <NAME>.
type explorerKeyEnv struct {
	Etherscan   string `envconfig:"ETHERSCAN_API_KEY"`
	BscScan     string `envconfig:"BSCSCAN_API_KEY"`
	PolygonScan string `envconfig:"POLYGONSCAN_API_KEY"`
	Arbiscan    string `envconfig:"ARBISCAN_API_KEY"`
	Optimism    string `envconfig:"OPTIMISM_API_KEY"`
	Snowtrace   string `envconfig:"SNOWTRACE_API_KEY"`
	FtmScan     string `envconfig:"FTMSCAN_API_KEY"`
	BaseScan    string `envconfig:"BASESCAN_API_KEY"`
	LineaScan   string `envconfig:"LINEASCAN_API_KEY"`
	TronGrid    string `envconfig:"TRONGRID_API_KEY"`
}

// byNetwork maps each key to the networks whose explorer accepts it.
func (e explorerKeyEnv) byNetwork() map[string]string {
	return map[string]string{
		"ethereum":    e.Etherscan,
		"sepolia":     e.Etherscan,
		"bsc":         e.BscScan,
		"bsc-testnet": e.BscScan,
		"polygon":     e.PolygonScan,
		"arbitrum":    e.Arbiscan,
		"optimism":    e.Optimism,
		"avalanche":   e.Snowtrace,
		"fantom":      e.FtmScan,
		"base":        e.BaseScan,
		"linea":       e.LineaScan,
		"tron":        e.TronGrid,
		"tron-nile":   e.TronGrid,
	}
}

// ApplyEnv overlays NOVA_* environment variables onto cfg, e.g.
// NOVA_NETWORK, NOVA_DATA_DIR, NOVA_LOG_LEVEL, NOVA_VAULT_ITERATIONS,
// NOVA_REFRESH_INTERVAL or NOVA_EXPLORER_API_KEYS=ethereum:KEY,bsc:KEY.
// Unset variables leave the current value untouched.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	var keys explorerKeyEnv
	if err := envconfig.Process(EnvPrefix, &keys); err != nil {
		return fmt.Errorf("process explorer keys: %w", err)
	}
	if cfg.Explorer.APIKeys == nil {
		cfg.Explorer.APIKeys = make(map[string]string)
	}
	for id, key := range keys.byNetwork() {
		if key == "" {
			continue
		}
		if _, set := cfg.Explorer.APIKeys[id]; !set {
			cfg.Explorer.APIKeys[id] = key
		}
	}
	if cfg.Tron.APIKey == "" {
		cfg.Tron.APIKey = keys.TronGrid
	}
	return nil
}
