package config

import (
	"fmt"
	"strings"

	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
)

// Validate checks the configuration for operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, ok := network.Default.ByID(cfg.Network); !ok {
		return fmt.Errorf("network %q is not a supported network", cfg.Network)
	}
	switch cfg.Storage {
	case StorageBadger:
		if strings.TrimSpace(cfg.DataDir) == "" {
			return fmt.Errorf("datadir is required for badger storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("storage must be %q or %q", StorageBadger, StorageMemory)
	}
	if cfg.Log.Level != "" && !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a valid level", cfg.Log.Level)
	}
	if err := cfg.EncryptionParams().Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if cfg.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	if cfg.Explorer.Timeout <= 0 {
		return fmt.Errorf("explorer.timeout must be positive")
	}
	if cfg.Explorer.PageSize < 1 || cfg.Explorer.PageSize > 10000 {
		return fmt.Errorf("explorer.pagesize must be in range [1, 10000]")
	}
	if cfg.RPC.Enabled {
		if strings.TrimSpace(cfg.RPC.Addr) == "" {
			return fmt.Errorf("rpc.addr is required when rpc is enabled")
		}
		if cfg.RPC.Port < 1 || cfg.RPC.Port > 65535 {
			return fmt.Errorf("rpc.port must be in range [1, 65535]")
		}
	}
	for id := range cfg.Explorer.APIKeys {
		if _, ok := network.Default.ByID(id); !ok {
			return fmt.Errorf("explorer.apikeys: unknown network %q", id)
		}
	}
	return nil
}
