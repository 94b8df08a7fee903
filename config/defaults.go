package config

import (
	"time"

	"github.com/Klingon-tech/nova-wallet/internal/history"
	"github.com/Klingon-tech/nova-wallet/internal/rpcclient"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
)

// DefaultRefreshInterval is the background balance refresh period.
const DefaultRefreshInterval = 30 * time.Second

// Default RPC listen address.
const (
	DefaultRPCAddr = "127.0.0.1"
	DefaultRPCPort = 8547
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Network: wallet.DefaultNetworkID,
		Storage: StorageBadger,
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Vault: VaultConfig{
			KDF:        wallet.KDFPBKDF2,
			Iterations: wallet.DefaultPBKDF2Iterations,
		},
		Explorer: ExplorerConfig{
			APIKeys:  map[string]string{},
			Timeout:  rpcclient.DefaultTimeout,
			PageSize: history.DefaultPageSize,
		},
		Refresh: RefreshConfig{
			Interval: DefaultRefreshInterval,
		},
		RPC: RPCConfig{
			Enabled: true,
			Addr:    DefaultRPCAddr,
			Port:    DefaultRPCPort,
		},
	}
}
