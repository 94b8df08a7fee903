// Package config handles wallet configuration.
//
// Values are layered, lowest precedence first: built-in defaults, the
// key = value config file, NOVA_* environment variables, then command-line
// flags (see LoadWithFlags).
package config

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/Klingon-tech/nova-wallet/internal/wallet"
)

// StorageBackend selects where wallet records live.
type StorageBackend string

const (
	StorageBadger StorageBackend = "badger"
	StorageMemory StorageBackend = "memory"
)

// Config holds the runtime configuration of the wallet core.
type Config struct {
	DataDir string         `conf:"datadir" split_words:"true"`
	Network string         `conf:"network"` // Selected network when none was persisted.
	Storage StorageBackend `conf:"storage"`

	Log      LogConfig
	Vault    VaultConfig
	Tron     TronConfig
	Explorer ExplorerConfig
	Refresh  RefreshConfig
	RPC      RPCConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// VaultConfig selects the key-derivation function for new vaults.
// Existing vaults keep the parameters they were written with.
type VaultConfig struct {
	KDF          string `conf:"vault.kdf"`
	Iterations   uint32 `conf:"vault.iterations"`
	ArgonMemory  uint32 `conf:"vault.argon_memory" split_words:"true"` // KiB
	ArgonThreads uint8  `conf:"vault.argon_threads" split_words:"true"`
}

// TronConfig holds TRON full-node settings.
type TronConfig struct {
	Endpoint string `conf:"tron.endpoint"` // Overrides the mainnet full node.
	APIKey   string `conf:"tron.apikey" split_words:"true"`
}

// ExplorerConfig holds transaction-history API settings.
type ExplorerConfig struct {
	APIKeys  map[string]string `conf:"explorer.apikeys" split_words:"true"` // network ID -> key
	Timeout  time.Duration     `conf:"explorer.timeout"`
	PageSize int               `conf:"explorer.pagesize" split_words:"true"`
}

// RefreshConfig holds background refresh settings.
type RefreshConfig struct {
	Interval time.Duration `conf:"refresh.interval"`
}

// RPCConfig holds the local JSON-RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed" envconfig:"ALLOWED_IPS"`
	CORSOrigins []string `conf:"rpc.cors" envconfig:"CORS_ORIGINS"`
}

// ListenAddr returns the host:port the RPC server binds to.
func (r RPCConfig) ListenAddr() string {
	return net.JoinHostPort(r.Addr, strconv.Itoa(r.Port))
}

// EncryptionParams returns the vault KDF parameters. Argon2id settings left
// unset take the wallet's recommended values; the PBKDF2 iteration default
// is not carried over as an Argon2 time cost.
func (c *Config) EncryptionParams() wallet.EncryptionParams {
	p := wallet.EncryptionParams{
		KDF:         c.Vault.KDF,
		Iterations:  c.Vault.Iterations,
		Memory:      c.Vault.ArgonMemory,
		Parallelism: c.Vault.ArgonThreads,
	}
	if p.KDF != wallet.KDFArgon2id {
		return p
	}
	rec := wallet.Argon2Params()
	if p.Iterations == 0 || p.Iterations == wallet.DefaultPBKDF2Iterations {
		p.Iterations = rec.Iterations
	}
	if p.Memory == 0 {
		p.Memory = rec.Memory
	}
	if p.Parallelism == 0 {
		p.Parallelism = rec.Parallelism
	}
	return p
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.nova-wallet
//	macOS:   ~/Library/Application Support/NovaWallet
//	Windows: %APPDATA%\NovaWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nova-wallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "NovaWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "NovaWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "NovaWallet")
	default:
		return filepath.Join(home, ".nova-wallet")
	}
}

// DBDir returns the badger database directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "nova.conf")
}
