package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/nova-wallet/config"
	"github.com/Klingon-tech/nova-wallet/internal/adapter"
	"github.com/Klingon-tech/nova-wallet/internal/history"
	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/storage"
)

// Open builds a controller from cfg: logging, storage, chain adapters and
// history sources. The controller owns the store and closes it on Close.
func Open(cfg *config.Config) (*Controller, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logFile := cfg.Log.File
	if logFile != "" {
		if !filepath.IsAbs(logFile) {
			logFile = filepath.Join(cfg.LogsDir(), logFile)
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
			return nil, fmt.Errorf("create logs dir: %w", err)
		}
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	db, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Store:           db,
		Networks:        network.Default,
		Adapters:        NewAdapters(cfg),
		History:         NewHistory(cfg),
		DefaultNetwork:  cfg.Network,
		Params:          cfg.EncryptionParams(),
		RefreshInterval: cfg.Refresh.Interval,
		closeStore:      true,
	}
	c, err := New(opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	klog.Session.Info().
		Str("storage", string(cfg.Storage)).
		Str("network", cfg.Network).
		Msg("Wallet core ready")
	return c, nil
}

// OpenStore opens the configured storage backend.
func OpenStore(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StorageBadger:
		if err := os.MkdirAll(cfg.DBDir(), 0700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		db, err := storage.NewBadger(cfg.DBDir())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// NewAdapters builds the EVM and TRON adapters for cfg.
func NewAdapters(cfg *config.Config) *adapter.Set {
	tronOpts := adapter.TronOptions{
		APIKey:  cfg.Tron.APIKey,
		Timeout: cfg.Explorer.Timeout,
	}
	if cfg.Tron.Endpoint != "" {
		tronOpts.Endpoints = map[string]string{"tron": cfg.Tron.Endpoint}
	}
	return adapter.NewSet(adapter.NewEVM(nil), adapter.NewTron(tronOpts))
}

// NewHistory builds the explorer-backed reconciler for cfg.
func NewHistory(cfg *config.Config) *history.Reconciler {
	evm := &history.EtherscanSource{
		APIKeys:  cfg.Explorer.APIKeys,
		PageSize: cfg.Explorer.PageSize,
		Timeout:  cfg.Explorer.Timeout,
	}
	tron := &history.TronGridSource{
		APIKey:   cfg.Tron.APIKey,
		PageSize: cfg.Explorer.PageSize,
		Timeout:  cfg.Explorer.Timeout,
	}
	return history.NewReconciler(evm, tron)
}
