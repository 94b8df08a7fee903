// Package node assembles the wallet daemon: session controller, background
// refresh and the local RPC server. It can be embedded in any binary.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/nova-wallet/config"
	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/rpc"
	"github.com/Klingon-tech/nova-wallet/internal/session"
)

// DefaultLogFile is the log file name under the logs directory.
const DefaultLogFile = "novad.log"

// initTimeout bounds reading the persisted wallet state at startup.
const initTimeout = 30 * time.Second

// Node is a fully-initialized wallet daemon.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	wallet *session.Controller

	// RPC
	rpcServer *rpc.Server

	stopRefresh func()
}

// New creates and initializes a Node. It opens storage, restores the
// persisted session state and builds the RPC server, but does NOT start
// background work. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Paths ────────────────────────────────────────────────────
	cfg.DataDir = expandHome(cfg.DataDir)
	if cfg.Log.File == "" {
		cfg.Log.File = DefaultLogFile
	} else {
		cfg.Log.File = expandHome(cfg.Log.File)
	}

	// ── 2. Logger, storage, controller ──────────────────────────────
	ctl, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	logger := klog.WithComponent("node")

	// ── 3. Restore state ────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := ctl.Initialize(ctx); err != nil {
		ctl.Close()
		return nil, fmt.Errorf("initialize wallet: %w", err)
	}

	n := &Node{
		cfg:    cfg,
		logger: logger,
		wallet: ctl,
	}

	// ── 4. RPC ──────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPC.ListenAddr(), ctl, network.Default, cfg.RPC)
	}

	logger.Info().
		Str("datadir", cfg.DataDir).
		Str("state", ctl.State().String()).
		Str("network", ctl.Network().ID).
		Msg("Starting Nova wallet daemon")

	return n, nil
}

// Start launches the RPC server and periodic balance refresh.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
	}

	n.stopRefresh = n.wallet.StartAutoRefresh(n.cfg.Refresh.Interval)

	n.logger.Info().
		Str("rpc", n.RPCAddr()).
		Dur("refresh", n.cfg.Refresh.Interval).
		Msg("Daemon started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	if n.stopRefresh != nil {
		n.stopRefresh()
	}
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if err := n.wallet.Close(); err != nil {
		n.logger.Warn().Err(err).Msg("Closing wallet")
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Wallet returns the session controller.
func (n *Node) Wallet() *session.Controller {
	return n.wallet
}
