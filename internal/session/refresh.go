package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/nova-wallet/internal/history"
	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// DefaultRefreshInterval is the auto-refresh period when none is configured.
const DefaultRefreshInterval = 30 * time.Second

// balanceWorkers bounds concurrent requests in RefreshAllBalances.
const balanceWorkers = 4

// target is the account and network an async operation works on, captured
// with the epoch it started in.
type target struct {
	account wallet.Account
	net     network.Network
	epoch   uint64
	sessCtx context.Context
}

func (c *Controller) target() (target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Unlocked {
		return target{}, ErrLocked
	}
	if c.current >= len(c.accounts) {
		return target{}, ErrUnknownAccount
	}
	net, ok := c.networks.ByID(c.networkID)
	if !ok {
		return target{}, ErrUnknownNetwork
	}
	return target{
		account: c.accounts[c.current].Clone(),
		net:     net,
		epoch:   c.epoch,
		sessCtx: c.sessCtx,
	}, nil
}

// joinContext returns a context cancelled when either parent or sess is.
func joinContext(parent, sess context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(sess, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// finished reports why an async result must be dropped: the session ended
// or ctx was cancelled.
func finished(ctx, sess context.Context) error {
	if err := sess.Err(); err != nil {
		return err
	}
	return ctx.Err()
}

// RefreshBalance updates the active account's balance on the active network.
// A result that arrives after Lock or Reset is dropped.
func (c *Controller) RefreshBalance(ctx context.Context) error {
	t, err := c.target()
	if err != nil {
		return err
	}
	a, err := c.adapters.For(t.net)
	if err != nil {
		return err
	}
	ctx, cancel := joinContext(ctx, t.sessCtx)
	defer cancel()

	bal := a.Balance(ctx, t.account.Address(t.net.Family), t.net)
	if err := finished(ctx, t.sessCtx); err != nil {
		return err
	}
	c.applyBalances(t.epoch, t.account.Index, map[string]string{t.net.ID: bal})
	return nil
}

// RefreshAllBalances queries the active account's balance on every mainnet
// with a registered adapter.
func (c *Controller) RefreshAllBalances(ctx context.Context) error {
	t, err := c.target()
	if err != nil {
		return err
	}
	ctx, cancel := joinContext(ctx, t.sessCtx)
	defer cancel()

	nets := c.networks.Mainnets()
	results := make([]string, len(nets))

	var g errgroup.Group
	g.SetLimit(balanceWorkers)
	for i, net := range nets {
		a, err := c.adapters.For(net)
		if err != nil {
			continue
		}
		g.Go(func() error {
			results[i] = a.Balance(ctx, t.account.Address(net.Family), net)
			return nil
		})
	}
	_ = g.Wait()
	if err := finished(ctx, t.sessCtx); err != nil {
		return err
	}

	balances := make(map[string]string, len(nets))
	for i, net := range nets {
		if results[i] != "" {
			balances[net.ID] = results[i]
		}
	}
	c.applyBalances(t.epoch, t.account.Index, balances)
	return nil
}

func (c *Controller) applyBalances(epoch uint64, index uint32, balances map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		klog.Session.Debug().Msg("Dropping balance result from ended session")
		return
	}
	if int(index) >= len(c.accounts) {
		return
	}
	accounts := make([]wallet.Account, len(c.accounts))
	copy(accounts, c.accounts)
	acct := accounts[index].Clone()
	for id, bal := range balances {
		acct.Balances[id] = bal
	}
	accounts[index] = acct
	c.accounts = accounts
}

// RefreshTransactions reconciles the log for the active account and
// network with the explorer.
func (c *Controller) RefreshTransactions(ctx context.Context) error {
	t, err := c.target()
	if err != nil {
		return err
	}
	ctx, cancel := joinContext(ctx, t.sessCtx)
	defer cancel()

	fetched := c.history.Fetch(ctx, t.account.EVMAddress, t.net, t.account.TronAddress)
	if err := finished(ctx, t.sessCtx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != t.epoch {
		klog.Session.Debug().Msg("Dropping history result from ended session")
		return nil
	}
	merged := history.Merge(c.txs, fetched, t.net.ID)
	for _, tx := range c.txs {
		if tx.NetworkID != t.net.ID {
			merged = append(merged, tx)
		}
	}
	types.SortNewestFirst(merged)
	return c.setTransactionsLocked(merged)
}

// RefreshAllTransactions reconciles the active account's log with the
// explorers of every mainnet in one concurrent fetch.
func (c *Controller) RefreshAllTransactions(ctx context.Context) error {
	t, err := c.target()
	if err != nil {
		return err
	}
	ctx, cancel := joinContext(ctx, t.sessCtx)
	defer cancel()

	nets := c.networks.Mainnets()
	fetched := c.history.FetchAll(ctx, t.account.EVMAddress, t.account.TronAddress, nets)
	if err := finished(ctx, t.sessCtx); err != nil {
		return err
	}

	ids := make([]string, len(nets))
	covered := make(map[string]bool, len(nets))
	for i, net := range nets {
		ids[i] = net.ID
		covered[net.ID] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != t.epoch {
		klog.Session.Debug().Msg("Dropping history result from ended session")
		return nil
	}
	merged := history.MergeAll(c.txs, fetched, ids)
	for _, tx := range c.txs {
		if !covered[tx.NetworkID] {
			merged = append(merged, tx)
		}
	}
	types.SortNewestFirst(merged)
	return c.setTransactionsLocked(merged)
}

// setTransactionsLocked replaces and persists the log. Caller holds mu.
func (c *Controller) setTransactionsLocked(txs []types.Transaction) error {
	if len(txs) > wallet.MaxStoredTransactions {
		txs = txs[:wallet.MaxStoredTransactions]
	}
	c.txs = txs
	if err := c.ks.SaveTransactions(txs); err != nil {
		c.persistFailedLocked(err)
		return err
	}
	return nil
}

// persistFailedLocked reports a transaction log write that did not reach
// the store. The in-memory log is kept and LastError carries the failure.
// Caller holds mu.
func (c *Controller) persistFailedLocked(err error) {
	klog.Session.Error().Err(err).Msg("Failed to persist transactions")
	c.lastErr = err.Error()
}

// refreshInBackground starts a balance and/or history refresh bound to the
// current session.
func (c *Controller) refreshInBackground(balance, txs bool) {
	c.mu.Lock()
	if c.closed || c.state != Unlocked {
		c.mu.Unlock()
		return
	}
	ctx := c.sessCtx
	c.bg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.bg.Done()
		if balance {
			logRefreshErr("balance", c.RefreshBalance(ctx))
		}
		if txs {
			logRefreshErr("transactions", c.RefreshTransactions(ctx))
		}
	}()
}

func logRefreshErr(what string, err error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrLocked) {
		return
	}
	klog.Session.Warn().Err(err).Str("refresh", what).Msg("Background refresh failed")
}

// StartAutoRefresh refreshes the active balance every interval while the
// wallet is unlocked. A non-positive interval uses the configured default.
// The returned func stops the loop; Close also stops it.
func (c *Controller) StartAutoRefresh(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = c.interval
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	c.bg.Add(1)
	c.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer c.bg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-c.done:
				return
			case <-ticker.C:
				c.mu.Lock()
				unlocked := c.state == Unlocked
				ctx := c.sessCtx
				c.mu.Unlock()
				if unlocked {
					logRefreshErr("balance", c.RefreshBalance(ctx))
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
