package session

import (
	"context"
	"fmt"
	"math"

	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
)

// AddAccount derives the next account index and refreshes its balance.
func (c *Controller) AddAccount(ctx context.Context) (wallet.Account, error) {
	c.mu.Lock()
	if c.state != Unlocked {
		c.mu.Unlock()
		return wallet.Account{}, ErrLocked
	}
	next := len(c.accounts)
	if next >= math.MaxInt32 {
		c.mu.Unlock()
		return wallet.Account{}, fmt.Errorf("%w: account index exhausted", wallet.ErrDerivation)
	}
	seed := append([]byte(nil), c.seed...)
	epoch := c.epoch
	c.mu.Unlock()

	keys, err := wallet.DeriveKeys(seed, uint32(next))
	zero(seed)
	if err != nil {
		return wallet.Account{}, c.fail(err)
	}
	acct := keys.Account()
	keys.Zero()

	c.mu.Lock()
	if c.epoch != epoch || c.state != Unlocked {
		c.mu.Unlock()
		return wallet.Account{}, ErrLocked
	}
	if len(c.accounts) != next {
		// A concurrent AddAccount took this index.
		c.mu.Unlock()
		return c.AddAccount(ctx)
	}
	accounts := make([]wallet.Account, 0, next+1)
	accounts = append(accounts, c.accounts...)
	c.accounts = append(accounts, acct)
	c.mu.Unlock()

	klog.Session.Info().Uint32("index", acct.Index).Msg("Account added")
	c.refreshInBackground(true, false)
	return acct.Clone(), nil
}

// SelectAccount makes index the active account and refreshes it.
func (c *Controller) SelectAccount(index int) error {
	c.mu.Lock()
	if c.state != Unlocked {
		c.mu.Unlock()
		return ErrLocked
	}
	if index < 0 || index >= len(c.accounts) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownAccount, index)
	}
	c.current = index
	c.mu.Unlock()

	c.refreshInBackground(true, true)
	return nil
}

// SelectNetwork persists id as the active network and refreshes it.
func (c *Controller) SelectNetwork(id string) error {
	if _, ok := c.networks.ByID(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNetwork, id)
	}
	if err := c.ks.SaveSelectedNetwork(id); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.networkID = id
	unlocked := c.state == Unlocked
	c.mu.Unlock()

	klog.Session.Debug().Str("network", id).Msg("Network selected")
	if unlocked {
		c.refreshInBackground(true, true)
	}
	return nil
}
