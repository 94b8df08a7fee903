// Package session implements the wallet session controller: the state
// machine that owns the unlocked secret and drives account management,
// refreshes and sends.
//
// At most one Controller exists per process. The unlocked seed lives only
// inside the controller and is zeroed on Lock, Reset and Close.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/nova-wallet/internal/adapter"
	"github.com/Klingon-tech/nova-wallet/internal/history"
	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/storage"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// State is the lifecycle state of the wallet.
type State int

const (
	Uninitialized State = iota // No vault persisted.
	Locked                     // Vault exists, no secret in memory.
	Unlocked                   // Secret in memory.
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IncorrectPassword is the LastError text after a failed unlock.
const IncorrectPassword = "incorrect password"

var (
	ErrControllerActive  = errors.New("another wallet session is active in this process")
	ErrClosed            = errors.New("session closed")
	ErrWalletExists      = errors.New("a wallet already exists on this device")
	ErrNoWallet          = errors.New("no wallet on this device")
	ErrLocked            = errors.New("wallet is locked")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrUnknownNetwork    = errors.New("unknown network")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSendInProgress    = errors.New("another send is in progress")
	ErrStalePlan         = errors.New("send plan no longer matches the session")
)

// active enforces the single-controller rule.
var active atomic.Bool

// Options are the collaborators of a Controller.
type Options struct {
	Store    storage.DB
	Networks *network.Registry
	Adapters *adapter.Set
	History  *history.Reconciler

	// DefaultNetwork is selected when none was persisted.
	// Zero means wallet.DefaultNetworkID.
	DefaultNetwork string

	// Params is the KDF used for new vaults. Zero means wallet.DefaultParams.
	Params wallet.EncryptionParams

	// RefreshInterval is the StartAutoRefresh default.
	RefreshInterval time.Duration

	// Now stamps locally created transactions. Defaults to time.Now.
	Now func() time.Time

	// closeStore makes Close also close Store.
	closeStore bool
}

// Controller is the wallet session state machine. All methods are safe for
// concurrent use.
type Controller struct {
	ks       *wallet.Keystore
	store    storage.DB
	networks *network.Registry
	adapters *adapter.Set
	history  *history.Reconciler
	params   wallet.EncryptionParams
	interval time.Duration
	now      func() time.Time
	fallback string // Network when none is persisted.

	closeStore bool

	mu        sync.Mutex
	state     State
	seed      []byte // Present only while Unlocked.
	accounts  []wallet.Account
	current   int
	networkID string
	txs       []types.Transaction // Replaced whole, never mutated in place.
	lastErr   string
	closed    bool

	// epoch changes on every lock, unlock and reset. Async results carry
	// the epoch they started in and are dropped if it moved.
	epoch   uint64
	sessCtx context.Context
	cancel  context.CancelFunc

	sendMu sync.Mutex
	bg     sync.WaitGroup
	done   chan struct{} // Closed by Close.
}

// New creates the process's controller. It fails with ErrControllerActive
// while another controller is open.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session: nil store")
	}
	if !active.CompareAndSwap(false, true) {
		return nil, ErrControllerActive
	}

	c := &Controller{
		ks:         wallet.NewKeystore(opts.Store),
		store:      opts.Store,
		networks:   opts.Networks,
		adapters:   opts.Adapters,
		history:    opts.History,
		params:     opts.Params,
		interval:   opts.RefreshInterval,
		now:        opts.Now,
		closeStore: opts.closeStore,
		fallback:   opts.DefaultNetwork,
		done:       make(chan struct{}),
	}
	if c.networks == nil {
		c.networks = network.Default
	}
	if c.adapters == nil {
		c.adapters = adapter.NewSet()
	}
	if c.history == nil {
		c.history = history.NewReconciler(nil, nil)
	}
	if _, ok := c.networks.ByID(c.fallback); !ok {
		c.fallback = wallet.DefaultNetworkID
	}
	c.networkID = c.fallback
	if c.params.KDF == "" {
		c.params = wallet.DefaultParams()
	}
	if c.interval <= 0 {
		c.interval = DefaultRefreshInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.sessCtx, c.cancel = context.WithCancel(context.Background())
	c.cancel()
	return c, nil
}

// Close locks the wallet, waits for background work and releases the
// single-instance guard.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.endSessionLocked()
	if c.state == Unlocked {
		c.state = Locked
	}
	c.mu.Unlock()

	c.bg.Wait()
	var err error
	if c.closeStore {
		err = c.store.Close()
	}
	active.Store(false)
	return err
}

// Initialize reads the persisted state: whether a vault exists, the
// selected network and the transaction log.
func (c *Controller) Initialize(ctx context.Context) error {
	hasVault, err := c.ks.HasVault()
	if err != nil {
		return fmt.Errorf("check vault: %w", err)
	}
	initialized, err := c.ks.Initialized()
	if err != nil {
		return err
	}
	switch {
	case hasVault && !initialized:
		if err := c.ks.SetInitialized(true); err != nil {
			return err
		}
	case !hasVault && initialized:
		klog.Session.Warn().Msg("Wallet marked initialized but no vault found")
		if err := c.ks.SetInitialized(false); err != nil {
			return err
		}
	}
	networkID, saved, err := c.ks.SavedNetwork()
	if err != nil {
		return err
	}
	if !saved {
		networkID = c.fallback
	} else if _, ok := c.networks.ByID(networkID); !ok {
		klog.Session.Warn().Str("network", networkID).Msg("Saved network unknown, using default")
		networkID = c.fallback
	}
	txs, err := c.ks.Transactions()
	if err != nil {
		klog.Session.Warn().Err(err).Msg("Transaction log unreadable, starting empty")
		txs = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.networkID = networkID
	c.txs = txs
	if c.state != Unlocked {
		c.state = Uninitialized
		if hasVault {
			c.state = Locked
		}
	}
	klog.Session.Info().Str("state", c.state.String()).Str("network", networkID).Msg("Session initialized")
	return nil
}

// Create generates a new mnemonic, stores its vault and unlocks account 0.
// The mnemonic is returned once for backup.
func (c *Controller) Create(ctx context.Context, password string) (string, error) {
	if err := c.checkCanInitialize(); err != nil {
		return "", err
	}
	if err := wallet.ValidatePassword(password); err != nil {
		return "", c.fail(err)
	}
	mnemonic, err := wallet.GenerateMnemonic(wallet.DefaultEntropyBits)
	if err != nil {
		return "", c.fail(err)
	}
	if err := c.establish(mnemonic, password); err != nil {
		return "", err
	}
	klog.Session.Info().Msg("Wallet created")
	return mnemonic, nil
}

// Import stores a vault for an existing mnemonic and unlocks account 0.
func (c *Controller) Import(ctx context.Context, mnemonic, password string) error {
	if err := c.checkCanInitialize(); err != nil {
		return err
	}
	mnemonic = wallet.NormalizeMnemonic(mnemonic)
	if !wallet.ValidateMnemonic(mnemonic) {
		return c.fail(wallet.ErrInvalidMnemonic)
	}
	if err := wallet.ValidatePassword(password); err != nil {
		return c.fail(err)
	}
	if err := c.establish(mnemonic, password); err != nil {
		return err
	}
	klog.Session.Info().Msg("Wallet imported")
	return nil
}

func (c *Controller) checkCanInitialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state != Uninitialized {
		return ErrWalletExists
	}
	if has, err := c.ks.HasVault(); err != nil {
		return fmt.Errorf("check vault: %w", err)
	} else if has {
		return ErrWalletExists
	}
	c.lastErr = ""
	return nil
}

// establish encrypts and persists the vault, then unlocks account 0.
func (c *Controller) establish(mnemonic, password string) error {
	pw := []byte(password)
	defer zero(pw)

	vault, err := wallet.Encrypt(mnemonic, pw, c.params)
	if err != nil {
		return c.fail(err)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return c.fail(err)
	}
	keys, err := wallet.DeriveKeys(seed, 0)
	if err != nil {
		zero(seed)
		return c.fail(err)
	}
	acct := keys.Account()
	keys.Zero()

	if err := c.ks.SaveVault(vault); err != nil {
		zero(seed)
		return c.fail(fmt.Errorf("persist vault: %w", err))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		zero(seed)
		return ErrClosed
	}
	c.seed = seed
	c.accounts = []wallet.Account{acct}
	c.current = 0
	c.state = Unlocked
	c.lastErr = ""
	c.beginSessionLocked()
	c.mu.Unlock()

	c.refreshInBackground(true, true)
	return nil
}

// Unlock decrypts the vault. A wrong password is not an error: Unlock
// returns false, stays Locked and sets LastError to IncorrectPassword.
func (c *Controller) Unlock(ctx context.Context, password string) (bool, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return false, ErrClosed
	case c.state == Unlocked:
		c.mu.Unlock()
		return true, nil
	}
	c.mu.Unlock()
	defer klog.Benchmark("unlock")()

	vault, err := c.ks.LoadVault()
	if errors.Is(err, wallet.ErrNoVault) {
		return false, c.fail(ErrNoWallet)
	}
	if err != nil {
		return false, c.fail(err)
	}

	pw := []byte(password)
	mnemonic, err := wallet.Decrypt(vault, pw)
	zero(pw)
	if err != nil {
		c.mu.Lock()
		c.lastErr = IncorrectPassword
		c.mu.Unlock()
		klog.Session.Warn().Msg("Unlock failed")
		return false, nil
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return false, c.fail(err)
	}

	c.mu.Lock()
	cached := c.accounts
	c.mu.Unlock()

	accounts, err := rederive(seed, cached)
	if err != nil {
		zero(seed)
		return false, c.fail(err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		zero(seed)
		return false, ErrClosed
	}
	if c.state == Unlocked {
		// A concurrent Unlock won.
		c.mu.Unlock()
		zero(seed)
		return true, nil
	}
	c.seed = seed
	c.accounts = accounts
	if c.current >= len(accounts) {
		c.current = 0
	}
	c.state = Unlocked
	c.lastErr = ""
	c.beginSessionLocked()
	c.mu.Unlock()

	klog.Session.Info().Int("accounts", len(accounts)).Msg("Wallet unlocked")
	c.refreshInBackground(true, true)
	return true, nil
}

// rederive rebuilds the account list from seed. Cached indices are kept with
// their balances; a cache that does not match the seed is discarded.
func rederive(seed []byte, cached []wallet.Account) ([]wallet.Account, error) {
	n := len(cached)
	if n == 0 {
		n = 1
	}
	out := make([]wallet.Account, 0, n)
	for i := 0; i < n; i++ {
		keys, err := wallet.DeriveKeys(seed, uint32(i))
		if err != nil {
			return nil, err
		}
		acct := keys.Account()
		keys.Zero()

		if i < len(cached) {
			prev := cached[i]
			if prev.EVMAddress != acct.EVMAddress || prev.TronAddress != acct.TronAddress {
				klog.Session.Warn().Int("index", i).Msg("Cached account does not match vault, discarding cache")
				return rederive(seed, nil)
			}
			acct = prev.Clone()
		}
		out = append(out, acct)
	}
	return out, nil
}

// Lock discards the secret. Accounts and balances stay as display cache.
func (c *Controller) Lock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Unlocked {
		return
	}
	c.endSessionLocked()
	c.state = Locked
	klog.Session.Info().Msg("Wallet locked")
}

// Reset irreversibly deletes the wallet and all cached state.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.endSessionLocked()
	if c.state == Unlocked {
		c.state = Locked
	}
	c.mu.Unlock()

	if err := c.ks.Clear(); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.state = Uninitialized
	c.accounts = nil
	c.current = 0
	c.networkID = c.fallback
	c.txs = nil
	c.lastErr = ""
	c.mu.Unlock()

	klog.Session.Info().Msg("Wallet reset")
	return nil
}

// beginSessionLocked starts a new session lifetime. Caller holds mu.
func (c *Controller) beginSessionLocked() {
	c.cancel()
	c.epoch++
	c.sessCtx, c.cancel = context.WithCancel(context.Background())
}

// endSessionLocked cancels in-flight session work and zeroes the seed.
// Caller holds mu.
func (c *Controller) endSessionLocked() {
	c.cancel()
	c.epoch++
	zero(c.seed)
	c.seed = nil
}

// fail records err as LastError and returns it.
func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
	return err
}

// ClearError resets LastError.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

// View is a consistent copy of the session state.
type View struct {
	State        State
	Accounts     []wallet.Account
	Current      int
	NetworkID    string
	Transactions []types.Transaction
	LastError    string
}

// CurrentAccount returns the active account, if any.
func (v View) CurrentAccount() (wallet.Account, bool) {
	if v.Current < 0 || v.Current >= len(v.Accounts) {
		return wallet.Account{}, false
	}
	return v.Accounts[v.Current], true
}

// TransactionsOn returns the transactions of one network, newest first.
func (v View) TransactionsOn(networkID string) []types.Transaction {
	var out []types.Transaction
	for _, tx := range v.Transactions {
		if tx.NetworkID == networkID {
			out = append(out, tx)
		}
	}
	return out
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	accounts := make([]wallet.Account, len(c.accounts))
	for i, a := range c.accounts {
		accounts[i] = a.Clone()
	}
	txs := make([]types.Transaction, len(c.txs))
	copy(txs, c.txs)
	return View{
		State:        c.state,
		Accounts:     accounts,
		Current:      c.current,
		NetworkID:    c.networkID,
		Transactions: txs,
		LastError:    c.lastErr,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Network returns the selected network.
func (c *Controller) Network() network.Network {
	c.mu.Lock()
	id := c.networkID
	c.mu.Unlock()
	n, _ := c.networks.ByID(id)
	return n
}

// WaitIdle blocks until background refreshes and confirmation waits
// started so far have finished.
func (c *Controller) WaitIdle() {
	c.bg.Wait()
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
