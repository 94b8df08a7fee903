package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/nova-wallet/internal/adapter"
	"github.com/Klingon-tech/nova-wallet/internal/history"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/storage"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

const (
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassword   = "Abcd1234"
	testEVMAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testRecipient  = "0x000000000000000000000000000000000000dEaD"
)

// testNow is the clock of every test controller.
var testNow = time.UnixMilli(1_700_000_000_000)

func fastParams() wallet.EncryptionParams {
	return wallet.EncryptionParams{
		KDF:         wallet.KDFArgon2id,
		Memory:      wallet.MinArgon2Memory,
		Iterations:  1,
		Parallelism: 1,
	}
}

// fakeAdapter is an in-memory chain. EVM sends stay pending until a receipt
// is pushed; TRON sends settle with tronStatus.
type fakeAdapter struct {
	family types.Family

	mu           sync.Mutex
	balances     map[string]string // address -> balance
	fee          string
	sendErr      error
	tronStatus   types.Status
	balanceGate  chan struct{}
	balanceStart chan struct{}
	sendGate     chan struct{}
	sendStart    chan struct{}
	lastFrom     string

	receipts chan *adapter.Receipt

	balanceCalls atomic.Int32
	feeCalls     atomic.Int32
	sendCalls    atomic.Int32
}

func newFakeAdapter(family types.Family) *fakeAdapter {
	return &fakeAdapter{
		family:     family,
		balances:   make(map[string]string),
		fee:        "0",
		tronStatus: types.StatusConfirmed,
		receipts:   make(chan *adapter.Receipt, 4),
	}
}

func (f *fakeAdapter) setBalance(address, balance string) {
	f.mu.Lock()
	f.balances[address] = balance
	f.mu.Unlock()
}

func (f *fakeAdapter) setFee(fee string) {
	f.mu.Lock()
	f.fee = fee
	f.mu.Unlock()
}

func (f *fakeAdapter) from() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFrom
}

func (f *fakeAdapter) Family() types.Family { return f.family }

func (f *fakeAdapter) Balance(ctx context.Context, address string, net network.Network) string {
	f.balanceCalls.Add(1)
	f.mu.Lock()
	gate, started := f.balanceGate, f.balanceStart
	f.mu.Unlock()
	if gate != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[address]; ok {
		return b
	}
	return "0"
}

func (f *fakeAdapter) EstimateFee(ctx context.Context, from, to, amount string, net network.Network) (*adapter.FeeEstimate, error) {
	f.feeCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return &adapter.FeeEstimate{Limit: 21000, Price: big.NewInt(1), TotalCost: f.fee}, nil
}

func (f *fakeAdapter) Send(ctx context.Context, key *crypto.PrivateKey, to, amount string, net network.Network) (*adapter.Handle, error) {
	n := f.sendCalls.Add(1)
	f.mu.Lock()
	gate, started, sendErr, status := f.sendGate, f.sendStart, f.sendErr, f.tronStatus
	f.mu.Unlock()
	if gate != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if sendErr != nil {
		return nil, sendErr
	}

	hash := fmt.Sprintf("0x%064x", n)
	if f.family == types.FamilyTron {
		from := wallet.TronAddress(key).String()
		f.mu.Lock()
		f.lastFrom = from
		f.mu.Unlock()
		return &adapter.Handle{
			Hash:    strings.TrimPrefix(hash, "0x"),
			From:    from,
			To:      to,
			Amount:  amount,
			Settled: true,
			Status:  status,
		}, nil
	}

	from := wallet.EVMAddress(key).Hex()
	f.mu.Lock()
	f.lastFrom = from
	f.mu.Unlock()
	return adapter.NewPendingHandle(hash, from, to, amount, func(ctx context.Context) (*adapter.Receipt, error) {
		select {
		case r := <-f.receipts:
			r.Hash = hash
			return r, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}), nil
}

func (f *fakeAdapter) IsValidAddress(address string) bool {
	if f.family == types.FamilyTron {
		return types.IsTronAddress(address)
	}
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

func (f *fakeAdapter) FormatAddress(address string) string {
	return types.FormatAddress(address, 6)
}

// fakeSource serves a fixed explorer history per network.
type fakeSource struct {
	mu    sync.Mutex
	txs   []types.Transaction
	calls atomic.Int32
}

func (s *fakeSource) set(txs ...types.Transaction) {
	s.mu.Lock()
	s.txs = txs
	s.mu.Unlock()
}

func (s *fakeSource) Fetch(ctx context.Context, address string, net network.Network) ([]types.Transaction, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Transaction
	for _, tx := range s.txs {
		if tx.NetworkID == net.ID {
			out = append(out, tx)
		}
	}
	return out, nil
}

var errDiskGone = errors.New("disk gone")

// faultyDB wraps a store and fails iteration or writes on demand.
type faultyDB struct {
	storage.DB
	failIter atomic.Bool
	failPut  atomic.Bool
}

func (d *faultyDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	if d.failIter.Load() {
		return errDiskGone
	}
	return d.DB.ForEach(prefix, fn)
}

func (d *faultyDB) Put(key, value []byte) error {
	if d.failPut.Load() {
		return errDiskGone
	}
	return d.DB.Put(key, value)
}

type harness struct {
	c        *Controller
	db       storage.DB
	evm      *fakeAdapter
	tron     *fakeAdapter
	evmHist  *fakeSource
	tronHist *fakeSource
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, storage.NewMemory(), "")
}

func newHarnessWith(t *testing.T, db storage.DB, defaultNetwork string) *harness {
	t.Helper()
	h := &harness{
		db:       db,
		evm:      newFakeAdapter(types.FamilyEVM),
		tron:     newFakeAdapter(types.FamilyTron),
		evmHist:  &fakeSource{},
		tronHist: &fakeSource{},
	}
	c, err := New(Options{
		Store:          db,
		Adapters:       adapter.NewSet(h.evm, h.tron),
		History:        history.NewReconciler(h.evmHist, h.tronHist),
		DefaultNetwork: defaultNetwork,
		Params:         fastParams(),
		Now:            func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	h.c = c
	return h
}

// importWallet imports the test mnemonic and waits for the initial refresh.
func (h *harness) importWallet(t *testing.T) {
	t.Helper()
	if err := h.c.Import(context.Background(), testMnemonic, testPassword); err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	h.c.WaitIdle()
}

func (h *harness) account(t *testing.T) wallet.Account {
	t.Helper()
	acct, ok := h.c.Snapshot().CurrentAccount()
	if !ok {
		t.Fatal("no current account")
	}
	return acct
}

func testAccount(t *testing.T, index uint32) wallet.Account {
	t.Helper()
	acct, err := wallet.DeriveAccount(testMnemonic, index)
	if err != nil {
		t.Fatalf("DeriveAccount(%d) error: %v", index, err)
	}
	return acct
}
