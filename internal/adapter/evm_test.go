package adapter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

const testRecipient = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

// fakeBackend is an in-memory EVMBackend.
type fakeBackend struct {
	mu sync.Mutex

	balance    *big.Int
	balanceErr error
	baseFee    *big.Int // Nil means a pre-London chain.
	tip        *big.Int
	gasPrice   *big.Int
	gas        uint64
	nonce      uint64
	sendErr    error

	sent         []*gethtypes.Transaction
	receipt      *gethtypes.Receipt
	receiptAfter int // Lookups answering NotFound before the receipt.
	lookups      int
	calls        int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		balance:  big.NewInt(0),
		baseFee:  big.NewInt(10_000_000_000),
		tip:      big.NewInt(1_000_000_000),
		gasPrice: big.NewInt(5_000_000_000),
		gas:      21000,
		nonce:    7,
	}
}

func (f *fakeBackend) touch() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.touch()
	return f.balance, f.balanceErr
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.touch()
	return f.nonce, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.touch()
	return f.gas, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.touch()
	return f.gasPrice, nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	f.touch()
	return f.tip, nil
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	f.touch()
	return &gethtypes.Header{Number: big.NewInt(100), BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	f.touch()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.receipt == nil || f.lookups <= f.receiptAfter {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func (f *fakeBackend) Close() {}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testEVM(t *testing.T, b *fakeBackend) (*EVM, network.Network) {
	t.Helper()
	e := NewEVM(func(ctx context.Context, url string) (EVMBackend, error) {
		return b, nil
	})
	e.SetReceiptPoll(time.Millisecond)
	net, ok := network.Default.ByID("ethereum")
	if !ok {
		t.Fatal("ethereum network missing")
	}
	return e, net
}

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	raw := make([]byte, 32)
	raw[31] = 1
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	return key
}

func TestEVM_IsValidAddress(t *testing.T) {
	e := NewEVM(nil)
	tests := []struct {
		addr string
		want bool
	}{
		{testRecipient, true},
		{"0x9858effd232b4033e47d90003d41ec34ecaeda94", true},
		{"0x9858EFFD232B4033E47D90003D41EC34ECAEDA94", true},
		{"0x9858efFD232B4033E47d90003D41EC34EcaEda94", false}, // bad checksum
		{"9858effd232b4033e47d90003d41ec34ecaeda94", false},
		{"0x1234", false},
		{"", false},
		{"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", false},
	}
	for _, tt := range tests {
		if got := e.IsValidAddress(tt.addr); got != tt.want {
			t.Errorf("IsValidAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestEVM_Balance(t *testing.T) {
	b := newFakeBackend()
	b.balance, _ = new(big.Int).SetString("1500000000000000000", 10)
	e, net := testEVM(t, b)

	if got := e.Balance(context.Background(), testRecipient, net); got != "1.5" {
		t.Errorf("Balance() = %s, want 1.5", got)
	}
}

func TestEVM_BalanceFallsBackToZero(t *testing.T) {
	b := newFakeBackend()
	b.balanceErr = errors.New("connection refused")
	e, net := testEVM(t, b)

	if got := e.Balance(context.Background(), testRecipient, net); got != "0" {
		t.Errorf("Balance() = %s, want 0 on transport failure", got)
	}

	dialFail := NewEVM(func(ctx context.Context, url string) (EVMBackend, error) {
		return nil, errors.New("dial failed")
	})
	if got := dialFail.Balance(context.Background(), testRecipient, net); got != "0" {
		t.Errorf("Balance() = %s, want 0 on dial failure", got)
	}
}

func TestEVM_EstimateFee(t *testing.T) {
	b := newFakeBackend()
	e, net := testEVM(t, b)

	fee, err := e.EstimateFee(context.Background(), testRecipient, testRecipient, "0.1", net)
	if err != nil {
		t.Fatalf("EstimateFee() error: %v", err)
	}
	// feeCap = 2*10 gwei + 1 gwei = 21 gwei; 21000 * 21 gwei = 0.000441 ETH.
	if fee.Limit != 21000 {
		t.Errorf("Limit = %d, want 21000", fee.Limit)
	}
	if fee.Price.Cmp(big.NewInt(21_000_000_000)) != 0 {
		t.Errorf("Price = %s, want 21 gwei", fee.Price)
	}
	if fee.TotalCost != "0.000441" {
		t.Errorf("TotalCost = %s, want 0.000441", fee.TotalCost)
	}
}

func TestEVM_EstimateFeeLegacy(t *testing.T) {
	b := newFakeBackend()
	b.baseFee = nil
	e, net := testEVM(t, b)

	fee, err := e.EstimateFee(context.Background(), testRecipient, testRecipient, "1", net)
	if err != nil {
		t.Fatalf("EstimateFee() error: %v", err)
	}
	if fee.Price.Cmp(b.gasPrice) != 0 {
		t.Errorf("Price = %s, want legacy gas price %s", fee.Price, b.gasPrice)
	}
}

func TestEVM_ValidationBeforeIO(t *testing.T) {
	b := newFakeBackend()
	e, net := testEVM(t, b)
	ctx := context.Background()

	tests := []struct {
		name   string
		to     string
		amount string
		want   error
	}{
		{"bad address", "0xnope", "1", ErrInvalidAddress},
		{"tron address", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", "1", ErrInvalidAddress},
		{"zero amount", testRecipient, "0", ErrInvalidAmount},
		{"negative amount", testRecipient, "-1", ErrInvalidAmount},
		{"garbage amount", testRecipient, "abc", ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.EstimateFee(ctx, testRecipient, tt.to, tt.amount, net); !errors.Is(err, tt.want) {
				t.Errorf("EstimateFee() error = %v, want %v", err, tt.want)
			}
			if _, err := e.Send(ctx, testKey(t), tt.to, tt.amount, net); !errors.Is(err, tt.want) {
				t.Errorf("Send() error = %v, want %v", err, tt.want)
			}
		})
	}
	if n := b.callCount(); n != 0 {
		t.Errorf("backend called %d times on invalid input", n)
	}
}

func TestEVM_SendDynamicFee(t *testing.T) {
	b := newFakeBackend()
	b.receipt = &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful, GasUsed: 21000, BlockNumber: big.NewInt(101)}
	b.receiptAfter = 2
	e, net := testEVM(t, b)
	key := testKey(t)

	h, err := e.Send(context.Background(), key, testRecipient, "0.5", net)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if h.Settled || h.Status != types.StatusPending {
		t.Errorf("EVM handle should start pending, got settled=%v status=%s", h.Settled, h.Status)
	}
	if len(b.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(b.sent))
	}

	tx := b.sent[0]
	if tx.Type() != gethtypes.DynamicFeeTxType {
		t.Errorf("tx type = %d, want dynamic fee", tx.Type())
	}
	if tx.Nonce() != 7 || tx.Gas() != 21000 {
		t.Errorf("nonce/gas = %d/%d", tx.Nonce(), tx.Gas())
	}
	if tx.ChainId().Uint64() != 1 {
		t.Errorf("chain id = %s, want 1", tx.ChainId())
	}
	want, _ := new(big.Int).SetString("500000000000000000", 10)
	if tx.Value().Cmp(want) != 0 {
		t.Errorf("value = %s, want %s", tx.Value(), want)
	}
	if h.Hash != tx.Hash().Hex() {
		t.Errorf("handle hash %s != tx hash %s", h.Hash, tx.Hash().Hex())
	}

	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		t.Fatalf("Sender() error: %v", err)
	}
	if sender != wallet.EVMAddress(key) || h.From != sender.Hex() {
		t.Errorf("sender = %s, want %s", sender.Hex(), wallet.EVMAddress(key).Hex())
	}

	r, err := h.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if r.Status != types.StatusConfirmed || r.BlockNumber != 101 {
		t.Errorf("receipt = %+v", r)
	}
}

func TestEVM_SendLegacy(t *testing.T) {
	b := newFakeBackend()
	b.baseFee = nil
	e, net := testEVM(t, b)

	if _, err := e.Send(context.Background(), testKey(t), testRecipient, "1", net); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	tx := b.sent[0]
	if tx.Type() != gethtypes.LegacyTxType {
		t.Errorf("tx type = %d, want legacy", tx.Type())
	}
	if tx.GasPrice().Cmp(b.gasPrice) != 0 {
		t.Errorf("gas price = %s, want %s", tx.GasPrice(), b.gasPrice)
	}
}

func TestEVM_SendBroadcastError(t *testing.T) {
	b := newFakeBackend()
	b.sendErr = errors.New("nonce too low")
	e, net := testEVM(t, b)

	_, err := e.Send(context.Background(), testKey(t), testRecipient, "1", net)
	if !errors.Is(err, ErrBroadcast) {
		t.Errorf("Send() error = %v, want ErrBroadcast", err)
	}
}

func TestEVM_WaitFailedReceipt(t *testing.T) {
	b := newFakeBackend()
	b.receipt = &gethtypes.Receipt{Status: gethtypes.ReceiptStatusFailed}
	e, net := testEVM(t, b)

	h, err := e.Send(context.Background(), testKey(t), testRecipient, "1", net)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	r, err := h.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if r.Status != types.StatusFailed {
		t.Errorf("status = %s, want failed", r.Status)
	}
}

func TestEVM_WaitCanceled(t *testing.T) {
	b := newFakeBackend()
	e, net := testEVM(t, b)

	h, err := e.Send(context.Background(), testKey(t), testRecipient, "1", net)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestEVM_FormatAddress(t *testing.T) {
	if got := NewEVM(nil).FormatAddress(testRecipient); got != "0x9858...aEda94" {
		t.Errorf("FormatAddress() = %s", got)
	}
}

func TestSet_For(t *testing.T) {
	s := NewSet(NewEVM(nil), NewTron(TronOptions{}))

	eth, _ := network.Default.ByID("ethereum")
	a, err := s.For(eth)
	if err != nil || a.Family() != types.FamilyEVM {
		t.Errorf("For(ethereum) = %v, %v", a, err)
	}
	tron, _ := network.Default.ByID("tron")
	a, err = s.For(tron)
	if err != nil || a.Family() != types.FamilyTron {
		t.Errorf("For(tron) = %v, %v", a, err)
	}
	if _, err := s.For(network.Network{ID: "x", Family: "utxo"}); !errors.Is(err, ErrUnsupportedNetwork) {
		t.Errorf("For(unknown) error = %v, want ErrUnsupportedNetwork", err)
	}
}

func TestHandle_WaitSettled(t *testing.T) {
	h := &Handle{Hash: "abc", Settled: true, Status: types.StatusFailed}
	r, err := h.Wait(context.Background())
	if err != nil || r.Status != types.StatusFailed || r.Hash != "abc" {
		t.Errorf("Wait() = %+v, %v", r, err)
	}
}
