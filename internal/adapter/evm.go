package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// DefaultReceiptPoll is the interval between receipt lookups.
const DefaultReceiptPoll = 4 * time.Second

// EVMBackend is the subset of an Ethereum JSON-RPC client the adapter uses.
// *ethclient.Client satisfies it.
type EVMBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	Close()
}

// Dialer opens a backend for an RPC endpoint.
type Dialer func(ctx context.Context, rpcURL string) (EVMBackend, error)

// DialEthclient is the production Dialer.
func DialEthclient(ctx context.Context, rpcURL string) (EVMBackend, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// EVM is the adapter for Ethereum-compatible networks.
type EVM struct {
	dial        Dialer
	receiptPoll time.Duration

	mu       sync.Mutex
	backends map[string]EVMBackend
}

// NewEVM creates an EVM adapter. A nil dial uses DialEthclient.
func NewEVM(dial Dialer) *EVM {
	if dial == nil {
		dial = DialEthclient
	}
	return &EVM{
		dial:        dial,
		receiptPoll: DefaultReceiptPoll,
		backends:    make(map[string]EVMBackend),
	}
}

// SetReceiptPoll changes the confirmation polling interval.
func (e *EVM) SetReceiptPoll(d time.Duration) {
	if d > 0 {
		e.receiptPoll = d
	}
}

// Close releases every cached backend.
func (e *EVM) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for url, b := range e.backends {
		b.Close()
		delete(e.backends, url)
	}
}

func (e *EVM) Family() types.Family { return types.FamilyEVM }

func (e *EVM) backend(ctx context.Context, net network.Network) (EVMBackend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.backends[net.RPCURL]; ok {
		return b, nil
	}
	b, err := e.dial(ctx, net.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", net.ID, err)
	}
	e.backends[net.RPCURL] = b
	return b, nil
}

// Balance returns the native balance in ether-style units.
func (e *EVM) Balance(ctx context.Context, address string, net network.Network) string {
	if !e.IsValidAddress(address) {
		return "0"
	}
	logger := klog.WithNetwork(klog.Chain, net.ID)

	b, err := e.backend(ctx, net)
	if err != nil {
		logger.Warn().Err(err).Msg("Balance unavailable")
		return "0"
	}
	wei, err := b.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		logger.Warn().Err(err).Str("address", address).Msg("Balance query failed")
		return "0"
	}
	return types.FormatUnits(wei, net.Decimals)
}

// EstimateFee queries the gas limit and the current fee level.
func (e *EVM) EstimateFee(ctx context.Context, from, to, amount string, net network.Network) (*FeeEstimate, error) {
	if !e.IsValidAddress(from) {
		return nil, fmt.Errorf("%w: sender %q", ErrInvalidAddress, from)
	}
	if !e.IsValidAddress(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	value, err := parseAmount(amount, net)
	if err != nil {
		return nil, err
	}

	b, err := e.backend(ctx, net)
	if err != nil {
		return nil, err
	}
	fromAddr, toAddr := common.HexToAddress(from), common.HexToAddress(to)
	limit, err := b.EstimateGas(ctx, ethereum.CallMsg{From: fromAddr, To: &toAddr, Value: value})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	fees, err := e.feeLevel(ctx, b)
	if err != nil {
		return nil, err
	}
	price := fees.maxPrice()
	total := new(big.Int).Mul(new(big.Int).SetUint64(limit), price)
	return &FeeEstimate{
		Limit:     limit,
		Price:     price,
		TotalCost: types.FormatUnits(total, net.Decimals),
	}, nil
}

// feeLevel holds either a dynamic fee pair or a legacy gas price.
type feeLevel struct {
	tip      *big.Int // Nil for legacy networks.
	feeCap   *big.Int
	gasPrice *big.Int
}

func (f feeLevel) dynamic() bool { return f.tip != nil }

func (f feeLevel) maxPrice() *big.Int {
	if f.dynamic() {
		return f.feeCap
	}
	return f.gasPrice
}

// feeLevel uses EIP-1559 pricing when the head block carries a base fee:
// feeCap = 2*baseFee + tip.
func (e *EVM) feeLevel(ctx context.Context, b EVMBackend) (feeLevel, error) {
	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return feeLevel{}, fmt.Errorf("head header: %w", err)
	}
	if head.BaseFee != nil {
		tip, err := b.SuggestGasTipCap(ctx)
		if err != nil {
			return feeLevel{}, fmt.Errorf("suggest tip: %w", err)
		}
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)
		return feeLevel{tip: tip, feeCap: feeCap}, nil
	}
	price, err := b.SuggestGasPrice(ctx)
	if err != nil {
		return feeLevel{}, fmt.Errorf("suggest gas price: %w", err)
	}
	return feeLevel{gasPrice: price}, nil
}

// Send signs and broadcasts a transfer. The returned handle waits for the
// receipt.
func (e *EVM) Send(ctx context.Context, key *crypto.PrivateKey, to, amount string, net network.Network) (*Handle, error) {
	if !e.IsValidAddress(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	value, err := parseAmount(amount, net)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("nil signing key")
	}

	b, err := e.backend(ctx, net)
	if err != nil {
		return nil, err
	}

	priv, err := key.ToECDSA()
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	defer priv.D.SetInt64(0)

	from := wallet.EVMAddress(key)
	toAddr := common.HexToAddress(to)

	nonce, err := b.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gas, err := b.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &toAddr, Value: value})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	fees, err := e.feeLevel(ctx, b)
	if err != nil {
		return nil, err
	}

	chainID := new(big.Int).SetUint64(net.ChainID)
	var txData gethtypes.TxData
	if fees.dynamic() {
		txData = &gethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: fees.tip,
			GasFeeCap: fees.feeCap,
			Gas:       gas,
			To:        &toAddr,
			Value:     value,
		}
	} else {
		txData = &gethtypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: fees.gasPrice,
			Gas:      gas,
			To:       &toAddr,
			Value:    value,
		}
	}

	signed, err := gethtypes.SignNewTx(priv, gethtypes.LatestSignerForChainID(chainID), txData)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := b.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcast, err)
	}

	hash := signed.Hash()
	logger := klog.WithNetwork(klog.Chain, net.ID)
	logger.Info().
		Str("hash", hash.Hex()).
		Uint64("nonce", nonce).
		Msg("Transaction broadcast")

	return NewPendingHandle(hash.Hex(), from.Hex(), toAddr.Hex(), amount, func(ctx context.Context) (*Receipt, error) {
		return e.waitReceipt(ctx, b, hash, net)
	}), nil
}

// waitReceipt polls until the transaction is mined or ctx is done.
// Lookup errors other than not-found are logged and retried.
func (e *EVM) waitReceipt(ctx context.Context, b EVMBackend, hash common.Hash, net network.Network) (*Receipt, error) {
	ticker := time.NewTicker(e.receiptPoll)
	defer ticker.Stop()

	logger := klog.WithNetwork(klog.Chain, net.ID)
	for {
		r, err := b.TransactionReceipt(ctx, hash)
		if err == nil && r != nil {
			status := types.StatusFailed
			if r.Status == gethtypes.ReceiptStatusSuccessful {
				status = types.StatusConfirmed
			}
			rec := &Receipt{
				Hash:     hash.Hex(),
				Status:   status,
				GasUsed:  r.GasUsed,
				GasPrice: r.EffectiveGasPrice,
			}
			if r.BlockNumber != nil {
				rec.BlockNumber = r.BlockNumber.Uint64()
			}
			return rec, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			logger.Debug().Err(err).Str("hash", hash.Hex()).Msg("Receipt lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// IsValidAddress accepts 0x-prefixed 20-byte hex. Mixed-case input must
// carry a valid EIP-55 checksum.
func (e *EVM) IsValidAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return false
	}
	body := address[2:]
	if strings.ToLower(body) == body || strings.ToUpper(body) == body {
		return true
	}
	return common.HexToAddress(address).Hex() == address
}

func (e *EVM) FormatAddress(address string) string {
	return types.FormatAddress(address, displayChars)
}
