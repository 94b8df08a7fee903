package adapter

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/rpcclient"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// TronAPIKeyHeader carries the TronGrid API key.
const TronAPIKeyHeader = "TRON-PRO-API-KEY"

// TronFlatFeeSun is the fixed fee estimate for a plain TRX transfer.
// Bandwidth and energy are not simulated.
const TronFlatFeeSun = 1_000_000

// TronOptions configures the TRON adapter.
type TronOptions struct {
	APIKey  string
	Timeout time.Duration

	// Endpoints overrides the full-node URL per network ID.
	Endpoints map[string]string
}

// Tron is the adapter for TRON networks, speaking the full-node HTTP API.
type Tron struct {
	opts TronOptions

	mu      sync.Mutex
	clients map[string]*rpcclient.Client
}

// NewTron creates a TRON adapter.
func NewTron(opts TronOptions) *Tron {
	return &Tron{
		opts:    opts,
		clients: make(map[string]*rpcclient.Client),
	}
}

func (t *Tron) Family() types.Family { return types.FamilyTron }

func (t *Tron) client(net network.Network) *rpcclient.Client {
	endpoint := net.RPCURL
	if override, ok := t.opts.Endpoints[net.ID]; ok && override != "" {
		endpoint = override
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[endpoint]; ok {
		return c
	}
	c := rpcclient.NewWithTimeout(endpoint, t.opts.Timeout).WithHeader(TronAPIKeyHeader, t.opts.APIKey)
	t.clients[endpoint] = c
	return c
}

type tronAccount struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

// Balance returns the TRX balance. Unactivated accounts report "0".
func (t *Tron) Balance(ctx context.Context, address string, net network.Network) string {
	if !t.IsValidAddress(address) {
		return "0"
	}
	var acct tronAccount
	req := map[string]interface{}{"address": address, "visible": true}
	if err := t.client(net).PostJSON(ctx, "/wallet/getaccount", req, &acct); err != nil {
		logger := klog.WithNetwork(klog.Chain, net.ID)
		logger.Warn().Err(err).Str("address", address).Msg("Balance query failed")
		return "0"
	}
	return types.FormatUnits(big.NewInt(acct.Balance), net.Decimals)
}

// EstimateFee validates the transfer and returns the flat fee. It performs
// no I/O.
func (t *Tron) EstimateFee(_ context.Context, from, to, amount string, net network.Network) (*FeeEstimate, error) {
	if !t.IsValidAddress(from) {
		return nil, fmt.Errorf("%w: sender %q", ErrInvalidAddress, from)
	}
	if _, _, err := t.validate(to, amount, net); err != nil {
		return nil, err
	}
	price := big.NewInt(TronFlatFeeSun)
	return &FeeEstimate{
		Limit:     1,
		Price:     price,
		TotalCost: types.FormatUnits(price, net.Decimals),
	}, nil
}

func (t *Tron) validate(to, amount string, net network.Network) (types.TronAddress, int64, error) {
	addr, err := types.ParseTronAddress(to)
	if err != nil || !types.IsTronAddress(to) {
		return types.TronAddress{}, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	sun, err := parseAmount(amount, net)
	if err != nil {
		return types.TronAddress{}, 0, err
	}
	if !sun.IsInt64() {
		return types.TronAddress{}, 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, amount)
	}
	return addr, sun.Int64(), nil
}

// tronTransaction is an unsigned or signed transaction as the node
// returns and accepts it. RawData is passed back untouched.
type tronTransaction struct {
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data"`
	RawDataHex string          `json:"raw_data_hex"`
	Visible    bool            `json:"visible"`
	Signature  []string        `json:"signature,omitempty"`
	Error      string          `json:"Error,omitempty"`
}

type tronBroadcastResult struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Send builds the transfer on the node, signs its txID locally and
// broadcasts it. The node's answer is final: the handle is settled.
func (t *Tron) Send(ctx context.Context, key *crypto.PrivateKey, to, amount string, net network.Network) (*Handle, error) {
	toAddr, sun, err := t.validate(to, amount, net)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("nil signing key")
	}
	from := wallet.TronAddress(key)
	c := t.client(net)
	logger := klog.WithNetwork(klog.Chain, net.ID)

	var tx tronTransaction
	create := map[string]interface{}{
		"owner_address": from.String(),
		"to_address":    toAddr.String(),
		"amount":        sun,
		"visible":       true,
	}
	if err := c.PostJSON(ctx, "/wallet/createtransaction", create, &tx); err != nil {
		return nil, fmt.Errorf("%w: create transaction: %v", ErrBroadcast, err)
	}
	if tx.Error != "" {
		return nil, fmt.Errorf("%w: create transaction: %s", ErrBroadcast, tx.Error)
	}

	txID, err := tronTxID(tx.RawDataHex)
	if err != nil {
		return nil, err
	}
	if tx.TxID != "" && tx.TxID != hex.EncodeToString(txID) {
		return nil, fmt.Errorf("node txID %s does not match raw data", tx.TxID)
	}
	sig, err := key.SignRecoverable(txID)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	tx.TxID = hex.EncodeToString(txID)
	tx.Signature = []string{hex.EncodeToString(sig)}

	var res tronBroadcastResult
	if err := c.PostJSON(ctx, "/wallet/broadcasttransaction", tx, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcast, err)
	}

	h := &Handle{
		Hash:    tx.TxID,
		From:    from.String(),
		To:      toAddr.String(),
		Amount:  amount,
		Settled: true,
		Status:  types.StatusConfirmed,
	}
	if !res.Result {
		h.Status = types.StatusFailed
		logger.Warn().
			Str("hash", h.Hash).
			Str("code", res.Code).
			Str("message", decodeTronMessage(res.Message)).
			Msg("Transaction rejected")
		return h, nil
	}
	logger.Info().Str("hash", h.Hash).Msg("Transaction broadcast")
	return h, nil
}

// tronTxID is SHA-256 over the protobuf-encoded raw data.
func tronTxID(rawDataHex string) ([]byte, error) {
	raw, err := hex.DecodeString(rawDataHex)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("invalid raw_data_hex from node")
	}
	return crypto.SHA256(raw), nil
}

// decodeTronMessage turns the node's hex-encoded error text into a string.
func decodeTronMessage(msg string) string {
	b, err := hex.DecodeString(msg)
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return msg
	}
	return string(b)
}

// IsValidAddress accepts only the Base58Check "T..." form.
func (t *Tron) IsValidAddress(address string) bool {
	return types.IsTronAddress(address)
}

func (t *Tron) FormatAddress(address string) string {
	return types.FormatAddress(address, displayChars)
}
