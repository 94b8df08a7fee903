// Package adapter implements per-chain-family balance, fee and send
// operations behind one interface.
//
// Read paths (Balance) swallow transport failures and report "0". Write
// paths (EstimateFee, Send) return every failure. Structural validation
// happens before any I/O.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

var (
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrBroadcast          = errors.New("broadcast failed")
	ErrUnsupportedNetwork = errors.New("unsupported network")
)

// displayChars is how many characters FormatAddress keeps on each side.
const displayChars = 6

// Adapter is the capability set every chain family provides.
type Adapter interface {
	Family() types.Family

	// Balance returns the native balance as a decimal string. Transport
	// failures yield "0", so a zero result may be stale.
	Balance(ctx context.Context, address string, net network.Network) string

	EstimateFee(ctx context.Context, from, to, amount string, net network.Network) (*FeeEstimate, error)

	// Send builds, signs and broadcasts a native transfer. The key is only
	// used for the duration of the call.
	Send(ctx context.Context, key *crypto.PrivateKey, to, amount string, net network.Network) (*Handle, error)

	IsValidAddress(address string) bool
	FormatAddress(address string) string
}

// FeeEstimate is the expected cost of a transfer.
type FeeEstimate struct {
	Limit     uint64   // Gas limit (EVM) or 1 (TRON flat fee).
	Price     *big.Int // Base units per limit unit.
	TotalCost string   // Limit * Price in native units.
}

// Receipt is the final outcome of a broadcast transaction.
type Receipt struct {
	Hash        string
	Status      types.Status
	BlockNumber uint64
	GasUsed     uint64
	GasPrice    *big.Int
}

// Handle tracks a broadcast transaction.
type Handle struct {
	Hash   string
	From   string
	To     string
	Amount string

	// Settled is true when Status is already final at broadcast.
	Settled bool
	Status  types.Status

	wait func(ctx context.Context) (*Receipt, error)
}

// NewPendingHandle returns a handle whose final status is resolved by wait.
func NewPendingHandle(hash, from, to, amount string, wait func(ctx context.Context) (*Receipt, error)) *Handle {
	return &Handle{
		Hash:   hash,
		From:   from,
		To:     to,
		Amount: amount,
		Status: types.StatusPending,
		wait:   wait,
	}
}

// Wait blocks until the transaction reaches a final status or ctx is done.
// Settled handles return immediately.
func (h *Handle) Wait(ctx context.Context) (*Receipt, error) {
	if h.Settled || h.wait == nil {
		return &Receipt{Hash: h.Hash, Status: h.Status}, nil
	}
	return h.wait(ctx)
}

// Set selects an adapter by network family.
type Set struct {
	byFamily map[types.Family]Adapter
}

// NewSet registers adapters. A later adapter for the same family wins.
func NewSet(adapters ...Adapter) *Set {
	s := &Set{byFamily: make(map[types.Family]Adapter, len(adapters))}
	for _, a := range adapters {
		s.byFamily[a.Family()] = a
	}
	return s
}

// For returns the adapter serving net.
func (s *Set) For(net network.Network) (Adapter, error) {
	a, ok := s.byFamily[net.Family]
	if !ok {
		return nil, fmt.Errorf("%w: %s (family %q)", ErrUnsupportedNetwork, net.ID, net.Family)
	}
	return a, nil
}

// parseAmount converts a user-entered amount into base units of net's
// native asset.
func parseAmount(amount string, net network.Network) (*big.Int, error) {
	units, err := types.ParseAmount(amount, net.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return units, nil
}
