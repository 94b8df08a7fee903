// Package history fetches chain-confirmed transactions from explorer APIs
// and reconciles them with locally tracked ones.
package history

import (
	"context"
	"strings"

	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// DefaultPageSize is how many records one fetch asks for.
const DefaultPageSize = 50

// Source fetches one page of transactions for an address on one network.
type Source interface {
	Fetch(ctx context.Context, address string, net network.Network) ([]types.Transaction, error)
}

// direction classifies a record from the point of view of self. EVM
// addresses compare case-insensitively; TRON addresses are compared in
// Base58 form, so callers convert hex records first.
func direction(family types.Family, from, to, self string) types.Direction {
	eq := func(a, b string) bool { return a == b }
	if family == types.FamilyEVM {
		eq = strings.EqualFold
	}
	switch {
	case self == "":
		return types.DirectionOther
	case eq(from, self):
		return types.DirectionSend
	case eq(to, self):
		return types.DirectionReceive
	default:
		return types.DirectionOther
	}
}
