package network

import (
	"fmt"
)

// Registry is an immutable lookup table of networks.
type Registry struct {
	list   []Network
	byID   map[string]int
	byChan map[uint64]int
}

// Default is the registry of every built-in network.
var Default = MustNewRegistry(builtin)

// NewRegistry builds a registry. IDs must be unique, and so must non-zero
// chain IDs.
func NewRegistry(nets []Network) (*Registry, error) {
	r := &Registry{
		list:   make([]Network, len(nets)),
		byID:   make(map[string]int, len(nets)),
		byChan: make(map[uint64]int, len(nets)),
	}
	copy(r.list, nets)
	for i, n := range r.list {
		if n.ID == "" {
			return nil, fmt.Errorf("network %d: empty id", i)
		}
		if _, dup := r.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate network id %q", n.ID)
		}
		r.byID[n.ID] = i
		if n.ChainID == 0 {
			continue
		}
		if prev, dup := r.byChan[n.ChainID]; dup {
			return nil, fmt.Errorf("chain id %d used by %q and %q", n.ChainID, r.list[prev].ID, n.ID)
		}
		r.byChan[n.ChainID] = i
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on a malformed table.
func MustNewRegistry(nets []Network) *Registry {
	r, err := NewRegistry(nets)
	if err != nil {
		panic(err)
	}
	return r
}

// ByID looks a network up by identifier.
func (r *Registry) ByID(id string) (Network, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Network{}, false
	}
	return r.list[i], true
}

// ByChainID looks an EVM network up by its numeric chain ID.
func (r *Registry) ByChainID(chainID uint64) (Network, bool) {
	if chainID == 0 {
		return Network{}, false
	}
	i, ok := r.byChan[chainID]
	if !ok {
		return Network{}, false
	}
	return r.list[i], true
}

// All returns every network in table order.
func (r *Registry) All() []Network {
	out := make([]Network, len(r.list))
	copy(out, r.list)
	return out
}

// Mainnets returns the production networks.
func (r *Registry) Mainnets() []Network {
	return r.filter(func(n Network) bool { return !n.Testnet })
}

// Testnets returns the test networks.
func (r *Registry) Testnets() []Network {
	return r.filter(func(n Network) bool { return n.Testnet })
}

func (r *Registry) filter(keep func(Network) bool) []Network {
	var out []Network
	for _, n := range r.list {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// ExplorerURLForTx returns the explorer link of a transaction on the
// network with the given ID, or "" if the network is unknown.
func (r *Registry) ExplorerURLForTx(networkID, hash string) string {
	n, ok := r.ByID(networkID)
	if !ok {
		return ""
	}
	return n.TxURL(hash)
}

// ExplorerURLForAddress returns the explorer link of an address on the
// network with the given ID, or "" if the network is unknown.
func (r *Registry) ExplorerURLForAddress(networkID, address string) string {
	n, ok := r.ByID(networkID)
	if !ok {
		return ""
	}
	return n.AddressURL(address)
}
