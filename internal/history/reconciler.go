package history

import (
	"context"

	"golang.org/x/sync/errgroup"

	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// maxParallelFetches bounds concurrent explorer requests in FetchAll.
const maxParallelFetches = 4

// Reconciler routes fetches to the source of each chain family.
type Reconciler struct {
	sources map[types.Family]Source
}

// NewReconciler creates a reconciler. A nil source disables its family.
func NewReconciler(evm, tron Source) *Reconciler {
	r := &Reconciler{sources: make(map[types.Family]Source, 2)}
	if evm != nil {
		r.sources[types.FamilyEVM] = evm
	}
	if tron != nil {
		r.sources[types.FamilyTron] = tron
	}
	return r
}

// Fetch returns the chain-confirmed transactions of the account on net,
// using evmAddr or tronAddr depending on the chain family. Transport
// failures are logged and yield an empty result.
func (r *Reconciler) Fetch(ctx context.Context, evmAddr string, net network.Network, tronAddr string) []types.Transaction {
	src, ok := r.sources[net.Family]
	if !ok {
		return nil
	}
	address := evmAddr
	if net.IsTron() {
		address = tronAddr
	}
	if address == "" {
		return nil
	}

	txs, err := src.Fetch(ctx, address, net)
	if err != nil {
		logger := klog.WithNetwork(klog.History, net.ID)
		logger.Warn().Err(err).Msg("History fetch failed")
		return nil
	}
	return txs
}

// FetchAll fetches every network concurrently and returns the union,
// newest first.
func (r *Reconciler) FetchAll(ctx context.Context, evmAddr, tronAddr string, nets []network.Network) []types.Transaction {
	results := make([][]types.Transaction, len(nets))

	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for i, net := range nets {
		g.Go(func() error {
			results[i] = r.Fetch(ctx, evmAddr, net, tronAddr)
			return nil
		})
	}
	g.Wait()

	var all []types.Transaction
	for _, txs := range results {
		all = append(all, txs...)
	}
	types.SortNewestFirst(all)
	return all
}
