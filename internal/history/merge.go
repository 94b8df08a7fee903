package history

import (
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// Merge reconciles locally tracked transactions with a fetched snapshot of
// networkID.
//
// Local records that are still pending on networkID are retained. Each
// fetched record replaces the retained record with the same key, or is
// appended. The result holds each key once and is sorted newest first.
// Merge does not modify its inputs and is idempotent.
func Merge(local, fetched []types.Transaction, networkID string) []types.Transaction {
	out := make([]types.Transaction, 0, len(local)+len(fetched))
	pos := make(map[string]int, len(local)+len(fetched))

	for _, tx := range local {
		if tx.Status != types.StatusPending || tx.NetworkID != networkID {
			continue
		}
		if i, dup := pos[tx.Key()]; dup {
			out[i] = tx
			continue
		}
		pos[tx.Key()] = len(out)
		out = append(out, tx)
	}

	for _, tx := range fetched {
		if i, ok := pos[tx.Key()]; ok {
			out[i] = tx
			continue
		}
		pos[tx.Key()] = len(out)
		out = append(out, tx)
	}

	types.SortNewestFirst(out)
	return out
}

// MergeAll applies Merge to each of networkIDs, taking that network's
// records out of a multi-network fetch. Local records on other networks are
// not part of the result.
func MergeAll(local, fetched []types.Transaction, networkIDs []string) []types.Transaction {
	byNet := make(map[string][]types.Transaction, len(networkIDs))
	for _, tx := range fetched {
		byNet[tx.NetworkID] = append(byNet[tx.NetworkID], tx)
	}

	var out []types.Transaction
	for _, id := range networkIDs {
		out = append(out, Merge(local, byNet[id], id)...)
	}
	types.SortNewestFirst(out)
	return out
}
