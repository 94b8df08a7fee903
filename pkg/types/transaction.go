// Package types defines the chain-agnostic value types shared by the wallet
// core: transactions, TRON addresses, and decimal amounts.
package types

import (
	"cmp"
	"slices"
	"strings"
)

// Family identifies a group of networks sharing signing and address rules.
type Family string

const (
	FamilyEVM  Family = "evm"
	FamilyTron Family = "tron"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// CanTransition reports whether a record in status s may move to next.
// Only pending records change; confirmed never returns to pending.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	return s == StatusPending
}

// Direction classifies a transfer relative to the owning account.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
	DirectionOther   Direction = "other"
)

// Transaction is a native-asset transfer as seen by one account.
type Transaction struct {
	Hash      string    `json:"hash"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Value     string    `json:"value"`
	GasUsed   string    `json:"gas_used,omitempty"`
	GasPrice  string    `json:"gas_price,omitempty"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds.
	Status    Status    `json:"status"`
	NetworkID string    `json:"network_id"`
	Direction Direction `json:"direction"`
	Symbol    string    `json:"symbol,omitempty"`
}

// Key identifies one logical transaction: hash is unique within a network.
// Hex hashes are compared case-insensitively.
func (t Transaction) Key() string {
	return t.NetworkID + ":" + strings.ToLower(t.Hash)
}

// SortNewestFirst orders transactions by timestamp descending, breaking ties
// by key so the order is deterministic.
func SortNewestFirst(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
}
