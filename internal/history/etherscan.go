package history

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/rpcclient"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// EtherscanSource reads the etherscan-compatible account txlist API that
// most EVM explorers expose.
type EtherscanSource struct {
	// APIKeys maps network ID to explorer API key. Missing keys are
	// allowed; explorers then apply their anonymous rate limit.
	APIKeys  map[string]string
	PageSize int
	Timeout  time.Duration
}

type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanTx struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	TimeStamp       string `json:"timeStamp"`
	TxReceiptStatus string `json:"txreceipt_status"`
	IsError         string `json:"isError"`
}

// Fetch returns the newest page of transactions. Networks without an
// explorer API return an empty result.
func (s *EtherscanSource) Fetch(ctx context.Context, address string, net network.Network) ([]types.Transaction, error) {
	if net.ExplorerAPI == "" {
		return nil, nil
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(pageSize))
	q.Set("sort", "desc")
	if key := s.APIKeys[net.ID]; key != "" {
		q.Set("apikey", key)
	}

	var resp etherscanResponse
	if err := rpcclient.NewWithTimeout(net.ExplorerAPI, s.Timeout).GetJSON(ctx, "", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" {
		// "No transactions found" is reported as status 0 with an empty list.
		var empty []etherscanTx
		if json.Unmarshal(resp.Result, &empty) == nil && len(empty) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("explorer %s: %s", net.ID, explorerMessage(resp))
	}

	var raw []etherscanTx
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return nil, fmt.Errorf("explorer %s: decode result: %w", net.ID, err)
	}
	out := make([]types.Transaction, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.normalize(address, net))
	}
	return out, nil
}

func explorerMessage(resp etherscanResponse) string {
	var s string
	if json.Unmarshal(resp.Result, &s) == nil && s != "" {
		return resp.Message + ": " + s
	}
	return resp.Message
}

func (r etherscanTx) normalize(self string, net network.Network) types.Transaction {
	value := "0"
	if wei, ok := new(big.Int).SetString(r.Value, 10); ok {
		value = types.FormatUnits(wei, net.Decimals)
	}
	var ts int64
	if sec, err := strconv.ParseInt(r.TimeStamp, 10, 64); err == nil {
		ts = sec * 1000
	}
	return types.Transaction{
		Hash:      r.Hash,
		From:      r.From,
		To:        r.To,
		Value:     value,
		GasUsed:   r.GasUsed,
		GasPrice:  r.GasPrice,
		Timestamp: ts,
		Status:    etherscanStatus(r.TxReceiptStatus, r.IsError),
		NetworkID: net.ID,
		Direction: direction(types.FamilyEVM, r.From, r.To, self),
		Symbol:    net.Symbol,
	}
}

// etherscanStatus maps txreceipt_status. Pre-Byzantium records leave it
// empty; isError is the only signal there.
func etherscanStatus(receipt, isError string) types.Status {
	switch strings.TrimSpace(receipt) {
	case "1":
		return types.StatusConfirmed
	case "0":
		return types.StatusFailed
	}
	switch isError {
	case "1":
		return types.StatusFailed
	case "0":
		return types.StatusConfirmed
	}
	return types.StatusPending
}
