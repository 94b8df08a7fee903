package history

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/rpcclient"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// TronGridSource reads the TronGrid v1 account transactions API.
type TronGridSource struct {
	APIKey   string
	PageSize int
	Timeout  time.Duration
}

type tronGridResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Data    []tronGridTx `json:"data"`
}

type tronGridTx struct {
	TxID           string `json:"txID"`
	BlockTimestamp int64  `json:"block_timestamp"`
	RawData        struct {
		Timestamp int64 `json:"timestamp"`
		Contract  []struct {
			Type      string `json:"type"`
			Parameter struct {
				Value struct {
					OwnerAddress string `json:"owner_address"`
					ToAddress    string `json:"to_address"`
					Amount       int64  `json:"amount"`
				} `json:"value"`
			} `json:"parameter"`
		} `json:"contract"`
	} `json:"raw_data"`
	Ret []struct {
		ContractRet string `json:"contractRet"`
	} `json:"ret"`
}

// Fetch returns the newest page of confirmed transactions for a Base58
// TRON address.
func (s *TronGridSource) Fetch(ctx context.Context, address string, net network.Network) ([]types.Transaction, error) {
	if net.ExplorerAPI == "" {
		return nil, nil
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("only_confirmed", "true")

	c := rpcclient.NewWithTimeout(net.ExplorerAPI, s.Timeout).WithHeader("TRON-PRO-API-KEY", s.APIKey)
	var resp tronGridResponse
	if err := c.GetJSON(ctx, "/v1/accounts/"+url.PathEscape(address)+"/transactions", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("trongrid %s: %s", net.ID, resp.Error)
	}

	out := make([]types.Transaction, 0, len(resp.Data))
	for _, r := range resp.Data {
		out = append(out, r.normalize(address, net))
	}
	return out, nil
}

func (r tronGridTx) normalize(self string, net network.Network) types.Transaction {
	var from, to string
	var amount int64
	if len(r.RawData.Contract) > 0 {
		v := r.RawData.Contract[0].Parameter.Value
		from = tronBase58(v.OwnerAddress)
		to = tronBase58(v.ToAddress)
		amount = v.Amount
	}

	status := types.StatusFailed
	if len(r.Ret) > 0 && r.Ret[0].ContractRet == "SUCCESS" {
		status = types.StatusConfirmed
	}
	ts := r.BlockTimestamp
	if ts == 0 {
		ts = r.RawData.Timestamp
	}

	return types.Transaction{
		Hash:      r.TxID,
		From:      from,
		To:        to,
		Value:     types.FormatUnits(big.NewInt(amount), net.Decimals),
		Timestamp: ts,
		Status:    status,
		NetworkID: net.ID,
		Direction: direction(types.FamilyTron, from, to, self),
		Symbol:    net.Symbol,
	}
}

// tronBase58 converts a hex "41..." address to Base58. Anything that does
// not parse is returned unchanged.
func tronBase58(addr string) string {
	if addr == "" {
		return ""
	}
	a, err := types.ParseTronAddress(addr)
	if err != nil {
		return addr
	}
	return a.String()
}
