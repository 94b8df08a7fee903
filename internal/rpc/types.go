package rpc

import (
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Application codes.
	CodeNotFound     = -32000
	CodeWalletLocked = -32001
	CodeWalletState  = -32002
	CodeSendFailed   = -32003
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// PasswordParam is used by wallet_create and wallet_unlock.
type PasswordParam struct {
	Password string `json:"password"`
}

// ImportParam is used by wallet_import.
type ImportParam struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
}

// VerifyWordsParam is used by wallet_verifyWords.
type VerifyWordsParam struct {
	Mnemonic string         `json:"mnemonic"`
	Answers  map[int]string `json:"answers"` // 0-based position -> word
}

// ResetParam is used by wallet_reset. Confirm must be true.
type ResetParam struct {
	Confirm bool `json:"confirm"`
}

// IndexParam is used by wallet_selectAccount.
type IndexParam struct {
	Index int `json:"index"`
}

// NetworkParam is used by wallet_selectNetwork and network_get.
type NetworkParam struct {
	Network string `json:"network"`
}

// RefreshParam is used by wallet_refresh.
type RefreshParam struct {
	All          bool `json:"all,omitempty"`          // Every mainnet instead of the selected network.
	Transactions bool `json:"transactions,omitempty"` // Also reconcile history.
}

// HistoryParam is used by wallet_getHistory.
type HistoryParam struct {
	Network string `json:"network,omitempty"` // Defaults to the selected network.
	Limit   int    `json:"limit,omitempty"`
}

// SendParam is used by wallet_prepareSend and wallet_send.
type SendParam struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// PlanParam is used by wallet_confirmSend.
type PlanParam struct {
	PlanID string `json:"plan_id"`
}

// NetworkListParam is used by network_list.
type NetworkListParam struct {
	Testnets bool `json:"testnets,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// AccountResult is an account with its address and balance on the
// selected network.
type AccountResult struct {
	wallet.Account
	CurrentAddress string `json:"address"`
	CurrentBalance string `json:"balance"`
	Display        string `json:"display"`
	ExplorerURL    string `json:"explorer_url,omitempty"`
}

// StateResult is returned by wallet_getState.
type StateResult struct {
	State     string          `json:"state"`
	Network   network.Network `json:"network"`
	Accounts  []AccountResult `json:"accounts"`
	Current   int             `json:"current"`
	LastError string          `json:"last_error,omitempty"`
}

// VerifyWordResult is one seed-phrase confirmation challenge.
type VerifyWordResult struct {
	Position int    `json:"position"`
	Word     string `json:"word"`
}

// CreateResult is returned by wallet_create. The mnemonic is shown once.
type CreateResult struct {
	Mnemonic string             `json:"mnemonic"`
	Verify   []VerifyWordResult `json:"verify"`
	Account  AccountResult      `json:"account"`
}

// UnlockResult is returned by wallet_unlock.
type UnlockResult struct {
	Unlocked bool   `json:"unlocked"`
	Error    string `json:"error,omitempty"`
}

// VerifyResult is returned by wallet_verifyWords.
type VerifyResult struct {
	Valid bool `json:"valid"`
}

// TxResult is a transaction with its explorer link.
type TxResult struct {
	types.Transaction
	ExplorerURL string `json:"explorer_url"`
}

// HistoryResult is returned by wallet_getHistory.
type HistoryResult struct {
	Network      string     `json:"network"`
	Transactions []TxResult `json:"transactions"`
}

// PlanResult is returned by wallet_prepareSend.
type PlanResult struct {
	PlanID    string `json:"plan_id"`
	Network   string `json:"network"`
	Symbol    string `json:"symbol"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee"`
	GasLimit  uint64 `json:"gas_limit"`
	GasPrice  string `json:"gas_price,omitempty"`
	Total     string `json:"total"`
	ExpiresAt int64  `json:"expires_at"` // Unix seconds.
}

// StatusResult acknowledges a state change.
type StatusResult struct {
	State string `json:"state"`
}
