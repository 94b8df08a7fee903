package rpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/nova-wallet/internal/adapter"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/session"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// displayChars is how many characters the shortened address keeps per side.
const displayChars = 6

// walletError maps a controller error to a JSON-RPC error.
func walletError(err error) *Error {
	code := CodeInternalError
	switch {
	case errors.Is(err, session.ErrLocked):
		code = CodeWalletLocked
	case errors.Is(err, session.ErrUnknownAccount),
		errors.Is(err, session.ErrUnknownNetwork),
		errors.Is(err, adapter.ErrUnsupportedNetwork):
		code = CodeNotFound
	case errors.Is(err, session.ErrNoWallet),
		errors.Is(err, session.ErrWalletExists),
		errors.Is(err, session.ErrSendInProgress),
		errors.Is(err, session.ErrStalePlan),
		errors.Is(err, session.ErrClosed):
		code = CodeWalletState
	case errors.Is(err, wallet.ErrWeakPassword),
		errors.Is(err, wallet.ErrInvalidMnemonic),
		errors.Is(err, adapter.ErrInvalidAddress),
		errors.Is(err, adapter.ErrInvalidAmount),
		errors.Is(err, session.ErrInsufficientFunds):
		code = CodeInvalidParams
	case errors.Is(err, adapter.ErrBroadcast):
		code = CodeSendFailed
	}
	return &Error{Code: code, Message: err.Error()}
}

func (s *Server) accountResult(a wallet.Account, net network.Network) AccountResult {
	addr := a.Address(net.Family)
	return AccountResult{
		Account:        a,
		CurrentAddress: addr,
		CurrentBalance: a.Balance(net.ID),
		Display:        types.FormatAddress(addr, displayChars),
		ExplorerURL:    s.networks.ExplorerURLForAddress(net.ID, addr),
	}
}

func (s *Server) txResult(tx types.Transaction) TxResult {
	return TxResult{
		Transaction: tx,
		ExplorerURL: s.networks.ExplorerURLForTx(tx.NetworkID, tx.Hash),
	}
}

// ── Lifecycle ───────────────────────────────────────────────────────────

func (s *Server) handleWalletGetState(req *Request) (interface{}, *Error) {
	v := s.wallet.Snapshot()
	net, _ := s.networks.ByID(v.NetworkID)

	accounts := make([]AccountResult, 0, len(v.Accounts))
	for _, a := range v.Accounts {
		accounts = append(accounts, s.accountResult(a, net))
	}
	return &StateResult{
		State:     v.State.String(),
		Network:   net,
		Accounts:  accounts,
		Current:   v.Current,
		LastError: v.LastError,
	}, nil
}

func (s *Server) handleWalletCreate(ctx context.Context, req *Request) (interface{}, *Error) {
	var params PasswordParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "password is required"}
	}

	mnemonic, err := s.wallet.Create(ctx, params.Password)
	if err != nil {
		return nil, walletError(err)
	}
	words, err := wallet.PickVerifyWords(mnemonic, wallet.DefaultVerifyPositions)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	verify := make([]VerifyWordResult, 0, len(words))
	for _, w := range words {
		verify = append(verify, VerifyWordResult{Position: w.Position, Word: w.Word})
	}

	v := s.wallet.Snapshot()
	acct, _ := v.CurrentAccount()
	net, _ := s.networks.ByID(v.NetworkID)
	return &CreateResult{
		Mnemonic: mnemonic,
		Verify:   verify,
		Account:  s.accountResult(acct, net),
	}, nil
}

func (s *Server) handleWalletImport(ctx context.Context, req *Request) (interface{}, *Error) {
	var params ImportParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Mnemonic) == "" || params.Password == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "mnemonic and password are required"}
	}
	if err := s.wallet.Import(ctx, params.Mnemonic, params.Password); err != nil {
		return nil, walletError(err)
	}
	return s.handleWalletGetState(req)
}

func (s *Server) handleWalletVerifyWords(req *Request) (interface{}, *Error) {
	var params VerifyWordsParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	mnemonic := wallet.NormalizeMnemonic(params.Mnemonic)
	return &VerifyResult{
		Valid: wallet.VerifyWords(mnemonic, wallet.DefaultVerifyPositions, params.Answers),
	}, nil
}

func (s *Server) handleWalletUnlock(ctx context.Context, req *Request) (interface{}, *Error) {
	var params PasswordParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	ok, err := s.wallet.Unlock(ctx, params.Password)
	if err != nil {
		return nil, walletError(err)
	}
	if !ok {
		return &UnlockResult{Unlocked: false, Error: session.IncorrectPassword}, nil
	}
	return &UnlockResult{Unlocked: true}, nil
}

func (s *Server) handleWalletLock(req *Request) (interface{}, *Error) {
	s.wallet.Lock()
	s.plans.clear()
	return &StatusResult{State: s.wallet.State().String()}, nil
}

func (s *Server) handleWalletReset(ctx context.Context, req *Request) (interface{}, *Error) {
	var params ResetParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if !params.Confirm {
		return nil, &Error{Code: CodeInvalidParams, Message: "reset erases the wallet; pass confirm=true"}
	}
	if err := s.wallet.Reset(ctx); err != nil {
		return nil, walletError(err)
	}
	s.plans.clear()
	s.logger.Warn().Msg("Wallet reset over RPC")
	return &StatusResult{State: s.wallet.State().String()}, nil
}

func (s *Server) handleWalletClearError(req *Request) (interface{}, *Error) {
	s.wallet.ClearError()
	return &StatusResult{State: s.wallet.State().String()}, nil
}

// ── Accounts and networks ───────────────────────────────────────────────

func (s *Server) handleWalletAddAccount(ctx context.Context, req *Request) (interface{}, *Error) {
	acct, err := s.wallet.AddAccount(ctx)
	if err != nil {
		return nil, walletError(err)
	}
	return s.accountResult(acct, s.wallet.Network()), nil
}

func (s *Server) handleWalletSelectAccount(req *Request) (interface{}, *Error) {
	var params IndexParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.wallet.SelectAccount(params.Index); err != nil {
		return nil, walletError(err)
	}
	return s.handleWalletGetState(req)
}

func (s *Server) handleWalletSelectNetwork(req *Request) (interface{}, *Error) {
	var params NetworkParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Network == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "network is required"}
	}
	if err := s.wallet.SelectNetwork(params.Network); err != nil {
		return nil, walletError(err)
	}
	return s.handleWalletGetState(req)
}

func (s *Server) handleNetworkList(req *Request) (interface{}, *Error) {
	var params NetworkListParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	if params.Testnets {
		return s.networks.All(), nil
	}
	return s.networks.Mainnets(), nil
}

func (s *Server) handleNetworkGet(req *Request) (interface{}, *Error) {
	var params NetworkParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	net, ok := s.networks.ByID(params.Network)
	if !ok {
		// Numeric input is an EVM chain ID.
		if id, err := strconv.ParseUint(params.Network, 10, 64); err == nil {
			net, ok = s.networks.ByChainID(id)
		}
	}
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("network %q not found", params.Network)}
	}
	return net, nil
}

// ── Balances and history ────────────────────────────────────────────────

func (s *Server) handleWalletRefresh(ctx context.Context, req *Request) (interface{}, *Error) {
	var params RefreshParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}

	var err error
	if params.All {
		err = s.wallet.RefreshAllBalances(ctx)
	} else {
		err = s.wallet.RefreshBalance(ctx)
	}
	if err == nil && params.Transactions {
		if params.All {
			err = s.wallet.RefreshAllTransactions(ctx)
		} else {
			err = s.wallet.RefreshTransactions(ctx)
		}
	}
	if err != nil {
		return nil, walletError(err)
	}
	return s.handleWalletGetState(req)
}

func (s *Server) handleWalletGetHistory(req *Request) (interface{}, *Error) {
	var params HistoryParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	if params.Limit < 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "limit must not be negative"}
	}

	v := s.wallet.Snapshot()
	id := params.Network
	if id == "" {
		id = v.NetworkID
	}
	if _, ok := s.networks.ByID(id); !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("network %q not found", id)}
	}

	txs := v.TransactionsOn(id)
	if params.Limit > 0 && len(txs) > params.Limit {
		txs = txs[:params.Limit]
	}
	out := make([]TxResult, 0, len(txs))
	for _, tx := range txs {
		out = append(out, s.txResult(tx))
	}
	return &HistoryResult{Network: id, Transactions: out}, nil
}

// ── Sending ─────────────────────────────────────────────────────────────

func (s *Server) handleWalletPrepareSend(ctx context.Context, req *Request) (interface{}, *Error) {
	var params SendParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	plan, err := s.wallet.PrepareSend(ctx, params.To, params.Amount)
	if err != nil {
		return nil, walletError(err)
	}

	id, expires := s.plans.put(plan)
	res := &PlanResult{
		PlanID:    id,
		Network:   plan.NetworkID,
		Symbol:    plan.Symbol,
		From:      plan.From,
		To:        plan.To,
		Amount:    plan.Amount,
		Fee:       plan.Fee.TotalCost,
		GasLimit:  plan.Fee.Limit,
		Total:     plan.Total,
		ExpiresAt: expires.Unix(),
	}
	if plan.Fee.Price != nil {
		res.GasPrice = plan.Fee.Price.String()
	}
	return res, nil
}

func (s *Server) handleWalletConfirmSend(ctx context.Context, req *Request) (interface{}, *Error) {
	var params PlanParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	plan, ok := s.plans.take(params.PlanID)
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: "send plan not found or expired"}
	}
	tx, err := s.wallet.ConfirmSend(ctx, plan)
	if err != nil {
		return nil, walletError(err)
	}
	return s.txResult(*tx), nil
}

func (s *Server) handleWalletSend(ctx context.Context, req *Request) (interface{}, *Error) {
	var params SendParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	tx, err := s.wallet.Send(ctx, params.To, params.Amount)
	if err != nil {
		return nil, walletError(err)
	}
	return s.txResult(*tx), nil
}
