package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/nova-wallet/internal/adapter"
	klog "github.com/Klingon-tech/nova-wallet/internal/log"
	"github.com/Klingon-tech/nova-wallet/internal/wallet"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// SendPlan is a validated and priced transfer awaiting confirmation.
// It is bound to the session, account and network it was prepared in.
type SendPlan struct {
	NetworkID    string
	Symbol       string
	AccountIndex int
	From         string
	To           string
	Amount       string // Native units, normalized.
	Fee          adapter.FeeEstimate
	Total        string // Amount plus Fee.TotalCost.

	epoch uint64
}

// PrepareSend validates a transfer from the active account and estimates its
// fee. Address, amount and balance checks run before any network request.
func (c *Controller) PrepareSend(ctx context.Context, to, amount string) (*SendPlan, error) {
	t, err := c.target()
	if err != nil {
		return nil, err
	}
	a, err := c.adapters.For(t.net)
	if err != nil {
		return nil, c.fail(err)
	}

	to = strings.TrimSpace(to)
	if !a.IsValidAddress(to) {
		return nil, c.fail(fmt.Errorf("%w: %q", adapter.ErrInvalidAddress, to))
	}
	units, err := types.ParseAmount(amount, t.net.Decimals)
	if err != nil {
		return nil, c.fail(fmt.Errorf("%w: %v", adapter.ErrInvalidAmount, err))
	}
	amount = types.FormatUnits(units, t.net.Decimals)

	balance := t.account.Balance(t.net.ID)
	if types.CompareAmounts(amount, balance) > 0 {
		return nil, c.fail(fmt.Errorf("%w: %s %s requested, %s available", ErrInsufficientFunds, amount, t.net.Symbol, balance))
	}

	from := t.account.Address(t.net.Family)
	ctx, cancel := joinContext(ctx, t.sessCtx)
	defer cancel()
	fee, err := a.EstimateFee(ctx, from, to, amount, t.net)
	if err != nil {
		return nil, c.fail(err)
	}

	total := types.AddAmounts(amount, fee.TotalCost)
	// TRON's flat fee is an upper bound that bandwidth may cover, so only
	// EVM gas is held against the balance.
	if t.net.IsEVM() && types.CompareAmounts(total, balance) > 0 {
		return nil, c.fail(fmt.Errorf("%w: %s %s needed including fee, %s available", ErrInsufficientFunds, total, t.net.Symbol, balance))
	}

	return &SendPlan{
		NetworkID:    t.net.ID,
		Symbol:       t.net.Symbol,
		AccountIndex: int(t.account.Index),
		From:         from,
		To:           to,
		Amount:       amount,
		Fee:          *fee,
		Total:        total,
		epoch:        t.epoch,
	}, nil
}

// ConfirmSend signs and broadcasts plan. Only one send may be in flight;
// a concurrent call fails with ErrSendInProgress. The returned record is
// pending for EVM networks and final for TRON.
func (c *Controller) ConfirmSend(ctx context.Context, plan *SendPlan) (*types.Transaction, error) {
	if plan == nil {
		return nil, ErrStalePlan
	}
	if !c.sendMu.TryLock() {
		return nil, ErrSendInProgress
	}
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if c.state != Unlocked {
		c.mu.Unlock()
		return nil, ErrLocked
	}
	if c.epoch != plan.epoch || c.current != plan.AccountIndex || c.networkID != plan.NetworkID {
		c.mu.Unlock()
		return nil, ErrStalePlan
	}
	seed := append([]byte(nil), c.seed...)
	epoch := c.epoch
	sessCtx := c.sessCtx
	c.mu.Unlock()

	net, ok := c.networks.ByID(plan.NetworkID)
	if !ok {
		zero(seed)
		return nil, ErrUnknownNetwork
	}
	a, err := c.adapters.For(net)
	if err != nil {
		zero(seed)
		return nil, c.fail(err)
	}

	keys, err := wallet.DeriveKeys(seed, uint32(plan.AccountIndex))
	zero(seed)
	if err != nil {
		return nil, c.fail(err)
	}
	defer keys.Zero()
	if keys.Account().Address(net.Family) != plan.From {
		return nil, ErrStalePlan
	}

	sendCtx, cancel := joinContext(ctx, sessCtx)
	defer cancel()

	logger := klog.WithNetwork(klog.Session, net.ID)
	h, err := a.Send(sendCtx, keys.Key(net.Family), plan.To, plan.Amount, net)
	keys.Zero()
	if err != nil {
		logger.Warn().Err(err).Msg("Send failed")
		return nil, c.fail(err)
	}

	from := h.From
	if from == "" {
		from = plan.From
	}
	tx := types.Transaction{
		Hash:      h.Hash,
		From:      from,
		To:        plan.To,
		Value:     plan.Amount,
		Timestamp: c.now().UnixMilli(),
		Status:    h.Status,
		NetworkID: net.ID,
		Direction: types.DirectionSend,
		Symbol:    net.Symbol,
	}
	logger.Info().Str("hash", tx.Hash).Str("status", string(tx.Status)).Msg("Transaction broadcast")

	c.recordSent(tx)
	if !h.Settled {
		c.awaitConfirmation(sessCtx, h, tx, epoch)
	}
	c.refreshInBackground(true, false)
	return &tx, nil
}

// Send prepares and confirms a transfer in one step.
func (c *Controller) Send(ctx context.Context, to, amount string) (*types.Transaction, error) {
	plan, err := c.PrepareSend(ctx, to, amount)
	if err != nil {
		return nil, err
	}
	return c.ConfirmSend(ctx, plan)
}

// recordSent puts tx at the head of the log. A broadcast is recorded even if
// the wallet was locked meanwhile, but not after a reset.
func (c *Controller) recordSent(tx types.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Uninitialized || c.closed {
		klog.Session.Warn().Str("hash", tx.Hash).Msg("Wallet gone before broadcast was recorded")
		return
	}
	txs := make([]types.Transaction, 0, len(c.txs)+1)
	txs = append(txs, tx)
	for _, existing := range c.txs {
		if existing.Key() != tx.Key() {
			txs = append(txs, existing)
		}
	}
	if len(txs) > wallet.MaxStoredTransactions {
		txs = txs[:wallet.MaxStoredTransactions]
	}
	c.txs = txs
	if err := c.ks.AppendTransaction(tx); err != nil {
		c.persistFailedLocked(err)
	}
}

// awaitConfirmation waits for h in the background and applies the final
// status, unless the session that sent it has ended.
func (c *Controller) awaitConfirmation(sessCtx context.Context, h *adapter.Handle, tx types.Transaction, epoch uint64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.bg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.bg.Done()
		logger := klog.WithNetwork(klog.Session, tx.NetworkID)

		r, err := h.Wait(sessCtx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Str("hash", tx.Hash).Msg("Confirmation wait failed")
			}
			return
		}

		if !c.applyReceipt(tx, r, epoch) {
			logger.Debug().Str("hash", tx.Hash).Msg("Dropping confirmation from ended session")
			return
		}
		logger.Info().Str("hash", tx.Hash).Str("status", string(r.Status)).Msg("Transaction final")
		c.refreshInBackground(true, false)
	}()
}

func (c *Controller) applyReceipt(tx types.Transaction, r *adapter.Receipt, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}

	txs := make([]types.Transaction, len(c.txs))
	copy(txs, c.txs)
	for i, existing := range txs {
		if existing.Key() != tx.Key() {
			continue
		}
		if !existing.Status.CanTransition(r.Status) {
			return true
		}
		existing.Status = r.Status
		if r.GasUsed > 0 {
			existing.GasUsed = strconv.FormatUint(r.GasUsed, 10)
		}
		if r.GasPrice != nil {
			existing.GasPrice = r.GasPrice.String()
		}
		txs[i] = existing
		c.txs = txs
		if _, err := c.ks.UpdateTransaction(existing); err != nil {
			c.persistFailedLocked(err)
		}
		return true
	}
	return true
}
