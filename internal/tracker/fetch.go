package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/metrics"
)

// RefetchBalance fetches the balance of the connected address now. With no
// connected address the balance is cleared. It does nothing while a balance
// fetch is already in flight.
func (t *Tracker) RefetchBalance() {
	t.mu.Lock()
	addr := t.state.Identity.Active()
	if addr == "" {
		t.state.Balance.Data = nil
	} else if !t.startBalanceLocked(addr) {
		t.mu.Unlock()
		return
	}
	s := t.commitLocked()
	t.mu.Unlock()
	t.publish(s)
}

// RefetchTransactions fetches the transactions of the connected address now,
// skipping the stagger. With no connected address the list is emptied. It
// does nothing while a transaction fetch is already in flight.
func (t *Tracker) RefetchTransactions() {
	t.mu.Lock()
	addr := t.state.Identity.Active()
	if addr == "" {
		t.state.Transactions.Data = []chain.Transaction{}
	} else if !t.startTransactionsLocked(addr) {
		t.mu.Unlock()
		return
	}
	s := t.commitLocked()
	t.mu.Unlock()
	t.publish(s)
}

// startBalanceLocked marks the balance as loading and runs the fetch in the
// background. It reports false when the trigger was dropped.
func (t *Tracker) startBalanceLocked(addr string) bool {
	if t.closed {
		return false
	}
	if t.balanceBusy {
		t.logger.Debug("balance fetch already in flight", zap.String("address", addr))
		t.metrics.Dropped(metrics.SourceBalance)
		return false
	}
	t.balanceBusy = true
	t.state.Balance.IsLoading = true
	t.state.Balance.Error = nil

	t.wg.Add(1)
	go t.runBalance(addr)
	return true
}

func (t *Tracker) runBalance(addr string) {
	defer t.wg.Done()

	ctx, cancel := t.fetchContext()
	defer cancel()

	start := time.Now()
	bal, err := fetchBalance(ctx, t.balances, addr)
	elapsed := time.Since(start)

	t.mu.Lock()
	t.balanceBusy = false
	t.state.Balance.IsLoading = false

	current := t.state.Identity.Active()
	switch {
	case !strings.EqualFold(current, addr):
		t.logger.Debug("discarding stale balance", zap.String("address", addr), zap.String("current", current))
		t.metrics.ObserveFetch(metrics.SourceBalance, metrics.OutcomeStale, elapsed)
		if current != "" {
			t.startBalanceLocked(current)
		}

	case err != nil:
		t.metrics.ObserveFetch(metrics.SourceBalance, metrics.OutcomeError, elapsed)
		t.state.Balance.UpdatedAt = time.Now()
		if chain.KindOf(err) == chain.KindNoAddress {
			t.state.Balance.Data = nil
			break
		}
		t.logger.Warn("balance fetch failed",
			zap.String("address", addr),
			zap.Stringer("kind", chain.KindOf(err)),
			zap.Error(err))
		t.state.Balance.Error = errorInfo(err)

	default:
		t.metrics.ObserveFetch(metrics.SourceBalance, metrics.OutcomeSuccess, elapsed)
		t.state.Balance.UpdatedAt = time.Now()
		t.state.Balance.Data = &BalanceRecord{
			Raw:       bal.Wei.String(),
			Formatted: chain.WeiToETH(bal.Wei),
		}
		t.logger.Debug("balance fetched", zap.String("address", addr), zap.String("eth", t.state.Balance.Data.Formatted))
	}

	s := t.commitLocked()
	t.mu.Unlock()
	t.publish(s)
}

// startTransactionsLocked is startBalanceLocked for the transaction fetcher.
func (t *Tracker) startTransactionsLocked(addr string) bool {
	if t.closed {
		return false
	}
	if t.txBusy {
		t.logger.Debug("transaction fetch already in flight", zap.String("address", addr))
		t.metrics.Dropped(metrics.SourceTransactions)
		return false
	}
	t.txBusy = true
	t.state.Transactions.IsLoading = true
	t.state.Transactions.Error = nil

	t.wg.Add(1)
	go t.runTransactions(addr)
	return true
}

func (t *Tracker) runTransactions(addr string) {
	defer t.wg.Done()

	ctx, cancel := t.fetchContext()
	defer cancel()

	start := time.Now()
	txs, err := fetchTransactions(ctx, t.history, addr)
	elapsed := time.Since(start)

	t.mu.Lock()
	t.txBusy = false
	t.state.Transactions.IsLoading = false

	current := t.state.Identity.Active()
	switch {
	case !strings.EqualFold(current, addr):
		t.logger.Debug("discarding stale transactions", zap.String("address", addr), zap.String("current", current))
		t.metrics.ObserveFetch(metrics.SourceTransactions, metrics.OutcomeStale, elapsed)
		// A pending staggered fetch will cover the new address.
		if current != "" && t.txTimer == nil {
			t.startTransactionsLocked(current)
		}

	case err != nil:
		t.metrics.ObserveFetch(metrics.SourceTransactions, metrics.OutcomeError, elapsed)
		t.state.Transactions.UpdatedAt = time.Now()
		if chain.KindOf(err) == chain.KindNoAddress {
			t.state.Transactions.Data = []chain.Transaction{}
			break
		}
		t.logger.Warn("transaction fetch failed",
			zap.String("address", addr),
			zap.Stringer("kind", chain.KindOf(err)),
			zap.Error(err))
		t.state.Transactions.Error = errorInfo(err)

	default:
		t.metrics.ObserveFetch(metrics.SourceTransactions, metrics.OutcomeSuccess, elapsed)
		t.state.Transactions.UpdatedAt = time.Now()
		if txs == nil {
			txs = []chain.Transaction{}
		}
		t.state.Transactions.Data = txs
		t.logger.Debug("transactions fetched", zap.String("address", addr), zap.Int("count", len(txs)))
	}

	s := t.commitLocked()
	t.mu.Unlock()
	t.publish(s)
}

// fetchBalance calls src and turns a panic or an empty result into an error.
func fetchBalance(ctx context.Context, src BalanceSource, addr string) (bal *chain.Balance, err error) {
	defer func() {
		if r := recover(); r != nil {
			bal, err = nil, fmt.Errorf("balance fetch panicked: %v", r)
		}
	}()
	bal, err = src.BalanceAt(ctx, addr)
	if err == nil && (bal == nil || bal.Wei == nil) {
		err = &chain.FetchError{Kind: chain.KindMalformed, Op: "balance", Msg: "empty balance response"}
	}
	return bal, err
}

func fetchTransactions(ctx context.Context, src HistorySource, addr string) (txs []chain.Transaction, err error) {
	defer func() {
		if r := recover(); r != nil {
			txs, err = nil, fmt.Errorf("transaction fetch panicked: %v", r)
		}
	}()
	return src.Transactions(ctx, addr)
}

func errorInfo(err error) *ErrorInfo {
	return &ErrorInfo{Kind: chain.KindOf(err), Message: err.Error()}
}
