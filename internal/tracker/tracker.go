package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/metrics"
)

// Tracker follows one wallet identity and keeps its balance and recent
// transactions current. All methods are safe for concurrent use.
//
// On an address change the balance fetch starts at once and the transaction
// fetch follows after the stagger. Each fetcher runs at most one request at a
// time; triggers that arrive while one is in flight are dropped.
type Tracker struct {
	balances     BalanceSource
	history      HistorySource
	stagger      time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	lastFetched string // address of the last address-change fetch
	balanceBusy bool
	txBusy      bool
	txTimer     *time.Timer // pending staggered transaction fetch
	txGen       uint64      // invalidates a timer that already fired
	closed      bool
	unbind      func()

	notifyMu  sync.Mutex
	subs      map[int]chan State
	nextSub   int
	published uint64
}

// New creates a Tracker over the given sources.
func New(balances BalanceSource, history HistorySource, opts ...Option) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		balances: balances,
		history:  history,
		stagger:  DefaultStagger,
		logger:   zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("tracker")
	t.state.Transactions.Data = []chain.Transaction{}
	return t
}

// Observe applies an identity update. A disconnect clears both outputs, a new
// address starts the fetch sequence and a repeat of the current address does
// nothing.
func (t *Tracker) Observe(id Identity) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	addr := id.Active()
	changed := t.state.Identity != id
	t.state.Identity = id

	switch {
	case addr == "":
		if t.lastFetched != "" {
			t.logger.Info("identity disconnected", zap.String("address", t.lastFetched))
		}
		t.lastFetched = ""
		t.cancelPendingLocked()
		t.state.Balance.Data = nil
		t.state.Transactions.Data = []chain.Transaction{}
		changed = true

	case strings.EqualFold(addr, t.lastFetched):
		// Same wallet; only the identity value may have changed.

	default:
		t.logger.Info("identity changed", zap.String("from", t.lastFetched), zap.String("to", addr))
		t.lastFetched = addr
		t.cancelPendingLocked()
		t.startBalanceLocked(addr)
		t.scheduleTransactionsLocked(addr)
		changed = true
	}

	if !changed {
		t.mu.Unlock()
		return
	}
	s := t.commitLocked()
	t.mu.Unlock()
	t.publish(s)
}

// Bind follows src: every identity change is passed to Observe, and the
// current identity is observed once. A previous binding is released.
func (t *Tracker) Bind(src IdentitySource) {
	unbind := src.OnIdentityChange(t.Observe)

	t.mu.Lock()
	prev := t.unbind
	t.unbind = unbind
	t.mu.Unlock()

	if prev != nil {
		prev()
	}
	t.Observe(src.GetIdentity())
}

// Stagger returns the delay between the balance and transaction fetches.
func (t *Tracker) Stagger() time.Duration { return t.stagger }

// Snapshot returns the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe returns a channel that receives the current state and then every
// later state. Delivery is latest-wins: a slow reader skips intermediate
// versions but never blocks a fetch. cancel stops delivery and closes the
// channel. After Close the channel holds the final state and is already
// closed.
func (t *Tracker) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	t.notifyMu.Lock()
	t.mu.Lock()
	closed, snap := t.closed, t.state
	t.mu.Unlock()

	ch <- snap
	if closed {
		t.notifyMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.notifyMu.Unlock()

	return ch, func() {
		t.notifyMu.Lock()
		defer t.notifyMu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
}

// Close cancels the pending transaction fetch and every in-flight request,
// waits for fetch goroutines to finish and closes all subscriptions.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.cancelPendingLocked()
	unbind := t.unbind
	t.unbind = nil
	t.mu.Unlock()

	if unbind != nil {
		unbind()
	}
	t.cancel()
	t.wg.Wait()

	t.notifyMu.Lock()
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
	t.notifyMu.Unlock()
}

// commitLocked bumps the version and returns the state to publish.
func (t *Tracker) commitLocked() State {
	t.state.Version++
	return t.state
}

// publish delivers s to every subscriber unless a newer version already went
// out. Must be called without t.mu held.
func (t *Tracker) publish(s State) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	if s.Version <= t.published {
		return
	}
	t.published = s.Version
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (t *Tracker) cancelPendingLocked() {
	t.txGen++
	if t.txTimer != nil {
		t.txTimer.Stop()
		t.txTimer = nil
	}
}

// scheduleTransactionsLocked starts the transaction fetch for addr after the
// stagger. cancelPendingLocked invalidates it.
func (t *Tracker) scheduleTransactionsLocked(addr string) {
	if t.stagger <= 0 {
		t.startTransactionsLocked(addr)
		return
	}
	gen := t.txGen
	t.txTimer = time.AfterFunc(t.stagger, func() {
		t.mu.Lock()
		if t.closed || gen != t.txGen {
			t.mu.Unlock()
			return
		}
		t.txTimer = nil
		if !t.startTransactionsLocked(addr) {
			t.mu.Unlock()
			return
		}
		s := t.commitLocked()
		t.mu.Unlock()
		t.publish(s)
	})
}

func (t *Tracker) fetchContext() (context.Context, context.CancelFunc) {
	if t.fetchTimeout > 0 {
		return context.WithTimeout(t.ctx, t.fetchTimeout)
	}
	return context.WithCancel(t.ctx)
}
