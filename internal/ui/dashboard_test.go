package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/tracker"
)

const (
	selfAddr  = "0x7701A3bE6842720C08834E2d9E9507b5A28C0096"
	otherAddr = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeTracker struct {
	mu          sync.Mutex
	state       tracker.State
	ch          chan tracker.State
	balanceRefs int
	txRefs      int
}

func newFakeTracker(st tracker.State) *fakeTracker {
	return &fakeTracker{state: st, ch: make(chan tracker.State, 1)}
}

func (f *fakeTracker) Snapshot() tracker.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTracker) Subscribe() (<-chan tracker.State, func()) {
	return f.ch, func() {}
}

func (f *fakeTracker) RefetchBalance() {
	f.mu.Lock()
	f.balanceRefs++
	f.mu.Unlock()
}

func (f *fakeTracker) RefetchTransactions() {
	f.mu.Lock()
	f.txRefs++
	f.mu.Unlock()
}

type fakeSession struct {
	name                     string
	opens, nexts, disconnect int
	err                      error
}

func (f *fakeSession) Open() error        { f.opens++; return f.err }
func (f *fakeSession) Next() error        { f.nexts++; return f.err }
func (f *fakeSession) Disconnect() error  { f.disconnect++; return f.err }
func (f *fakeSession) WalletName() string { return f.name }

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func connectedState(version uint64, txs ...chain.Transaction) tracker.State {
	wei := "1234567890000000000"
	return tracker.State{
		Identity:     tracker.Identity{Address: selfAddr, Connected: true},
		Balance:      tracker.FetchState[*tracker.BalanceRecord]{Data: &tracker.BalanceRecord{Raw: wei, Formatted: "1.23456789"}},
		Transactions: tracker.FetchState[[]chain.Transaction]{Data: txs},
		Version:      version,
	}
}

func sampleTxs() []chain.Transaction {
	return []chain.Transaction{
		{Hash: "0x" + strings.Repeat("a", 64), From: otherAddr, To: selfAddr, Value: "500000000000000000", TimeStamp: "1700000000"},
		{Hash: "0x" + strings.Repeat("b", 64), From: selfAddr, To: otherAddr, Value: "0", Input: "0xa9059cbb0000", TimeStamp: "1700000000"},
	}
}

func newTestDashboard(st tracker.State) (DashboardModel, *fakeTracker, *fakeSession) {
	ft := newFakeTracker(st)
	fs := &fakeSession{name: "main"}
	m, _ := NewDashboardModel(ft, fs, DashboardOptions{ExplorerTxURL: "https://etherscan.io/tx/"})
	m.now = func() time.Time { return time.Unix(1700000060, 0) }
	return m, ft, fs
}

func update(t *testing.T, m DashboardModel, msg tea.Msg) (DashboardModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	dm, ok := next.(DashboardModel)
	require.True(t, ok)
	return dm, cmd
}

// ---------------------------------------------------------------------------
// keys
// ---------------------------------------------------------------------------

func TestDashboardRefetchKeysRunInCommands(t *testing.T) {
	m, ft, _ := newTestDashboard(connectedState(1))

	_, cmd := update(t, m, key("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, 0, ft.balanceRefs, "refetch must not run inside Update")
	assert.Nil(t, cmd())
	assert.Equal(t, 1, ft.balanceRefs)

	_, cmd = update(t, m, key("t"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, ft.txRefs)
}

func TestDashboardSessionKeys(t *testing.T) {
	m, _, fs := newTestDashboard(tracker.State{})

	for _, k := range []string{"c", "n", "d"} {
		_, cmd := update(t, m, key(k))
		require.NotNil(t, cmd, k)
		cmd()
	}
	assert.Equal(t, 1, fs.opens)
	assert.Equal(t, 1, fs.nexts)
	assert.Equal(t, 1, fs.disconnect)
}

func TestDashboardSessionErrorIsShown(t *testing.T) {
	m, _, fs := newTestDashboard(tracker.State{})
	fs.err = errors.New("no wallets saved")

	_, cmd := update(t, m, key("n"))
	msg := cmd()
	require.IsType(t, actionErrMsg{}, msg)

	m, _ = update(t, m, msg)
	assert.Contains(t, m.View(), "no wallets saved")
}

func TestDashboardQuit(t *testing.T) {
	m, _, _ := newTestDashboard(tracker.State{})
	m, cmd := update(t, m, key("q"))
	assert.True(t, m.Quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestDashboardCursorStaysInRange(t *testing.T) {
	m, _, _ := newTestDashboard(connectedState(1, sampleTxs()...))

	m, _ = update(t, m, key("up"))
	assert.Equal(t, 0, m.cursor)
	m, _ = update(t, m, key("down"))
	m, _ = update(t, m, key("down"))
	assert.Equal(t, 1, m.cursor)

	m, _ = update(t, m, stateMsg{state: connectedState(2, sampleTxs()[:1]...)})
	assert.Equal(t, 0, m.cursor)
}

func TestDashboardSelectedRowUsesExplorerPrefix(t *testing.T) {
	m, _, _ := newTestDashboard(connectedState(1, sampleTxs()...))
	m, _ = update(t, m, key("down"))
	row, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, sampleTxs()[1].Hash, row.FullHash)
	assert.Equal(t, "https://etherscan.io/tx/"+sampleTxs()[1].Hash, row.ExplorerURL)
}

func TestDashboardOpenWithoutTransactionsDoesNothing(t *testing.T) {
	m, _, _ := newTestDashboard(connectedState(1))
	_, cmd := update(t, m, key("o"))
	assert.Nil(t, cmd)
}

// ---------------------------------------------------------------------------
// state flow
// ---------------------------------------------------------------------------

func TestDashboardWaitForStateDeliversSnapshot(t *testing.T) {
	m, ft, _ := newTestDashboard(tracker.State{})
	ft.ch <- connectedState(3)

	msg := m.waitForState()()
	sm, ok := msg.(stateMsg)
	require.True(t, ok)
	assert.Equal(t, uint64(3), sm.state.Version)
	assert.Equal(t, "main", sm.wallet)

	m, cmd := update(t, m, sm)
	assert.Equal(t, uint64(3), m.State().Version)
	assert.NotNil(t, cmd, "keeps listening")
}

func TestDashboardIgnoresOlderSnapshot(t *testing.T) {
	m, _, _ := newTestDashboard(connectedState(5))
	m, _ = update(t, m, stateMsg{state: tracker.State{Version: 4}})
	assert.Equal(t, uint64(5), m.State().Version)
	assert.True(t, m.State().Identity.Connected)
}

func TestDashboardQuitsWhenSubscriptionCloses(t *testing.T) {
	m, ft, _ := newTestDashboard(tracker.State{})
	close(ft.ch)
	msg := m.waitForState()()
	require.IsType(t, subscriptionClosedMsg{}, msg)

	m, cmd := update(t, m, msg)
	assert.True(t, m.Quitting)
	assert.NotNil(t, cmd)
}

// ---------------------------------------------------------------------------
// view
// ---------------------------------------------------------------------------

func TestDashboardViewDisconnected(t *testing.T) {
	m, _, _ := newTestDashboard(tracker.State{})
	v := m.View()
	assert.Contains(t, v, "Not connected")
	assert.NotContains(t, v, "No transactions found")
}

func TestDashboardViewConnected(t *testing.T) {
	m, _, _ := newTestDashboard(connectedState(1, sampleTxs()...))
	v := m.View()
	assert.Contains(t, v, "main")
	assert.Contains(t, v, selfAddr)
	assert.Contains(t, v, "1.234568", "balance is shown with six decimals")
	assert.Contains(t, v, "IN")
	assert.Contains(t, v, "OUT")
	assert.Contains(t, v, "0.5000")
	assert.Contains(t, v, "transfer")
	assert.Contains(t, v, "1m")
}

func TestDashboardViewLoadingAndErrors(t *testing.T) {
	st := connectedState(1)
	st.Balance = tracker.FetchState[*tracker.BalanceRecord]{IsLoading: true}
	st.Transactions = tracker.FetchState[[]chain.Transaction]{
		Data:  []chain.Transaction{},
		Error: &tracker.ErrorInfo{Kind: chain.KindUpstream, Message: "Rate limit exceeded"},
	}
	m, _, _ := newTestDashboard(st)
	v := m.View()
	assert.Contains(t, v, "fetching balance")
	assert.Contains(t, v, "upstream: Rate limit exceeded")
	assert.NotContains(t, v, "No transactions found")
}

func TestDashboardViewEmptyHistory(t *testing.T) {
	st := connectedState(1)
	st.Transactions.Data = []chain.Transaction{}
	m, _, _ := newTestDashboard(st)
	assert.Contains(t, m.View(), "No transactions found")
}
