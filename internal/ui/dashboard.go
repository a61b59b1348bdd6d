package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/tracker"
)

// Tracker is the orchestrator surface the dashboard drives.
type Tracker interface {
	Snapshot() tracker.State
	Subscribe() (<-chan tracker.State, func())
	RefetchBalance()
	RefetchTransactions()
}

// Session is the wallet connection the dashboard controls.
type Session interface {
	Open() error
	Next() error
	Disconnect() error
	WalletName() string
}

// DashboardOptions configures RunDashboard.
type DashboardOptions struct {
	ExplorerTxURL string // prefix for "open in browser"
}

// stateMsg carries a tracker snapshot and the wallet name read alongside it.
type stateMsg struct {
	state  tracker.State
	wallet string
}

type subscriptionClosedMsg struct{}

type flashMsg string

type actionErrMsg struct{ err error }

type dashTickMsg struct{}

// DashboardModel is the Bubble Tea model for the live wallet dashboard.
// Every tracker and session call runs inside a tea.Cmd, off the update loop.
type DashboardModel struct {
	tracker  Tracker
	session  Session
	states   <-chan tracker.State
	explorer string

	state  tracker.State
	wallet string
	cursor int
	frame  int
	flash  string
	errMsg string
	now    func() time.Time

	Quitting bool
}

// NewDashboardModel subscribes to t. The caller owns unsubscribe.
func NewDashboardModel(t Tracker, s Session, opts DashboardOptions) (DashboardModel, func()) {
	ch, unsubscribe := t.Subscribe()
	return DashboardModel{
		tracker:  t,
		session:  s,
		states:   ch,
		explorer: opts.ExplorerTxURL,
		state:    t.Snapshot(),
		wallet:   s.WalletName(),
		now:      time.Now,
	}, unsubscribe
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), dashTick())
}

func dashTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return dashTickMsg{}
	})
}

// waitForState blocks on the subscription for the next snapshot.
func (m DashboardModel) waitForState() tea.Cmd {
	ch, s := m.states, m.session
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return stateMsg{state: st, wallet: s.WalletName()}
	}
}

// do runs fn off the update loop and reports its error, if any.
func do(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		if msg.state.Version >= m.state.Version {
			m.state = msg.state
			m.wallet = msg.wallet
		}
		m.clampCursor()
		return m, m.waitForState()

	case subscriptionClosedMsg:
		m.Quitting = true
		return m, tea.Quit

	case actionErrMsg:
		m.errMsg = msg.err.Error()

	case flashMsg:
		m.flash = string(msg)

	case dashTickMsg:
		m.frame = (m.frame + 1) % len(spinFrames)
		return m, dashTick()
	}
	return m, nil
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	m.errMsg = ""
	t, s := m.tracker, m.session

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.Quitting = true
		return m, tea.Quit

	case "r":
		return m, do(func() error { t.RefetchBalance(); return nil })

	case "t":
		return m, do(func() error { t.RefetchTransactions(); return nil })

	case "n":
		return m, do(s.Next)

	case "c":
		return m, do(s.Open)

	case "d":
		return m, do(s.Disconnect)

	case "up", "k":
		m.cursor = stepCursor(m.cursor, -1, len(m.state.Transactions.Data))

	case "down", "j":
		m.cursor = stepCursor(m.cursor, 1, len(m.state.Transactions.Data))

	case "o", "y":
		if row, ok := m.selected(); ok {
			var cmd tea.Cmd
			m.flash, cmd = rowAction(msg.String(), row)
			return m, cmd
		}
	}
	return m, nil
}

func (m *DashboardModel) clampCursor() {
	m.cursor = stepCursor(m.cursor, 0, len(m.state.Transactions.Data))
}

func (m DashboardModel) selected() (TxRow, bool) {
	txs := m.state.Transactions.Data
	if m.cursor < 0 || m.cursor >= len(txs) || txs[m.cursor].Hash == "" {
		return TxRow{}, false
	}
	hash := txs[m.cursor].Hash
	row := TxRow{FullHash: hash}
	if m.explorer != "" {
		row.ExplorerURL = m.explorer + hash
	}
	return row, true
}

// State returns the snapshot currently rendered.
func (m DashboardModel) State() tracker.State { return m.state }

func (m DashboardModel) View() string {
	if m.Quitting {
		return ""
	}
	spin := StyleChain.Render(spinFrames[m.frame])
	id := m.state.Identity

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("⚡ walletdash") + "\n")

	// ── Identity ──────────────────────────────────────────────────────────
	if id.Active() == "" {
		sb.WriteString(StyleMeta.Render("  Not connected · press c to connect") + "\n\n")
	} else {
		label := "address"
		if m.wallet != "" {
			label = m.wallet
		}
		sb.WriteString("  " + WalletName(label) + "  " + Addr(id.Address) + "\n\n")
	}

	// ── Balance ───────────────────────────────────────────────────────────
	bal := m.state.Balance
	sb.WriteString(StyleHeader.Render("Balance") + "\n")
	switch {
	case bal.IsLoading:
		sb.WriteString(fmt.Sprintf("  %s %s\n", spin, StyleMeta.Render("fetching balance…")))
	case bal.Data != nil:
		sb.WriteString("  " + Val(chain.FormatFixed(bal.Data.Formatted, BalancePlaces)) + " " + StyleMeta.Render("ETH") + "\n")
	default:
		sb.WriteString("  " + StyleMeta.Render("—") + "\n")
	}
	if bal.Error != nil {
		sb.WriteString("  " + Err(errorLine(bal.Error)) + "\n")
	}
	sb.WriteString("\n")

	// ── Transactions ──────────────────────────────────────────────────────
	txs := m.state.Transactions
	header := StyleHeader.Render("Recent transactions")
	if txs.IsLoading {
		header += "  " + spin + " " + StyleMeta.Render("fetching…")
	}
	sb.WriteString(header + "\n")
	if txs.Error != nil {
		sb.WriteString("  " + Err(errorLine(txs.Error)) + "\n")
	}
	switch {
	case len(txs.Data) > 0:
		table, _ := TransactionTable(txs.Data, id.Address, m.explorer, m.now())
		table.SelIdx = m.cursor
		sb.WriteString(table.Render())
	case !txs.IsLoading && id.Active() != "" && txs.Error == nil:
		sb.WriteString("  " + StyleMeta.Render("No transactions found") + "\n")
	}

	// ── Controls ──────────────────────────────────────────────────────────
	sb.WriteString("\n" + statusLine(m.errMsg, m.flash, dashboardControls()) + "\n")
	return sb.String()
}

func errorLine(e *tracker.ErrorInfo) string {
	return fmt.Sprintf("%s: %s", e.Kind, trimErr(e.Message, 60))
}

func dashboardControls() string {
	return keyHints(
		[2]string{"r", "balance"},
		[2]string{"t", "transactions"},
		[2]string{"n", "next wallet"},
		[2]string{"c", "connect"},
		[2]string{"d", "disconnect"},
		[2]string{"↑↓", "select"},
		[2]string{"o", "open"},
		[2]string{"y", "copy hash"},
		[2]string{"q", "quit"},
	)
}

// RunDashboard runs the dashboard until the user quits. It uses the alt
// screen so the terminal is restored on exit.
func RunDashboard(t Tracker, s Session, opts DashboardOptions) error {
	m, unsubscribe := NewDashboardModel(t, s, opts)
	defer unsubscribe()
	p := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
