package ui

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// txListModel shows a fixed transaction table with row selection. The
// dashboard shares its cursor, row actions and status line.
type txListModel struct {
	title  string
	table  *Table
	rows   []TxRow // parallel to table.Rows
	cursor int
	flash  string
	errMsg string
}

func newTxList(title string, table *Table, rows []TxRow) txListModel {
	return txListModel{title: title, table: table, rows: rows}
}

func (m txListModel) Init() tea.Cmd { return nil }

func (m txListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case flashMsg:
		m.flash = string(msg)
	case actionErrMsg:
		m.errMsg = msg.err.Error()
	case tea.KeyMsg:
		m.flash, m.errMsg = "", ""
		switch k := msg.String(); k {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.cursor = stepCursor(m.cursor, -1, len(m.rows))
		case "down", "j":
			m.cursor = stepCursor(m.cursor, 1, len(m.rows))
		case "o", "y":
			if m.cursor < len(m.rows) {
				var cmd tea.Cmd
				m.flash, cmd = rowAction(k, m.rows[m.cursor])
				return m, cmd
			}
		}
	}
	return m, nil
}

func (m txListModel) View() string {
	m.table.SelIdx = m.cursor
	return m.title + "\n\n" + m.table.Render() + "\n" +
		statusLine(m.errMsg, m.flash, txListControls()) + "\n"
}

func txListControls() string {
	return keyHints(
		[2]string{"↑↓", "navigate"},
		[2]string{"o", "open in browser"},
		[2]string{"y", "copy hash"},
		[2]string{"q", "quit"},
	)
}

// RunTxList runs the interactive list until q or ESC, on the alt screen.
func RunTxList(title string, table *Table, rows []TxRow) error {
	p := tea.NewProgram(newTxList(title, table, rows),
		tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// stepCursor moves cur by delta within [0, n).
func stepCursor(cur, delta, n int) int {
	cur += delta
	if cur >= n {
		cur = n - 1
	}
	if cur < 0 {
		cur = 0
	}
	return cur
}

// rowAction handles the per-row keys: o opens the explorer page and y copies
// the hash. It returns either an immediate flash or a command that reports
// back with flashMsg or actionErrMsg.
func rowAction(key string, row TxRow) (string, tea.Cmd) {
	switch key {
	case "o":
		if row.ExplorerURL == "" {
			return "No explorer URL available", nil
		}
		url := row.ExplorerURL
		return "", func() tea.Msg {
			if err := openBrowser(url); err != nil {
				return actionErrMsg{err: err}
			}
			return flashMsg("Opening in browser…")
		}
	case "y":
		if row.FullHash == "" {
			return "No hash available", nil
		}
		hash := row.FullHash
		return "", func() tea.Msg {
			if err := copyToClipboard(hash); err != nil {
				return actionErrMsg{err: err}
			}
			return flashMsg("Copied: " + TruncateAddr(hash))
		}
	}
	return "", nil
}

// statusLine is the bottom line: an action error, else a flash, else the
// key hints.
func statusLine(errMsg, flash, controls string) string {
	switch {
	case errMsg != "":
		return Err(trimErr(errMsg, 60))
	case flash != "":
		return StyleSuccess.Render("  ✓ " + flash)
	default:
		return controls
	}
}

// keyHints renders {key, label} pairs as "[ key ] label".
func keyHints(pairs ...[2]string) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, StyleInfo.Render("[ "+p[0]+" ]")+StyleMeta.Render(" "+p[1]))
	}
	return strings.Join(parts, "  ")
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

// clipboardTools lists clipboard writers in order of preference.
func clipboardTools() [][]string {
	switch runtime.GOOS {
	case "darwin":
		return [][]string{{"pbcopy"}}
	case "windows":
		return [][]string{{"clip"}}
	default:
		return [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
	}
}

var errNoClipboard = errors.New("clipboard: no clipboard tool found")

func copyToClipboard(text string) error {
	for _, argv := range clipboardTools() {
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("clipboard: %s: %w", argv[0], err)
		}
		return nil
	}
	return errNoClipboard
}
