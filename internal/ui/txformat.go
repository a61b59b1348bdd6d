package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
)

// Display precision.
const (
	BalancePlaces = 6
	valuePlaces   = 4
)

var spinFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TxRow holds per-transaction data needed for interactivity.
type TxRow struct {
	FullHash    string // full 0x... hash (for copy)
	ExplorerURL string // e.g. https://etherscan.io/tx/0x...
}

// Direction of a transaction relative to the connected address.
const (
	DirIn   = "IN"
	DirOut  = "OUT"
	DirSelf = "SELF"
)

// direction classifies tx from self's point of view and returns the other party.
func direction(tx chain.Transaction, self string) (dir, counterparty string) {
	from := chain.SameAddress(tx.From, self)
	to := !tx.IsContractCreation() && chain.SameAddress(tx.To, self)
	switch {
	case from && to:
		return DirSelf, tx.To
	case from:
		if tx.IsContractCreation() {
			return DirOut, "contract creation"
		}
		return DirOut, tx.To
	default:
		return DirIn, tx.From
	}
}

// Age renders how long ago t was: "42s", "5m", "3h", "12d". Zero time is "—".
func Age(t, now time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// TransactionTable lays txs out for self. The returned rows are parallel to
// the table rows. explorerTxURL is the prefix the hash is appended to; empty
// disables "open in browser".
func TransactionTable(txs []chain.Transaction, self, explorerTxURL string, now time.Time) (*Table, []TxRow) {
	t := NewTable([]Column{
		{Title: "HASH", Width: 13},
		{Title: "DIR", Width: 4},
		{Title: "COUNTERPARTY", Width: 17},
		{Title: "VALUE (ETH)", Width: 14},
		{Title: "METHOD", Width: 16},
		{Title: "AGE", Width: 5},
	})
	rows := make([]TxRow, 0, len(txs))
	for _, tx := range txs {
		dir, other := direction(tx, self)
		if tx.Failed() {
			dir = "FAIL"
		}
		if strings.HasPrefix(other, "0x") {
			other = TruncateAddr(other)
		}
		t.AddRow(Row{
			TruncateAddr(tx.Hash),
			dir,
			other,
			chain.FormatWei(tx.Value, valuePlaces),
			tx.Method(),
			Age(tx.Time(), now),
		})
		var url string
		if explorerTxURL != "" && tx.Hash != "" {
			url = explorerTxURL + tx.Hash
		}
		rows = append(rows, TxRow{FullHash: tx.Hash, ExplorerURL: url})
	}
	return t, rows
}

// trimErr strips noisy transport prefixes and caps the message for one line.
func trimErr(s string, limit int) string {
	for _, marker := range []string{"dial tcp", "connection refused", "context deadline"} {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	r := []rune(s)
	if limit > 0 && len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}
