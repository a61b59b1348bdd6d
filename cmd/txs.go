package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/walletdash/internal/ui"
)

var (
	txsPlain bool
	txsJSON  bool
)

var txsCmd = &cobra.Command{
	Use:   "txs [wallet-name-or-address]",
	Short: "List the ten most recent transactions",
	Long: `Fetch the ten most recent transactions from the explorer.

The list is interactive by default (o opens a transaction in the browser,
y copies its hash). Use --plain to print a table instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		address, err := resolveTarget(newWalletManager(), target)
		if err != nil {
			return err
		}

		noStagger := time.Duration(0)
		a, err := newApp(cmd.Context(), appOptions{stagger: &noStagger})
		if err != nil {
			return err
		}
		defer a.close()

		quiet := txsJSON || txsPlain
		spin := ui.NewSpinner(fmt.Sprintf("Fetching transactions of %s...", ui.TruncateAddr(address)))
		if !quiet {
			spin.Start()
		}
		st, err := fetchOnce(cmd.Context(), a.tracker, address, transactionsSettled)
		if !quiet {
			spin.Stop()
		}
		if err != nil {
			return err
		}
		if txsJSON {
			return writeJSON(cmd, st.Transactions)
		}
		if err := fetchErr("transactions", st.Transactions.Error); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		txs := st.Transactions.Data
		if len(txs) == 0 {
			fmt.Fprintln(out, ui.Meta("No transactions found."))
			return nil
		}

		table, rows := ui.TransactionTable(txs, address, cfg.ExplorerTxURL, time.Now())
		title := fmt.Sprintf("%s  %s", ui.StyleTitle.Render("Recent Transactions"), ui.Meta("("+address+")"))
		if txsPlain {
			fmt.Fprintf(out, "%s\n\n%s\n", title, table.Render())
			return nil
		}
		return ui.RunTxList(title, table, rows)
	},
}

func init() {
	txsCmd.Flags().BoolVar(&txsPlain, "plain", false, "print a plain table instead of the interactive list")
	txsCmd.Flags().BoolVar(&txsJSON, "json", false, "print the fetch state as JSON")
}
