package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/tracker"
	"github.com/Mohsinsiddi/walletdash/internal/ui"
)

var balanceJSON bool

var balanceCmd = &cobra.Command{
	Use:   "balance [wallet-name-or-address]",
	Short: "Fetch the native balance once",
	Long: `Fetch the native balance of a saved wallet or any address.

Without an argument the default wallet is used.

Examples:
  walletdash balance                 # default wallet
  walletdash balance cold
  walletdash balance 0xABC... --json`,
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

		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		spin := ui.NewSpinner(fmt.Sprintf("Fetching balance of %s...", ui.TruncateAddr(address)))
		if !balanceJSON {
			spin.Start()
		}
		st, err := fetchOnce(cmd.Context(), a.tracker, address, balanceSettled)
		if !balanceJSON {
			spin.Stop()
		}
		if err != nil {
			return err
		}
		if balanceJSON {
			return writeJSON(cmd, st.Balance)
		}
		if err := fetchErr("balance", st.Balance.Error); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Balance", balancePairs(target, st)))
		return nil
	},
}

func balancePairs(target string, st tracker.State) [][2]string {
	pairs := [][2]string{{"Address", ui.Addr(st.Identity.Address)}}
	if target != "" && !chain.SameAddress(target, st.Identity.Address) {
		pairs = append([][2]string{{"Wallet", ui.WalletName(target)}}, pairs...)
	}
	if rec := st.Balance.Data; rec != nil {
		pairs = append(pairs,
			[2]string{"Balance", chain.FormatFixed(rec.Formatted, ui.BalancePlaces) + " ETH"},
			[2]string{"Exact", rec.Formatted},
			[2]string{"Wei", rec.Raw},
		)
	}
	return pairs
}

// writeJSON prints v indented to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	balanceCmd.Flags().BoolVar(&balanceJSON, "json", false, "print the fetch state as JSON")
}
