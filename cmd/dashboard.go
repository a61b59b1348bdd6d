package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/ui"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard [wallet-name-or-address]",
	Aliases: []string{"dash"},
	Short:   "Live balance and transactions for the connected wallet",
	Long: `Open the live dashboard.

With no argument the last connection is restored, or the default wallet is
connected. Inside the dashboard:

  c  connect the default wallet     n  switch to the next wallet
  d  disconnect                     r  refetch balance
  t  refetch transactions           o  open the selected tx in a browser`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		if err := connectTarget(a.session, target); err != nil {
			// An empty wallet book still gets a dashboard; the user can add
			// wallets later and press c.
			if target != "" || !(errors.Is(err, wallet.ErrNoWallets) || errors.Is(err, wallet.ErrNoSelection)) {
				return err
			}
			logger.Info("starting disconnected", zap.Error(err))
		}

		a.tracker.Bind(a.session)
		return ui.RunDashboard(a.tracker, a.session, ui.DashboardOptions{
			ExplorerTxURL: cfg.ExplorerTxURL,
		})
	},
}
