package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/walletdash/internal/config"
	"github.com/Mohsinsiddi/walletdash/internal/rpc"
	"github.com/Mohsinsiddi/walletdash/internal/ui"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

var connectCmd = &cobra.Command{
	Use:   "connect [wallet-name-or-address]",
	Short: "Connect a wallet for the next dashboard session",
	Long: `Connect a saved wallet by name or any address. Without an argument a
picker lists the saved wallets.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(newWalletManager(), true)
		var err error
		if len(args) == 1 {
			err = connectTarget(s, args[0])
		} else {
			err = s.Open()
		}
		out := cmd.OutOrStdout()
		if errors.Is(err, wallet.ErrNoSelection) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success("Connected "+identityLabel(s)))
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the connected wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(newWalletManager(), false)
		if err := s.Disconnect(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Disconnected."))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection, RPC health and explorer key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(newWalletManager(), false)
		restored, err := s.Restore()
		if err != nil {
			return err
		}

		connection := ui.Meta("not connected")
		if restored {
			connection = identityLabel(s)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		defer cancel()
		ep, err := rpc.HealthCheck(ctx, cfg.RPCURL, 0)
		health := ui.StyleSuccess.Render(fmt.Sprintf("healthy (%dms, block %d)", ep.Latency.Milliseconds(), ep.BlockNumber))
		if err != nil {
			health = ui.StyleError.Render("down: " + err.Error())
		}

		key := ui.StyleWarning.Render("missing (run `walletdash config set-key`)")
		if explorerAPIKey() != "" {
			key = ui.StyleSuccess.Render("configured")
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Status", [][2]string{
			{"Connection", connection},
			{"RPC", cfg.RPCURL},
			{"RPC health", health},
			{"History API", cfg.HistoryAPIURL},
			{"API key", key},
			{"Config dir", cfg.Dir()},
		}))
		return nil
	},
}

// identityLabel renders the session identity as "name (0x...)" or the bare
// address for an ad-hoc connection.
func identityLabel(s *wallet.Session) string {
	addr := ui.Addr(s.GetIdentity().Address)
	if name := s.WalletName(); name != "" {
		return ui.WalletName(name) + " " + addr
	}
	return addr
}
