package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/walletdash/internal/config"
	"github.com/Mohsinsiddi/walletdash/internal/ui"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup wizard",
	Long:  "Pick an RPC endpoint, store an explorer API key and save a first wallet.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Banner())

		if _, err := os.Stat(filepath.Join(cfg.Dir(), "config.yaml")); err == nil &&
			!ui.Confirm("Existing configuration found. Run setup again?") {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}

		result, err := ui.RunWizard()
		if err != nil {
			return err
		}
		if result.Cancelled {
			fmt.Fprintln(out, ui.Meta("Setup cancelled; nothing was changed."))
			return nil
		}
		return applyWizard(cmd, result, config.OpenSecrets(cfg.Dir()), newWalletManager())
	},
}

// applyWizard saves the wizard answers: RPC settings to config, the API key to
// secrets and the wallet to the wallet book as the default.
func applyWizard(cmd *cobra.Command, result *ui.WizardResult, secrets *config.Secrets, mgr *wallet.Manager) error {
	out := cmd.OutOrStdout()

	if result.RPCURL != "" {
		cfg.RPCURL = result.RPCURL
	}
	if result.RPCAlgorithm != "" {
		cfg.RPCAlgorithm = result.RPCAlgorithm
	}

	if result.APIKey != "" {
		if err := secrets.SetAPIKey(result.APIKey); err != nil {
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("Could not store API key: %v", err)))
			fmt.Fprintln(out, ui.Hint("Set WALLETDASH_API_KEY or run `walletdash config set-key` later."))
		}
	}

	if result.WalletAddress != "" {
		name := result.WalletName
		if name == "" {
			name = ui.DefaultWalletName
		}
		_, err := mgr.Add(name, result.WalletAddress)
		switch {
		case errors.Is(err, wallet.ErrWalletExists):
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("Wallet %q already exists; keeping the saved address.", name)))
		case err != nil:
			return err
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintln(out, ui.Success("walletdash configured! Run `walletdash dashboard` to start."))
	return nil
}
