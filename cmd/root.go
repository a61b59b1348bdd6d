package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/config"
	wdlog "github.com/Mohsinsiddi/walletdash/internal/log"
	"github.com/Mohsinsiddi/walletdash/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/walletdash/cmd.Version=1.2.3" .
var Version = "0.1.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	cfgDir  string
	cfg     *config.Config
	logger  = zap.NewNop()
	verbose bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "walletdash",
	Short: "Watch-only wallet dashboard",
	Long: `walletdash: live balance and recent transactions for your wallets.

  Connect a saved wallet (or any address) and walletdash fetches its native
  balance over JSON-RPC, then its ten most recent transactions from an
  Etherscan-compatible explorer. Switch wallets and the data follows.

Run "walletdash init" once to pick an RPC endpoint and store an explorer
API key, then "walletdash dashboard".`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return setupLogger(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// setupLogger logs JSON to the log file. Only serve also logs to the console:
// anything else on stderr would tear the TUI.
func setupLogger(cmd *cobra.Command) error {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	l, err := wdlog.New(wdlog.Options{
		Level:   level,
		File:    cfg.LogPath(),
		Console: cmd.Name() == serveCmd.Name(),
	})
	if err != nil {
		return err
	}
	logger = l
	wdlog.RouteStdlib(logger)
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	// WALLETDASH_CONFIG_DIR env var overrides the --config default.
	if envDir := os.Getenv("WALLETDASH_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.walletdash)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	ui.Version = Version

	// Register all sub-commands.
	rootCmd.AddCommand(
		initCmd,
		dashboardCmd,
		serveCmd,
		balanceCmd,
		txsCmd,
		walletCmd,
		connectCmd,
		disconnectCmd,
		statusCmd,
		rpcCmd,
		configCmd,
	)
}
