package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/api"
	"github.com/Mohsinsiddi/walletdash/internal/storage"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve account lookups and the tracked session over HTTP",
	Long: `Start the HTTP API.

  GET  /api/health
  GET  /api/account/:address     balance, gas price and block number
  GET  /api/accounts             addresses looked up so far
  GET  /api/session              tracker snapshot
  POST /api/session/connect      {"wallet": "main"} or {"address": "0x..."}
  POST /api/session/disconnect
  POST /api/session/refetch/balance
  POST /api/session/refetch/transactions
  GET  /metrics                  Prometheus metrics

Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		db, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer db.Close()

		if err := connectTarget(a.session, ""); err != nil &&
			!errors.Is(err, wallet.ErrNoWallets) && !errors.Is(err, wallet.ErrNoSelection) {
			return err
		}
		a.tracker.Bind(a.session)

		srv := api.New(cfg, api.Deps{
			Chain:    a.client,
			Accounts: storage.NewAccountStore(db),
			Tracker:  a.tracker,
			Session:  a.session,
			Metrics:  a.metrics,
		}, logger)

		logger.Info("starting API server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("storage", storageLabel(cfg.Storage.Path)))

		if err := srv.Run(ctx); err != nil {
			return err
		}
		logger.Info("API server stopped")
		return nil
	},
}

func storageLabel(path string) string {
	if path == "" {
		return "memory"
	}
	return path
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
}
