package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/config"
	"github.com/Mohsinsiddi/walletdash/internal/metrics"
	"github.com/Mohsinsiddi/walletdash/internal/rpc"
	"github.com/Mohsinsiddi/walletdash/internal/tracker"
	"github.com/Mohsinsiddi/walletdash/internal/ui"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

// app is the wired set of components a fetching command needs.
type app struct {
	client   *chain.Client
	explorer *chain.Explorer
	tracker  *tracker.Tracker
	metrics  *metrics.Metrics
	wallets  *wallet.Manager
	session  *wallet.Session
}

type appOptions struct {
	stagger     *time.Duration // nil keeps the configured stagger
	interactive bool           // the session's Open uses the TUI picker
}

// newApp selects an RPC endpoint, dials it and builds the tracker. The caller
// must call close.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	selectCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	rpcURL, err := rpc.SelectBest(selectCtx, cfg.Endpoints(), cfg.RPCAlgorithm, logger)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("selecting RPC endpoint: %w", err)
	}

	client, err := chain.Dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	apiKey := explorerAPIKey()
	if apiKey == "" {
		logger.Warn("no explorer API key; transaction history requests will be rejected")
	}
	explorer := chain.NewExplorer(chain.ExplorerConfig{
		BaseURL:   cfg.HistoryAPIURL,
		APIKey:    apiKey,
		ChainID:   cfg.ChainID,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	}, logger)

	stagger := cfg.Stagger
	if opts.stagger != nil {
		stagger = *opts.stagger
	}
	m := metrics.New()
	tr := tracker.New(client, explorer,
		tracker.WithStagger(stagger),
		tracker.WithFetchTimeout(cfg.RequestTimeout),
		tracker.WithLogger(logger),
		tracker.WithMetrics(m),
	)

	mgr := newWalletManager()

	logger.Info("walletdash ready",
		zap.String("rpc", rpcURL),
		zap.String("history_api", cfg.HistoryAPIURL),
		zap.Int64("chain_id", cfg.ChainID))

	return &app{
		client:   client,
		explorer: explorer,
		tracker:  tr,
		metrics:  m,
		wallets:  mgr,
		session:  newSession(mgr, opts.interactive),
	}, nil
}

func (a *app) close() {
	a.tracker.Close()
	a.client.Close()
}

// explorerAPIKey returns the configured key, opening the keychain only when
// config and environment have none.
func explorerAPIKey() string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return cfg.ResolveAPIKey(config.OpenSecrets(cfg.Dir()))
}

// newWalletManager opens the JSON wallet book in the config dir.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())))
}

// newSession returns a session over the wallet book without dialing anything.
func newSession(mgr *wallet.Manager, interactive bool) *wallet.Session {
	sel := configuredSelector(mgr)
	if interactive {
		sel = ui.PickWallet
	}
	return wallet.NewSession(mgr,
		wallet.WithSelector(sel),
		wallet.WithStatePath(cfg.SessionPath()),
	)
}

// configuredSelector prefers default_wallet from config, then the wallet
// book's own default.
func configuredSelector(mgr *wallet.Manager) wallet.Selector {
	fallback := wallet.DefaultSelector(mgr)
	return func(wallets []*wallet.Wallet) (*wallet.Wallet, error) {
		if name := strings.TrimSpace(cfg.DefaultWallet); name != "" {
			for _, w := range wallets {
				if w.Name == name {
					return w, nil
				}
			}
		}
		return fallback(wallets)
	}
}

// connectTarget connects s to a wallet name or literal address. An empty
// target restores the last session, falling back to Open.
func connectTarget(s *wallet.Session, target string) error {
	switch {
	case strings.HasPrefix(target, "0x") || strings.HasPrefix(target, "0X"):
		return s.ConnectAddress(target)
	case target != "":
		return s.Connect(target)
	}
	restored, err := s.Restore()
	if err != nil {
		logger.Warn("restoring session", zap.Error(err))
	}
	if restored {
		return nil
	}
	return s.Open()
}

// waitFor blocks until done reports true for a tracker snapshot or ctx ends.
func waitFor(ctx context.Context, tr *tracker.Tracker, done func(tracker.State) bool) (tracker.State, error) {
	ch, unsubscribe := tr.Subscribe()
	defer unsubscribe()

	if st := tr.Snapshot(); done(st) {
		return st, nil
	}
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return tr.Snapshot(), errors.New("tracker closed")
			}
			if done(st) {
				return st, nil
			}
		case <-ctx.Done():
			return tr.Snapshot(), ctx.Err()
		}
	}
}

func balanceSettled(st tracker.State) bool { return st.Balance.Settled() }

func transactionsSettled(st tracker.State) bool { return st.Transactions.Settled() }

// resolveTarget returns the address for a wallet name or literal address.
// An empty target picks the configured default wallet.
func resolveTarget(mgr *wallet.Manager, target string) (string, error) {
	if target != "" {
		return mgr.Resolve(target)
	}
	wallets, err := mgr.List()
	if err != nil {
		return "", err
	}
	w, err := configuredSelector(mgr)(wallets)
	if err != nil {
		return "", err
	}
	return w.Address, nil
}

// fetchOnce points the tracker at address and waits until done holds. It
// does not touch the remembered session.
func fetchOnce(ctx context.Context, tr *tracker.Tracker, address string, done func(tracker.State) bool) (tracker.State, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, tr.Stagger()+2*timeout)
	defer cancel()

	tr.Observe(tracker.Identity{Address: address, Connected: true})
	return waitFor(ctx, tr, done)
}

// fetchErr turns a settled fetch failure into a command error.
func fetchErr(what string, e *tracker.ErrorInfo) error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("fetching %s failed (%s): %s", what, e.Kind, e.Message)
}
