// check-balances: queries the native balance of every saved wallet (or the
// addresses given as arguments) on every configured RPC endpoint in parallel
// and prints a summary table. Useful for spotting an endpoint that lags.
//
// Run from the module root:
//
//	go run ./scripts/check-balances [0xADDRESS ...]
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/config"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

const rpcTimeout = 12 * time.Second

// ── types ─────────────────────────────────────────────────────────────────────

type target struct {
	name    string
	address string
}

type result struct {
	rpc     string
	wallet  string // name, or short address
	balance string
	block   uint64
	err     string
}

// ── main ──────────────────────────────────────────────────────────────────────

func main() {
	cfg, err := config.Load(os.Getenv("WALLETDASH_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	targets, err := targetsFrom(cfg, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "no wallets saved; pass addresses as arguments")
		os.Exit(1)
	}

	var (
		mu      sync.Mutex
		results []result
	)
	g, ctx := errgroup.WithContext(context.Background())

	for _, url := range cfg.Endpoints() {
		for _, tg := range targets {
			g.Go(func() error {
				r := check(ctx, url, tg)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
				return nil
			})
		}
	}
	g.Wait() //nolint:errcheck

	printTable(results)
}

func targetsFrom(cfg *config.Config, args []string) ([]target, error) {
	if len(args) > 0 {
		out := make([]target, 0, len(args))
		for _, a := range args {
			addr, err := chain.ChecksumAddress(a)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a, err)
			}
			out = append(out, target{name: shortAddr(addr), address: addr})
		}
		return out, nil
	}

	mgr := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())))
	wallets, err := mgr.List()
	if err != nil {
		return nil, err
	}
	out := make([]target, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, target{name: w.Name, address: w.Address})
	}
	return out, nil
}

func check(ctx context.Context, url string, tg target) result {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	r := result{rpc: url, wallet: tg.name, balance: "—"}

	client, err := chain.Dial(ctx, url)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	defer client.Close()

	// Skip endpoints that do not answer a ping.
	_, block, err := client.Ping(ctx)
	if err != nil {
		r.err = "unreachable"
		return r
	}
	r.block = block

	bal, err := client.BalanceAt(ctx, tg.address)
	if err != nil {
		r.err = shortErr(err)
		return r
	}
	r.balance = bal.ETH
	return r
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.wallet != b.wallet {
			return a.wallet < b.wallet
		}
		return a.rpc < b.rpc
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "WALLET\tRPC\tBLOCK\tBALANCE (ETH)\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 12)+"\t"+
		strings.Repeat("-", 30)+"\t"+
		strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 24)+"\t"+
		strings.Repeat("-", 12))

	lastWallet := ""
	for _, r := range results {
		if r.wallet != lastWallet {
			if lastWallet != "" {
				fmt.Fprintln(w, "\t\t\t\t") // blank separator between wallets
			}
			lastWallet = r.wallet
		}
		block := "—"
		if r.block > 0 {
			block = fmt.Sprintf("%d", r.block)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.wallet, r.rpc, block, r.balance, r.err)
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}
