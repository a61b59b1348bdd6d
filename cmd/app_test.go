package cmd

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/walletdash/internal/chain"
	"github.com/Mohsinsiddi/walletdash/internal/config"
	"github.com/Mohsinsiddi/walletdash/internal/tracker"
	"github.com/Mohsinsiddi/walletdash/internal/ui"
	"github.com/Mohsinsiddi/walletdash/internal/wallet"
)

const (
	addrMain = "0x7701A3bE6842720C08834E2d9E9507b5A28C0096"
	addrCold = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// useTempConfig points the package config at a fresh temp dir for one test.
func useTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	loaded, err := config.Load(dir)
	require.NoError(t, err)

	prev := cfg
	cfg = loaded
	t.Cleanup(func() { cfg = prev })
	return dir
}

// twoWallets returns an in-memory wallet book with "main" and "cold".
func twoWallets(t *testing.T) *wallet.Manager {
	t.Helper()
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.Add("main", addrMain)
	require.NoError(t, err)
	_, err = mgr.Add("cold", addrCold)
	require.NoError(t, err)
	return mgr
}

func testSession(t *testing.T, mgr *wallet.Manager) *wallet.Session {
	t.Helper()
	return wallet.NewSession(mgr,
		wallet.WithSelector(configuredSelector(mgr)),
		wallet.WithStatePath(filepath.Join(t.TempDir(), "session.json")),
	)
}

// ---------------------------------------------------------------------------
// configuredSelector / resolveTarget
// ---------------------------------------------------------------------------

func TestConfiguredSelectorPrefersConfigDefault(t *testing.T) {
	useTempConfig(t)
	mgr := twoWallets(t)
	require.NoError(t, mgr.SetDefault("main"))
	cfg.DefaultWallet = "cold"

	wallets, err := mgr.List()
	require.NoError(t, err)
	w, err := configuredSelector(mgr)(wallets)
	require.NoError(t, err)
	assert.Equal(t, "cold", w.Name)
}

func TestConfiguredSelectorFallsBackToBookDefault(t *testing.T) {
	useTempConfig(t)
	mgr := twoWallets(t)
	require.NoError(t, mgr.SetDefault("main"))
	cfg.DefaultWallet = "deleted"

	wallets, err := mgr.List()
	require.NoError(t, err)
	w, err := configuredSelector(mgr)(wallets)
	require.NoError(t, err)
	assert.Equal(t, "main", w.Name)
}

func TestConfiguredSelectorWithoutWallets(t *testing.T) {
	useTempConfig(t)
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := configuredSelector(mgr)(nil)
	assert.ErrorIs(t, err, wallet.ErrNoWallets)
}

func TestResolveTarget(t *testing.T) {
	useTempConfig(t)
	mgr := twoWallets(t)
	cfg.DefaultWallet = "cold"

	got, err := resolveTarget(mgr, "main")
	require.NoError(t, err)
	assert.Equal(t, addrMain, got)

	got, err = resolveTarget(mgr, "0x7701a3be6842720c08834e2d9e9507b5a28c0096")
	require.NoError(t, err)
	assert.Equal(t, addrMain, got, "literal addresses are checksummed")

	got, err = resolveTarget(mgr, "")
	require.NoError(t, err)
	assert.Equal(t, addrCold, got)

	_, err = resolveTarget(mgr, "nope")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

// ---------------------------------------------------------------------------
// connectTarget
// ---------------------------------------------------------------------------

func TestConnectTargetByNameAndAddress(t *testing.T) {
	useTempConfig(t)
	s := testSession(t, twoWallets(t))

	require.NoError(t, connectTarget(s, "cold"))
	assert.Equal(t, "cold", s.WalletName())
	assert.Equal(t, addrCold, s.GetIdentity().Address)

	require.NoError(t, connectTarget(s, addrMain))
	assert.Empty(t, s.WalletName(), "literal address is an ad-hoc connection")
	assert.True(t, s.GetIdentity().Connected)

	assert.ErrorIs(t, connectTarget(s, "0x1234"), chain.ErrInvalidAddress)
}

func TestConnectTargetRestoresThenOpens(t *testing.T) {
	useTempConfig(t)
	mgr := twoWallets(t)
	path := filepath.Join(t.TempDir(), "session.json")

	first := wallet.NewSession(mgr, wallet.WithStatePath(path))
	require.NoError(t, first.Connect("cold"))

	restored := wallet.NewSession(mgr, wallet.WithStatePath(path))
	require.NoError(t, connectTarget(restored, ""))
	assert.Equal(t, "cold", restored.WalletName())

	cfg.DefaultWallet = "main"
	fresh := wallet.NewSession(mgr,
		wallet.WithSelector(configuredSelector(mgr)),
		wallet.WithStatePath(filepath.Join(t.TempDir(), "none.json")))
	require.NoError(t, connectTarget(fresh, ""))
	assert.Equal(t, "main", fresh.WalletName())
}

// ---------------------------------------------------------------------------
// waitFor / fetchOnce
// ---------------------------------------------------------------------------

type stubBalances struct{ wei *big.Int }

func (s stubBalances) BalanceAt(_ context.Context, _ string) (*chain.Balance, error) {
	return &chain.Balance{Wei: s.wei, ETH: chain.WeiToETH(s.wei)}, nil
}

type stubHistory struct{ err error }

func (s stubHistory) Transactions(_ context.Context, _ string) ([]chain.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []chain.Transaction{{Hash: "0xabc", From: addrCold, To: addrMain, Value: "1"}}, nil
}

func TestFetchOnceWaitsForBothFetchers(t *testing.T) {
	useTempConfig(t)
	tr := tracker.New(stubBalances{wei: big.NewInt(1_500_000_000_000_000_000)}, stubHistory{},
		tracker.WithStagger(10*time.Millisecond))
	t.Cleanup(tr.Close)

	st, err := fetchOnce(context.Background(), tr, addrMain, balanceSettled)
	require.NoError(t, err)
	require.NotNil(t, st.Balance.Data)
	assert.Equal(t, "1.5", st.Balance.Data.Formatted)

	st, err = waitFor(context.Background(), tr, transactionsSettled)
	require.NoError(t, err)
	assert.Len(t, st.Transactions.Data, 1)
	assert.Nil(t, st.Transactions.Error)
}

func TestFetchOnceReportsFetchError(t *testing.T) {
	useTempConfig(t)
	tr := tracker.New(stubBalances{wei: big.NewInt(0)}, stubHistory{err: errors.New("boom")},
		tracker.WithStagger(0))
	t.Cleanup(tr.Close)

	st, err := fetchOnce(context.Background(), tr, addrMain, transactionsSettled)
	require.NoError(t, err)
	require.NotNil(t, st.Transactions.Error)
	assert.ErrorContains(t, fetchErr("transactions", st.Transactions.Error), "boom")
	assert.NoError(t, fetchErr("balance", st.Balance.Error))
}

func TestWaitForHonoursContext(t *testing.T) {
	tr := tracker.New(stubBalances{wei: big.NewInt(0)}, stubHistory{})
	t.Cleanup(tr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := waitFor(ctx, tr, balanceSettled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForClosedTracker(t *testing.T) {
	tr := tracker.New(stubBalances{wei: big.NewInt(0)}, stubHistory{})
	tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := waitFor(ctx, tr, balanceSettled)
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "tracker closed")
}

func TestFetchOnceUsesTrackerStagger(t *testing.T) {
	useTempConfig(t)
	cfg.Stagger = 0
	cfg.RequestTimeout = 100 * time.Millisecond

	tr := tracker.New(stubBalances{wei: big.NewInt(0)}, stubHistory{},
		tracker.WithStagger(300*time.Millisecond))
	t.Cleanup(tr.Close)

	st, err := fetchOnce(context.Background(), tr, addrMain, transactionsSettled)
	require.NoError(t, err)
	assert.Len(t, st.Transactions.Data, 1)
}

// ---------------------------------------------------------------------------
// applyWizard
// ---------------------------------------------------------------------------

func TestApplyWizardSavesEverything(t *testing.T) {
	dir := useTempConfig(t)
	secrets := config.NewMemorySecrets()
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)

	err := applyWizard(c, &ui.WizardResult{
		RPCURL:        "https://rpc.example",
		RPCAlgorithm:  "failover",
		APIKey:        "KEY",
		WalletAddress: addrMain,
		WalletName:    "hot",
	}, secrets, mgr)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "walletdash configured")

	key, err := secrets.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "KEY", key)

	w := mgr.Default()
	require.NotNil(t, w)
	assert.Equal(t, "hot", w.Name)

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example", reloaded.RPCURL)
	assert.Equal(t, "failover", reloaded.RPCAlgorithm)
	assert.Equal(t, "hot", reloaded.DefaultWallet)
	assert.Empty(t, reloaded.APIKey, "the key goes to the keychain, not the file")
}

func TestApplyWizardKeepsExistingWallet(t *testing.T) {
	useTempConfig(t)
	mgr := twoWallets(t)

	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)

	err := applyWizard(c, &ui.WizardResult{WalletAddress: addrCold, WalletName: "main"},
		config.NewMemorySecrets(), mgr)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "already exists")

	w, err := mgr.Get("main")
	require.NoError(t, err)
	assert.Equal(t, addrMain, w.Address)
	assert.True(t, w.IsDefault)
}
