package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// NewJSONStore / Load / Save
// ---------------------------------------------------------------------------

func TestJSONStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := NewJSONStore(path)

	wallets := []*Wallet{
		{Name: "alice", Address: "0x1111"},
		{Name: "bob", Address: "0x2222", IsDefault: true},
	}
	require.NoError(t, store.Save(wallets))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alice", loaded[0].Name)
	assert.Equal(t, "bob", loaded[1].Name)
	assert.True(t, loaded[1].IsDefault)
}

func TestJSONStoreLoadNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.json")
	store := NewJSONStore(path)

	wallets, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, wallets, "loading a missing file should return nil, nil")
}

func TestJSONStoreSaveRestrictivePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	store := NewJSONStore(path)
	require.NoError(t, store.Save([]*Wallet{{Name: "w", Address: "0x1"}}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0 { // Unix only
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestJSONStoreFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, NewJSONStore(path).Save([]*Wallet{{
		Name: "full", Address: "0xABCD", IsDefault: true, CreatedAt: "2024-01-01T00:00:00Z",
	}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"name"`, `"address"`, `"is_default"`, `"created_at"`} {
		assert.Contains(t, string(raw), key)
	}
}

func TestJSONStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0600))

	store := NewJSONStore(path)
	_, err := store.Load()
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// WithStore option
// ---------------------------------------------------------------------------

func TestWithStoreOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")

	mgr := NewManager(WithStore(NewJSONStore(path)))
	_, err := mgr.Add("test-ws", "0x7701a3be6842720c08834e2d9e9507b5a28c0096")
	require.NoError(t, err)

	// Reload from same path; the wallet should persist.
	mgr2 := NewManager(WithStore(NewJSONStore(path)))
	w, err := mgr2.Get("test-ws")
	require.NoError(t, err)
	assert.Equal(t, "0x7701A3bE6842720C08834E2d9E9507b5A28C0096", w.Address)
}

func TestManagerLoadErrorSurfaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte("[oops"), 0600))

	mgr := NewManager(WithStore(NewJSONStore(path)))
	_, err := mgr.List()
	assert.Error(t, err)
}
