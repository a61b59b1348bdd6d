package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB runs the shared test suite against a DB implementation.
func testDB(t *testing.T, db DB) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, db.Put([]byte("key1"), []byte("value1")))

		val, err := db.Get([]byte("key1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonexistent", func(t *testing.T) {
		_, err := db.Get([]byte("nonexistent"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Has", func(t *testing.T) {
		require.NoError(t, db.Put([]byte("exists"), []byte("yes")))

		ok, err := db.Has([]byte("exists"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = db.Has([]byte("missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, db.Put([]byte("ow"), []byte("first")))
		require.NoError(t, db.Put([]byte("ow"), []byte("second")))

		val, err := db.Get([]byte("ow"))
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), val)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.Put([]byte("del"), []byte("value")))
		require.NoError(t, db.Delete([]byte("del")))

		ok, _ := db.Has([]byte("del"))
		assert.False(t, ok)

		_, err := db.Get([]byte("del"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ForEachPrefixInOrder", func(t *testing.T) {
		require.NoError(t, db.Put([]byte("p/b"), []byte("2")))
		require.NoError(t, db.Put([]byte("p/a"), []byte("1")))
		require.NoError(t, db.Put([]byte("q/a"), []byte("x")))

		var keys []string
		err := db.ForEach([]byte("p/"), func(key, value []byte) error {
			keys = append(keys, string(key))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"p/a", "p/b"}, keys)
	})

	t.Run("ForEachStopsOnError", func(t *testing.T) {
		stop := errors.New("stop")
		n := 0
		err := db.ForEach([]byte("p/"), func(key, value []byte) error {
			n++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, n)
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	testDB(t, db)
}

func TestMemoryDBReturnsCopies(t *testing.T) {
	db := NewMemory()
	v := []byte("abc")
	require.NoError(t, db.Put([]byte("k"), v))
	v[0] = 'z'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestOpenSelectsBackend(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)
	assert.IsType(t, &MemoryDB{}, db)

	db, err = Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	assert.IsType(t, &BadgerDB{}, db)
}

func TestBadgerLockedDirectory(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBadger(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = NewBadger(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by another process")
}
