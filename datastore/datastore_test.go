package datastore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Names []string `json:"names"`
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "data", "store.json"))
	cfg.AutoSaveInterval = 0
	return cfg
}

func TestRoundTripThroughFile(t *testing.T) {
	cfg := testConfig(t)

	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, ds.Put("guild", entry{Names: []string{"a"}}))
	require.NoError(t, Update(ds, "guild", func(e *entry) { e.Names = append(e.Names, "b") }))
	require.NoError(t, ds.Close())

	reopened, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	var got entry
	ok, err := reopened.Get("guild", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got.Names)

	ok, err = reopened.Get("missing", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClosedStore(t *testing.T) {
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	assert.ErrorIs(t, ds.Put("k", 1), ErrClosed)
	assert.ErrorIs(t, ds.SaveToFile(), ErrClosed)
	_, err = ds.Get("k", new(int))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBackupsArePruned(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackupCount = 2
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	for i := range 5 {
		require.NoError(t, ds.Put("n", i))
		require.NoError(t, ds.SaveToFile())
	}

	backups, err := filepath.Glob(cfg.FilePath + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestInvalidFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755))
	require.NoError(t, os.WriteFile(cfg.FilePath, []byte("not json"), 0o644))

	_, err := NewWithConfig(cfg)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestDelete(t *testing.T) {
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Put("k", "v"))
	assert.Equal(t, 1, ds.Len())
	ds.Delete("k")
	assert.Equal(t, 0, ds.Len())
}
