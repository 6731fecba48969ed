package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seedkeeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"
)

var _ SecretStore = &FileStorage{}
var _ SecretStore = &BboltStorage{}
var _ Storeable = &DBSecret{}

var (
	secretA = models.Secret(strings.Repeat("a", 64))
	secretB = models.Secret(strings.Repeat("0123456789abcdef", 4))
)

func backends(t *testing.T) map[string]SecretStore {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := NewFileStorage(filepath.Join(dir, "data", "seed.txt"))
	require.NoError(t, err)

	boltStore, err := NewBboltStorage(filepath.Join(dir, "data", "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })

	return map[string]SecretStore{
		"file":  fileStore,
		"bbolt": boltStore,
	}
}

func TestSecretStore(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load()
			require.ErrorIs(t, err, models.ErrNotFound)

			require.NoError(t, store.Store(secretA))
			got, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, secretA, got)

			require.NoError(t, store.Store(secretB))
			got, err = store.Load()
			require.NoError(t, err)
			assert.Equal(t, secretB, got)
		})
	}
}

func TestSecretStore_ConcurrentReadersSeeWholeValues(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Store(secretA))

			var g errgroup.Group
			g.Go(func() error {
				for i := 0; i < 200; i++ {
					next := secretA
					if i%2 == 0 {
						next = secretB
					}
					if err := store.Store(next); err != nil {
						return err
					}
				}
				return nil
			})
			for r := 0; r < 4; r++ {
				g.Go(func() error {
					for i := 0; i < 200; i++ {
						got, err := store.Load()
						if err != nil {
							return err
						}
						if got != secretA && got != secretB {
							t.Errorf("observed torn value %q", string(got))
						}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())
		})
	}
}

func TestFileStorage_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.txt")
	store, err := NewFileStorage(path)
	require.NoError(t, err)

	t.Run("empty file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, nil, 0600))
		_, err := store.Load()
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("trailing newline", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(string(secretB)+"\n"), 0600))
		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, secretB, got)
	})

	t.Run("corrupt content", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("not a secret"), 0600))
		_, err := store.Load()
		require.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("store writes plain hex", func(t *testing.T) {
		require.NoError(t, store.Store(secretA))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, string(secretA), string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files must not be left behind")
	})
}

func TestBboltStorage_Record(t *testing.T) {
	store, err := NewBboltStorage(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	fixed := time.Unix(1700000000, 0)
	store.now = func() time.Time { return fixed }

	_, err = store.Record()
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.Store(secretA))
	first, err := store.Record()
	require.NoError(t, err)
	assert.Equal(t, string(secretA), first.Hex)
	assert.Equal(t, fixed.Unix(), first.ProvisionedAt)
	assert.NotEmpty(t, first.ID)

	require.NoError(t, store.Store(secretB))
	second, err := store.Record()
	require.NoError(t, err)
	assert.Equal(t, string(secretB), second.Hex)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestBboltStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	store, err := NewBboltStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(secretB))
	require.NoError(t, store.Close())

	store, err = NewBboltStorage(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, secretB, got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("file", filepath.Join(dir, "seed.txt"), filepath.Join(dir, "seed.db"))
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	s, err = Open("bbolt", filepath.Join(dir, "seed.txt"), filepath.Join(dir, "seed.db"))
	require.NoError(t, err)
	assert.IsType(t, &BboltStorage{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", "", "")
	require.ErrorIs(t, err, models.ErrConfiguration)
}

func TestBboltStorage_PutGet(t *testing.T) {
	store, err := NewBboltStorage(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	in := &DBSecret{ID: "rec-1", Hex: string(secretA), ProvisionedAt: 42}
	require.NoError(t, store.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketSecret, in)
	}))

	var out DBSecret
	require.NoError(t, store.db.View(func(tx *bbolt.Tx) error {
		return get(tx, bucketSecret, &out)
	}))
	assert.Equal(t, *in, out)

	require.NoError(t, store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSecret).Put(keyCurrent, []byte{0xc1})
	}))
	_, err = store.Record()
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}
