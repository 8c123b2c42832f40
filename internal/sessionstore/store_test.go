package sessionstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tutord.db"))
			require.NoError(t, err)
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close()
			ctx := context.Background()

			t.Run("round trip", func(t *testing.T) {
				require.NoError(t, store.Save(ctx, "session/abc", []byte("payload")))
				got, err := store.Load(ctx, "session/abc")
				require.NoError(t, err)
				assert.Equal(t, []byte("payload"), got)
			})

			t.Run("overwrite", func(t *testing.T) {
				require.NoError(t, store.Save(ctx, "session/abc", []byte("v2")))
				got, err := store.Load(ctx, "session/abc")
				require.NoError(t, err)
				assert.Equal(t, []byte("v2"), got)
			})

			t.Run("not found", func(t *testing.T) {
				_, err := store.Load(ctx, "missing")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, store.Save(ctx, "doomed", []byte("x")))
				require.NoError(t, store.Delete(ctx, "doomed"))
				_, err := store.Load(ctx, "doomed")
				require.ErrorIs(t, err, ErrNotFound)

				// Missing key is not an error.
				require.NoError(t, store.Delete(ctx, "doomed"))
			})
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tutord.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "k", []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	require.Error(t, err)
}
