package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	ctx := context.Background()

	fb, err := NewFileBackend(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	sb, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "resolver.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sb.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fb,
		"sqlite": sb,
	}
}

func TestBackends(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, KeySessions)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Put(ctx, KeySessions, []byte(`[1]`)))
			require.NoError(t, b.Put(ctx, KeySessions, []byte(`[1,2]`)))
			require.NoError(t, b.Put(ctx, KeyAPICredential, []byte("secret")))

			got, err := b.Get(ctx, KeySessions)
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(got))

			got, err = b.Get(ctx, KeyAPICredential)
			require.NoError(t, err)
			assert.Equal(t, "secret", string(got))

			require.NoError(t, b.Delete(ctx, KeyAPICredential))
			_, err = b.Get(ctx, KeyAPICredential)
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting twice is fine.
			require.NoError(t, b.Delete(ctx, KeyAPICredential))
		})
	}
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	rec := NewRecord(NewMemoryBackend(), KeySessions)
	assert.Equal(t, KeySessions, rec.Key())

	_, err := rec.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, rec.Save(ctx, []byte("[]")))
	data, err := rec.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	require.NoError(t, rec.Clear(ctx))
	require.NoError(t, rec.Clear(ctx))
	_, err = rec.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	value := []byte("abc")
	require.NoError(t, b.Put(ctx, "k", value))
	value[0] = 'x'

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileBackend_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Put(ctx, KeySessions, []byte("[]")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, KeySessions+".json", entries[0].Name())

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileBackend_RejectsPathKeys(t *testing.T) {
	ctx := context.Background()
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, b.Put(ctx, key, []byte("x")), key)
	}
}

func TestSQLiteBackend_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resolver.db")

	b, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, KeySessions, []byte(`[{"id":"a"}]`)))
	require.NoError(t, b.Close())

	b, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Get(ctx, KeySessions)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))
}
