package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apmishra/gai-symptom-resolver/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PROVIDER", "MODEL", "BASE_URL", "STORAGE", "DATA_DIR", "LOG_LEVEL", "LOG_DEV"} {
		t.Setenv(EnvPrefix+"_"+k, "")
	}
}

func TestManager_LoadMissing(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "cfg"))
	assert.False(t, m.Exists())

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestManager_SaveLoad(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "cfg"))
	want := &Config{Provider: "openai", Model: "gpt-4o-mini", Storage: StorageSQLite}

	require.NoError(t, m.Save(want))
	assert.True(t, m.Exists())

	info, err := os.Stat(m.GetConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestManager_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0600))

	_, err := NewManagerAt(dir).Load()
	assert.Error(t, err)
}

func TestManager_ResolveDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := NewManagerAt(dir).Resolve()
	require.NoError(t, err)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.Provider)
}

func TestManager_ResolveEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	m := NewManagerAt(t.TempDir())
	require.NoError(t, m.Save(&Config{Provider: "openai", Model: "gpt-4o-mini"}))

	t.Setenv("RESOLVER_PROVIDER", "anthropic")
	t.Setenv("RESOLVER_STORAGE", "sqlite")
	t.Setenv("RESOLVER_LOG_DEV", "true")

	cfg, err := m.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.True(t, cfg.LogDev)
}

func TestManager_ResolveRejectsUnknownStorage(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESOLVER_STORAGE", "s3")
	_, err := NewManagerAt(t.TempDir()).Resolve()
	assert.Error(t, err)
}

func TestLoadEnv_BadBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESOLVER_LOG_DEV", "maybe")
	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestKeyStore(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	ks := NewKeyStore(backend)

	key, err := ks.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, ks.Save(ctx, "  AIza-secret-1234 \n"))
	key, err = ks.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret-1234", key)

	// The session record is untouched by credential writes.
	_, err = backend.Get(ctx, storage.KeySessions)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, ks.Save(ctx, ""))
	key, err = ks.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(not set)", Mask(""))
	assert.Equal(t, "***", Mask("abc"))
	assert.Equal(t, "******1234", Mask("abcdef1234"))
}
