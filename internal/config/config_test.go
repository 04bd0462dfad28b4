package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, 500*time.Millisecond, cfg.Autosave.Delay)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "ggmemo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
db:
  path: /data/file.db
autosave:
  delay: 2s
  limit: 100
log:
  level: debug
`), 0o644))

	t.Setenv("GGMEMO_CONFIG_PATH", path)
	t.Setenv("GGMEMO_DB_PATH", "/data/env.db")
	t.Setenv("GGMEMO_AUTH_ENABLED", "true")
	t.Setenv("GGMEMO_AUTH_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "/data/env.db", cfg.DB.Path)
	require.Equal(t, 2*time.Second, cfg.Autosave.Delay)
	require.Equal(t, 100, cfg.Autosave.Limit)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Auth.Enabled)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GGMEMO_LOG_LEVEL=warn\nGGMEMO_SERVER_PORT=7000\n"), 0o644))
	t.Setenv("GGMEMO_SERVER_PORT", "7100")
	t.Cleanup(func() { os.Unsetenv("GGMEMO_LOG_LEVEL") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, 7100, cfg.Server.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("GGMEMO_SERVER_PORT", "abc")
	_, err := Load()
	require.ErrorContains(t, err, "GGMEMO_SERVER_PORT")

	t.Setenv("GGMEMO_SERVER_PORT", "8080")
	t.Setenv("GGMEMO_AUTOSAVE_DELAY", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "GGMEMO_AUTOSAVE_DELAY")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Transport.Mode = "grpc"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Backend = "firestore"
	require.ErrorContains(t, cfg.Validate(), "GGMEMO_FIRESTORE_PROJECT")
	cfg.Store.ProjectID = "demo"
	require.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.KV.Backend = "redis"
	require.ErrorContains(t, cfg.Validate(), "GGMEMO_REDIS_ADDR")

	cfg = Default()
	cfg.Auth.Enabled = true
	require.ErrorContains(t, cfg.Validate(), "GGMEMO_AUTH_SECRET")
}
