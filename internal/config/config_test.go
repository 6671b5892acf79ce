package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DatabaseURLSkipsPostgresKeys(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.DSN())
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, "X-Anon-Id", cfg.AnonHeader)
	assert.Equal(t, "/media/", cfg.MediaURL)
}

func TestLoad_RequiredKeys(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("JWT_SECRET", "s")

	_, err := Load()
	assert.EqualError(t, err, "POSTGRES_USER is required")

	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoad_TerminalKeyNeedsPassword(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("TBANK_TERMINAL_KEY", "term")
	t.Setenv("TBANK_PASSWORD", "")

	_, err := Load()
	assert.EqualError(t, err, "TBANK_PASSWORD is required")
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ACCESS_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PostgresDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "shop")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "store")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5433 user=shop password=pw dbname=store sslmode=disable", cfg.DSN())
}

func TestLoadClient_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base: http://yaml/api/\ntimeout: 3s\n"), 0o600))

	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("STOREFRONT_API_BASE", "")
	t.Setenv("STOREFRONT_TIMEOUT", "")
	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://yaml/api", cfg.APIBase)
	assert.Equal(t, 3*time.Second, cfg.Timeout)

	t.Setenv("STOREFRONT_API_BASE", "http://env/api")
	cfg, err = LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env/api", cfg.APIBase)
}

func TestLoadClient_Errors(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("STOREFRONT_TIMEOUT", "-1s")
	_, err := LoadClient("")
	assert.EqualError(t, err, "STOREFRONT_TIMEOUT must be positive")

	t.Setenv("STOREFRONT_TIMEOUT", "")
	_, err = LoadClient(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
