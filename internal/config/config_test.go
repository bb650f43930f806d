package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/cashgate/internal/address"
	"github.com/mrz1836/cashgate/internal/config"
	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := config.Defaults()
	cfg.Network = "testnet"
	cfg.Upstreams.RPC.URL = "http://node.internal:18332/"
	cfg.Upstreams.RPC.Username = "rpcuser"
	cfg.Auth.ProKeys = []string{"key-a", "key-b"}
	cfg.Feed.Enabled = true

	require.NoError(t, config.Save(cfg, path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Version, loaded.Version)
	assert.Equal(t, "testnet", loaded.Network)
	assert.Equal(t, cfg.Upstreams.RPC, loaded.Upstreams.RPC)
	assert.Equal(t, cfg.Auth.ProKeys, loaded.Auth.ProKeys)
	assert.True(t, loaded.Feed.Enabled)
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "~/.cashgate", cfg.Home)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Limits.FreePerWindow)
	assert.Equal(t, 600, cfg.Limits.ProPerWindow)
	assert.True(t, cfg.Limits.PerClient)
	assert.Equal(t, 20, cfg.Limits.FreeArraySize)
	assert.Equal(t, 100, cfg.Limits.ProArraySize)
	assert.False(t, cfg.Feed.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout())
	assert.Equal(t, time.Minute, cfg.RateWindow())
	require.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: regtest\nserver:\n  port: 8080\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "regtest", cfg.Network)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Limits.FreePerWindow)
	assert.Equal(t, address.Regtest, cfg.GetNetwork())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

		_, err := config.Load(path)
		require.ErrorIs(t, err, gateerr.ErrConfigInvalid)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown network", func(c *config.Config) { c.Network = "moonnet" }},
		{"empty network", func(c *config.Config) { c.Network = "" }},
		{"missing rpc url", func(c *config.Config) { c.Upstreams.RPC.URL = " " }},
		{"bad port", func(c *config.Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), gateerr.ErrConfigInvalid)
		})
	}
}

func TestDurations_Fallbacks(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Server.TimeoutSeconds = 0
	cfg.Upstreams.TimeoutSeconds = -1
	cfg.Feed.PollSeconds = 0
	cfg.Cache.CashAccountsTTLSeconds = 0

	assert.Equal(t, config.DefaultServerTimeout, cfg.ServerTimeout())
	assert.Equal(t, config.DefaultUpstreamTimeout, cfg.UpstreamTimeout())
	assert.Equal(t, config.DefaultFeedInterval, cfg.FeedInterval())
	assert.Zero(t, cfg.CashAccountsTTL())
}

func TestPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/tmp/cg", "config.yaml"), config.Path("/tmp/cg"))
	assert.NotEmpty(t, config.DefaultHome())
}
