package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendpool.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, uint64(15_000), cfg.MinCollateralRatioBps)
	require.Equal(t, uint64(3600), cfg.RateStaleAfterSeconds)
	require.True(t, cfg.RequireFreshRate)
	require.NotEqual(t, cfg.ModuleAddress, cfg.CollateralAddress)

	// A second load round-trips the file it just wrote.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendpool.toml")
	require.NoError(t, os.WriteFile(path, []byte("AdminAddress = \"ops\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ops", cfg.AdminAddress)
	require.Equal(t, "./lendpool-data", cfg.DataDir)
	require.Equal(t, float64(5), cfg.RateLimitPerSecond)
	require.Equal(t, 10, cfg.RateLimitBurst)
	require.Empty(t, cfg.OracleSubmitters)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{AdminAddress: "ops"}
		cfg.applyDefaults()
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.AdminAddress = "  "
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.MinCollateralRatioBps = 9_000
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.CollateralAddress = cfg.ModuleAddress
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.OracleSubmitters = []string{"model-a", " "}
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendpool.toml")
	require.NoError(t, os.WriteFile(path, []byte("MinCollateralRatioBps = 9000\nAdminAddress = \"ops\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
