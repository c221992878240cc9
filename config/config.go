package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the node-level settings for a lending pool daemon. Risk
// parameters for individual assets are configured at runtime through the
// admin API, not here.
type Config struct {
	ListenAddress     string `toml:"ListenAddress"`
	DataDir           string `toml:"DataDir"`
	AdminAddress      string `toml:"AdminAddress"`
	ModuleAddress     string `toml:"ModuleAddress"`
	CollateralAddress string `toml:"CollateralAddress"`

	// MinCollateralRatioBps is the pool-wide minimum collateral ratio in
	// basis points. 15000 means 150%.
	MinCollateralRatioBps uint64 `toml:"MinCollateralRatioBps"`
	// RequireFreshRate gates new borrows on oracle freshness.
	RequireFreshRate bool `toml:"RequireFreshRate"`
	// RateStaleAfterSeconds is the oracle freshness window.
	RateStaleAfterSeconds uint64 `toml:"RateStaleAfterSeconds"`

	// OracleSubmitters lists the identities allowed to push interest
	// rates.
	OracleSubmitters []string `toml:"OracleSubmitters"`

	// RateLimitPerSecond and RateLimitBurst bound oracle submissions per
	// client on the HTTP surface.
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
}

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./lendpool-data"
	}
	if strings.TrimSpace(c.ModuleAddress) == "" {
		c.ModuleAddress = "lendpool/vault"
	}
	if strings.TrimSpace(c.CollateralAddress) == "" {
		c.CollateralAddress = "lendpool/collateral"
	}
	if c.MinCollateralRatioBps == 0 {
		c.MinCollateralRatioBps = 15_000
	}
	if c.RateStaleAfterSeconds == 0 {
		c.RateStaleAfterSeconds = 3600
	}
	if c.OracleSubmitters == nil {
		c.OracleSubmitters = []string{}
	}
	if c.RateLimitPerSecond <= 0 {
		c.RateLimitPerSecond = 5
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdminAddress) == "" {
		return fmt.Errorf("config: AdminAddress is required")
	}
	if c.MinCollateralRatioBps < 10_000 {
		return fmt.Errorf("config: MinCollateralRatioBps %d below 100%%", c.MinCollateralRatioBps)
	}
	if strings.TrimSpace(c.ModuleAddress) == strings.TrimSpace(c.CollateralAddress) {
		return fmt.Errorf("config: ModuleAddress and CollateralAddress must differ")
	}
	for _, submitter := range c.OracleSubmitters {
		if strings.TrimSpace(submitter) == "" {
			return fmt.Errorf("config: blank oracle submitter entry")
		}
	}
	return nil
}

// createDefault writes and returns a default configuration file. The default
// admin identity must be replaced before the node accepts admin calls.
func createDefault(path string) (*Config, error) {
	cfg := &Config{AdminAddress: "lendpool/admin", RequireFreshRate: true}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
