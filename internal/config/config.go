// Package config loads the pool, simulator, and keeper settings from YAML,
// then applies environment overrides and defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/compound/internal/fee"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/sim"
)

// Environment overrides.
const (
	EnvDatabase    = "COMPOUND_DB"
	EnvKeeperCron  = "COMPOUND_KEEPER_CRON"
	EnvMetricsAddr = "COMPOUND_METRICS_ADDR"
)

// Defaults.
const (
	DefaultDatabase    = "compound.db"
	DefaultKeeperCron  = "*/10 * * * * *"
	DefaultMetricsAddr = ":9102"
	DefaultRoundPeriod = 4 * time.Second
	DefaultSwapAsset   = "reward"
)

// Config holds all application configuration.
type Config struct {
	Database string       `yaml:"database"`
	Pool     PoolConfig   `yaml:"pool"`
	Source   SourceConfig `yaml:"source"`
	Venue    VenueConfig  `yaml:"venue"`
	Keeper   KeeperConfig `yaml:"keeper"`
}

// PoolConfig fixes the pool's parameters at creation.
type PoolConfig struct {
	Admin             string `yaml:"admin"`
	Variant           string `yaml:"variant"`
	StartRound        uint64 `yaml:"start_round"`
	EndRound          uint64 `yaml:"end_round"`
	ClaimPeriodRounds uint64 `yaml:"claim_period_rounds"`
	BaseReserve       uint64 `yaml:"base_reserve"`
	MinSwapThreshold  uint64 `yaml:"min_swap_threshold"`

	// Costs defaults to fee.DefaultCosts() when omitted.
	Costs *fee.Costs `yaml:"costs"`
}

// SourceConfig configures the simulated yield source.
type SourceConfig struct {
	RateBPS uint64 `yaml:"rate_bps"`
}

// VenueConfig configures the simulated swap venue (farm pools only).
type VenueConfig struct {
	Asset   string `yaml:"asset"`
	RateBPS uint64 `yaml:"rate_bps"`
}

// KeeperConfig configures the harvest keeper.
type KeeperConfig struct {
	Cron        string        `yaml:"cron"`
	Caller      string        `yaml:"caller"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Genesis     time.Time     `yaml:"genesis"`
	RoundPeriod time.Duration `yaml:"round_period"`
	RoundOffset uint64        `yaml:"round_offset"`
}

// Load reads config from a YAML file, then applies environment overrides and
// defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := decode(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

// Parse decodes YAML config from r and applies defaults. Environment
// overrides are not applied.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := decode(r, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvKeeperCron); v != "" {
		c.Keeper.Cron = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.Keeper.MetricsAddr = v
	}
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Pool.Variant == "" {
		c.Pool.Variant = string(ledger.VariantDirect)
	}
	if c.Pool.Costs == nil {
		costs := fee.DefaultCosts()
		c.Pool.Costs = &costs
	}
	if c.Venue.Asset == "" {
		c.Venue.Asset = DefaultSwapAsset
	}
	if c.Venue.RateBPS == 0 {
		c.Venue.RateBPS = sim.BasisPoints
	}
	if c.Keeper.Cron == "" {
		c.Keeper.Cron = DefaultKeeperCron
	}
	if c.Keeper.MetricsAddr == "" {
		c.Keeper.MetricsAddr = DefaultMetricsAddr
	}
	if c.Keeper.RoundPeriod == 0 {
		c.Keeper.RoundPeriod = DefaultRoundPeriod
	}
}

// Ledger returns the ledger configuration for the pool.
func (c *Config) Ledger() (ledger.Config, error) {
	admin, err := ledger.ParseAccount(c.Pool.Admin)
	if err != nil {
		return ledger.Config{}, fmt.Errorf("pool.admin: %w", err)
	}
	costs := fee.DefaultCosts()
	if c.Pool.Costs != nil {
		costs = *c.Pool.Costs
	}
	lc := ledger.Config{
		Admin:             admin,
		Variant:           ledger.Variant(c.Pool.Variant),
		StartRound:        c.Pool.StartRound,
		EndRound:          c.Pool.EndRound,
		ClaimPeriodRounds: c.Pool.ClaimPeriodRounds,
		BaseReserve:       c.Pool.BaseReserve,
		MinSwapThreshold:  c.Pool.MinSwapThreshold,
		Costs:             costs,
	}
	if err := lc.Validate(); err != nil {
		return ledger.Config{}, fmt.Errorf("pool: %w", err)
	}
	return lc, nil
}

// Strategy returns the yield conversion for the pool's variant, swapping
// through venue for farm pools. Direct pools get nil, which the ledger
// treats as Identity.
func (c *Config) Strategy(venue ledger.SwapVenue) ledger.YieldConversionStrategy {
	if ledger.Variant(c.Pool.Variant) != ledger.VariantFarm {
		return nil
	}
	return ledger.SwapThenRestake{Venue: venue, Asset: c.Venue.Asset, Threshold: c.Pool.MinSwapThreshold}
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if _, err := c.Ledger(); err != nil {
		return err
	}
	if _, err := cronParser.Parse(c.Keeper.Cron); err != nil {
		return fmt.Errorf("keeper.cron %q: %w", c.Keeper.Cron, err)
	}
	if c.Keeper.RoundPeriod < 0 {
		return fmt.Errorf("keeper.round_period must not be negative")
	}
	if c.Venue.RateBPS > 10*sim.BasisPoints {
		return fmt.Errorf("venue.rate_bps %d exceeds %d", c.Venue.RateBPS, 10*sim.BasisPoints)
	}
	return nil
}
