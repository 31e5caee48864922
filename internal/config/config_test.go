package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/compound/internal/fee"
	"github.com/roach88/compound/internal/ledger"
)

const sample = `
database: /var/lib/compound/pool.db
pool:
  admin: admin
  variant: farm
  start_round: 100
  end_round: 1000
  claim_period_rounds: 100
  base_reserve: 100000
  min_swap_threshold: 50
  costs:
    record_write: 12100
    claim: 4000
    swap: 4000
    stake: 3000
    unstake: 3000
source:
  rate_bps: 25
venue:
  asset: gard
  rate_bps: 9500
keeper:
  cron: "0 */1 * * * *"
  caller: bot
  genesis: 2026-01-01T00:00:00Z
  round_period: 3s
  round_offset: 40
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compound.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/compound/pool.db", cfg.Database)
	assert.Equal(t, uint64(25), cfg.Source.RateBPS)
	assert.Equal(t, "gard", cfg.Venue.Asset)
	assert.Equal(t, "bot", cfg.Keeper.Caller)
	assert.Equal(t, 3*time.Second, cfg.Keeper.RoundPeriod)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Keeper.Genesis.UTC())
	assert.Equal(t, DefaultMetricsAddr, cfg.Keeper.MetricsAddr)

	lc, err := cfg.Ledger()
	require.NoError(t, err)
	assert.Equal(t, ledger.Config{
		Admin:             "admin",
		Variant:           ledger.VariantFarm,
		StartRound:        100,
		EndRound:          1000,
		ClaimPeriodRounds: 100,
		BaseReserve:       100_000,
		MinSwapThreshold:  50,
		Costs:             fee.DefaultCosts(),
	}, lc)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, DefaultKeeperCron, cfg.Keeper.Cron)
	assert.Equal(t, DefaultRoundPeriod, cfg.Keeper.RoundPeriod)
	assert.Equal(t, string(ledger.VariantDirect), cfg.Pool.Variant)
	require.NotNil(t, cfg.Pool.Costs)
	assert.Equal(t, fee.DefaultCosts(), *cfg.Pool.Costs)

	// Defaults alone do not describe a pool.
	assert.Error(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDatabase, "/tmp/override.db")
	t.Setenv(EnvKeeperCron, "@every 30s")
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9999")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database)
	assert.Equal(t, "@every 30s", cfg.Keeper.Cron)
	assert.Equal(t, "127.0.0.1:9999", cfg.Keeper.MetricsAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "pool:\n  admn: admin\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admn")
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabase, cfg.Database)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no database", func(c *Config) { c.Database = "" }, "database is required"},
		{"no admin", func(c *Config) { c.Pool.Admin = "" }, "pool.admin"},
		{"bad variant", func(c *Config) { c.Pool.Variant = "vault" }, "unknown pool variant"},
		{"inverted window", func(c *Config) { c.Pool.EndRound = 50 }, "must be after start round"},
		{"bad cron", func(c *Config) { c.Keeper.Cron = "every minute" }, "keeper.cron"},
		{"five-field cron", func(c *Config) { c.Keeper.Cron = "* * * * *" }, "keeper.cron"},
		{"negative period", func(c *Config) { c.Keeper.RoundPeriod = -time.Second }, "round_period"},
		{"venue rate", func(c *Config) { c.Venue.RateBPS = 1_000_000 }, "venue.rate_bps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(strings.NewReader(sample))
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStrategy(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	got := cfg.Strategy(nil)
	require.IsType(t, ledger.SwapThenRestake{}, got)
	swap := got.(ledger.SwapThenRestake)
	assert.Equal(t, "gard", swap.Asset)
	assert.Equal(t, uint64(50), swap.Threshold)

	cfg.Pool.Variant = string(ledger.VariantDirect)
	assert.Nil(t, cfg.Strategy(nil))
}
