package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/compound/internal/fee"
	"github.com/roach88/compound/internal/ledger"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPool returns a set-up direct pool with default costs.
func createTestPool() ledger.Pool {
	return ledger.Pool{
		Admin:             "admin",
		Variant:           ledger.VariantDirect,
		StartRound:        100,
		EndRound:          1000,
		ClaimPeriodRounds: 100,
		LastHarvestRound:  100,
		FeeBalance:        100_000,
		BaseReserve:       100_000,
		Costs:             fee.DefaultCosts(),
	}
}
