package ledger

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"context"
)

// YieldSource is the external staking venue the pool stakes into.
type YieldSource interface {
	// Claim pulls accrued yield into the pool and returns the amount realized.
	Claim(ctx context.Context) (uint64, error)

	// StakeMore stakes amount into the source.
	StakeMore(ctx context.Context, amount uint64) error

	// Unstake brings amount back from the source.
	Unstake(ctx context.Context, amount uint64) error
}

// SwapVenue converts reward tokens into the staking asset (farm variant).
type SwapVenue interface {
	// SingleSidedDeposit deposits amount of asset and returns the staking
	// asset received.
	SingleSidedDeposit(ctx context.Context, asset string, amount uint64) (uint64, error)
}

// Persister durably records one committed operation.
type Persister interface {
	// Commit writes cs atomically. The ledger applies cs to memory only after
	// Commit returns nil.
	Commit(ctx context.Context, cs Changeset) error
}

// Checkpointer is implemented by collaborators whose calls can be undone.
// Checkpoint captures the current state and returns a function that restores
// it. A nil function means there is nothing to restore.
type Checkpointer interface {
	Checkpoint() func()
}

// CheckpointOf checkpoints c if it implements Checkpointer and returns nil
// otherwise.
func CheckpointOf(c any) func() {
	if cp, ok := c.(Checkpointer); ok {
		return cp.Checkpoint()
	}
	return nil
}
