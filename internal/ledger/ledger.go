package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fixedpoint"
	"github.com/roach88/compound/internal/harvestlog"
	"github.com/roach88/compound/internal/position"
	"github.com/roach88/compound/internal/schedule"
)

// Deps are the ledger's collaborators.
type Deps struct {
	Source YieldSource

	// Strategy defaults to Identity for the direct variant. The farm variant
	// requires one.
	Strategy YieldConversionStrategy

	// Persister defaults to an in-memory no-op.
	Persister Persister

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Ledger owns one pool, its harvest log, and every position in it.
//
// Mutating operations hold the write lock for their whole duration,
// including external calls, so operations never interleave. Queries take the
// read lock and observe only committed state.
type Ledger struct {
	mu        sync.RWMutex
	pool      Pool
	log       *harvestlog.Log
	positions map[AccountID]position.Position

	source    YieldSource
	strategy  YieldConversionStrategy
	persister Persister
	logger    *zap.Logger
}

type nopPersister struct{}

func (nopPersister) Commit(context.Context, Changeset) error { return nil }

// New creates a ledger for a fresh pool.
func New(cfg Config, deps Deps) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(newPool(cfg), harvestlog.New(), map[AccountID]position.Position{}, deps)
}

// Restore rebuilds a ledger from a persisted snapshot.
func Restore(s Snapshot, deps Deps) (*Ledger, error) {
	log, err := harvestlog.Load(s.Records)
	if err != nil {
		return nil, err
	}
	if log.Len() != s.Pool.HarvestCount {
		return nil, fault.New(fault.CodePrecondInvalid, "snapshot holds %d records but pool counts %d", log.Len(), s.Pool.HarvestCount)
	}
	if uint64(len(s.Positions)) != s.Pool.StakerCount {
		return nil, fault.New(fault.CodePrecondInvalid, "snapshot holds %d positions but pool counts %d stakers", len(s.Positions), s.Pool.StakerCount)
	}
	positions := make(map[AccountID]position.Position, len(s.Positions))
	for id, p := range s.Positions {
		positions[id] = p
	}
	return build(s.Pool, log, positions, deps)
}

func build(p Pool, log *harvestlog.Log, positions map[AccountID]position.Position, deps Deps) (*Ledger, error) {
	if deps.Source == nil {
		return nil, fault.New(fault.CodeInvalidInput, "yield source is required")
	}
	strategy := deps.Strategy
	if strategy == nil {
		if p.Variant == VariantFarm {
			return nil, fault.New(fault.CodeInvalidInput, "farm pool requires a conversion strategy")
		}
		strategy = Identity{}
	}
	persister := deps.Persister
	if persister == nil {
		persister = nopPersister{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		pool:      p,
		log:       log,
		positions: positions,
		source:    deps.Source,
		strategy:  strategy,
		persister: persister,
		logger:    logger,
	}, nil
}

// Pool returns the committed pool aggregates.
func (l *Ledger) Pool() Pool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pool
}

// Position returns an account's stored position, without replay.
func (l *Ledger) Position(account AccountID) (position.Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[account]
	if !ok {
		return position.Position{}, fault.New(fault.CodeNotJoined, "account %q has not joined", account)
	}
	return p, nil
}

// Balance projects an account's stake onto every recorded harvest without
// mutating anything. It returns the realizable whole units and the exact stake.
func (l *Ledger) Balance(account AccountID) (uint64, fixedpoint.Value, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[account]
	if !ok {
		return 0, fixedpoint.Zero, fault.New(fault.CodeNotJoined, "account %q has not joined", account)
	}
	stake, err := p.Project(l.log)
	if err != nil {
		return 0, fixedpoint.Zero, err
	}
	return stake.Floor(), stake, nil
}

// Records returns the retained harvest records with index in [from, to].
func (l *Ledger) Records(from, to uint64) []harvestlog.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.log.Range(from, to)
}

// Accounts returns every joined account.
func (l *Ledger) Accounts() []AccountID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedAccounts(l.positions)
}

// NextDue evaluates the harvest schedule at round.
func (l *Ledger) NextDue(round uint64) schedule.Due {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return nextDue(l.pool, round)
}

func nextDue(p Pool, round uint64) schedule.Due {
	return schedule.NextDue(schedule.Input{
		BalanceAboveReserve: p.Budget().AboveReserve(),
		FeePerHarvest:       p.HarvestCost(),
		LastHarvestRound:    p.LastHarvestRound,
		EndRound:            p.EndRound,
		CurrentRound:        round,
	})
}

// Audit checks that the realizable balances of all accounts, each projected
// onto every recorded harvest, never exceed the pool's total stake.
func (l *Ledger) Audit() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var sum uint64
	for id, p := range l.positions {
		stake, err := p.Project(l.log)
		if err != nil {
			if fault.HasCode(err, fault.CodeHistoryPurged) {
				stake = p.Stake
			} else {
				return err
			}
		}
		sum += stake.Floor()
		if sum > l.pool.TotalStake {
			return fault.New(fault.CodePrecondInvalid, "realizable stakes exceed total stake %d at account %q", l.pool.TotalStake, id).
				With("sum", sum).
				With("total_stake", l.pool.TotalStake)
		}
	}
	return nil
}

// Snapshot returns a deep copy of the committed state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	positions := make(map[AccountID]position.Position, len(l.positions))
	for id, p := range l.positions {
		positions[id] = p
	}
	return Snapshot{
		Pool:      l.pool,
		Records:   l.log.Range(1, l.log.Len()),
		Positions: positions,
	}
}
