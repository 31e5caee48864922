package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/harvestlog"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/position"
	"github.com/roach88/compound/internal/sim"
)

// ErrNoPool is returned when the database holds no pool yet.
var ErrNoPool = errors.New("store: no pool has been created")

// CreatePool writes the initial pool row. It fails with AlreadyExists if the
// database already holds a pool.
func (s *Store) CreatePool(ctx context.Context, p ledger.Pool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create pool: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pool`).Scan(&n); err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if n > 0 {
		return fault.New(fault.CodeAlreadyExists, "database already holds a pool")
	}
	if err := writePool(ctx, tx, p); err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	return tx.Commit()
}

// LoadSnapshot reads the full ledger state. Returns ErrNoPool if no pool has
// been created.
func (s *Store) LoadSnapshot(ctx context.Context) (ledger.Snapshot, error) {
	p, err := s.readPool(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	records, err := s.ReadRecords(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	positions, err := s.readPositions(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return ledger.Snapshot{Pool: p, Records: records, Positions: positions}, nil
}

func (s *Store) readPool(ctx context.Context) (ledger.Pool, error) {
	var (
		p                                                    ledger.Pool
		admin, variant, costs                                string
		total, stakers, harvests, start, end, claim, last    int64
		final, balance, reserve, retained, threshold, deleted int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT admin, variant, total_stake, staker_count, harvest_count,
		       start_round, end_round, claim_period_rounds, last_harvest_round, final_harvest_done,
		       fee_balance, base_reserve, retained_yield, min_swap_threshold, costs, deleted
		FROM pool WHERE id = 1
	`).Scan(&admin, &variant, &total, &stakers, &harvests,
		&start, &end, &claim, &last, &final,
		&balance, &reserve, &retained, &threshold, &costs, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Pool{}, ErrNoPool
	}
	if err != nil {
		return ledger.Pool{}, fmt.Errorf("read pool: %w", err)
	}

	c, err := unmarshalCosts(costs)
	if err != nil {
		return ledger.Pool{}, fmt.Errorf("read pool: %w", err)
	}
	p = ledger.Pool{
		Admin:             ledger.AccountID(admin),
		Variant:           ledger.Variant(variant),
		TotalStake:        fromI64(total),
		StakerCount:       fromI64(stakers),
		HarvestCount:      fromI64(harvests),
		StartRound:        fromI64(start),
		EndRound:          fromI64(end),
		ClaimPeriodRounds: fromI64(claim),
		LastHarvestRound:  fromI64(last),
		FinalHarvestDone:  final != 0,
		FeeBalance:        fromI64(balance),
		BaseReserve:       fromI64(reserve),
		RetainedYield:     fromI64(retained),
		MinSwapThreshold:  fromI64(threshold),
		Costs:             c,
		Deleted:           deleted != 0,
	}
	return p, nil
}

// ReadRecords returns every retained harvest record in index order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadRecords(ctx context.Context) ([]harvestlog.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, growth_factor, round, realized, stake_before
		FROM harvest_records
		ORDER BY idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query harvest records: %w", err)
	}
	defer rows.Close()

	records := []harvestlog.Record{}
	for rows.Next() {
		var (
			idx, round, realized, before int64
			gf                           []byte
		)
		if err := rows.Scan(&idx, &gf, &round, &realized, &before); err != nil {
			return nil, fmt.Errorf("scan harvest record: %w", err)
		}
		v, err := unmarshalValue(gf, fmt.Sprintf("growth factor %d", idx))
		if err != nil {
			return nil, err
		}
		records = append(records, harvestlog.Record{
			Index:        fromI64(idx),
			GrowthFactor: v,
			Round:        fromI64(round),
			Realized:     fromI64(realized),
			StakeBefore:  fromI64(before),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate harvest records: %w", err)
	}
	return records, nil
}

func (s *Store) readPositions(ctx context.Context) (map[ledger.AccountID]position.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account, stake, last_observed
		FROM positions
		ORDER BY account COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	positions := map[ledger.AccountID]position.Position{}
	for rows.Next() {
		var (
			account  string
			stake    []byte
			observed int64
		)
		if err := rows.Scan(&account, &stake, &observed); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		v, err := unmarshalValue(stake, fmt.Sprintf("stake of %q", account))
		if err != nil {
			return nil, err
		}
		positions[ledger.AccountID(account)] = position.Position{Stake: v, LastObserved: fromI64(observed)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return positions, nil
}

// LoadSource reads the simulated yield source's saved state. The boolean is
// false if none was saved.
func (s *Store) LoadSource(ctx context.Context) (sim.SourceState, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sim_source WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return sim.SourceState{}, false, nil
	}
	if err != nil {
		return sim.SourceState{}, false, fmt.Errorf("read source state: %w", err)
	}
	state, err := unmarshalSource(data)
	if err != nil {
		return sim.SourceState{}, false, err
	}
	return state, true, nil
}
