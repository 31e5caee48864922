package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/compound/internal/harvestlog"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/sim"
)

// Commit writes one operation's changeset in a single transaction. It
// implements ledger.Persister.
//
// The journal insert uses ON CONFLICT(id) DO NOTHING, so committing the same
// operation twice leaves one journal row.
func (s *Store) Commit(ctx context.Context, cs ledger.Changeset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: begin tx: %w", cs.Op.Kind, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writePool(ctx, tx, cs.Pool); err != nil {
		return fmt.Errorf("commit %s: %w", cs.Op.Kind, err)
	}
	if cs.PurgedDownTo != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM harvest_records WHERE idx > ?`, u64(*cs.PurgedDownTo)); err != nil {
			return fmt.Errorf("commit %s: purge records: %w", cs.Op.Kind, err)
		}
	}
	for _, rec := range cs.Appended {
		if err := writeRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("commit %s: %w", cs.Op.Kind, err)
		}
	}
	if cs.Teardown {
		if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
			return fmt.Errorf("commit %s: clear positions: %w", cs.Op.Kind, err)
		}
	}
	for _, c := range cs.Positions {
		if err := writePosition(ctx, tx, c); err != nil {
			return fmt.Errorf("commit %s: %w", cs.Op.Kind, err)
		}
	}
	if err := writeOp(ctx, tx, cs.Op); err != nil {
		return fmt.Errorf("commit %s: %w", cs.Op.Kind, err)
	}
	if state := s.trackedSource(); state != nil {
		if err := writeSource(ctx, tx, state()); err != nil {
			return fmt.Errorf("commit %s: %w", cs.Op.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", cs.Op.Kind, err)
	}
	return nil
}

func writePool(ctx context.Context, tx *sql.Tx, p ledger.Pool) error {
	costs, err := marshalCosts(p.Costs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pool
		(id, admin, variant, total_stake, staker_count, harvest_count,
		 start_round, end_round, claim_period_rounds, last_harvest_round, final_harvest_done,
		 fee_balance, base_reserve, retained_yield, min_swap_threshold, costs, deleted)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			admin = excluded.admin,
			variant = excluded.variant,
			total_stake = excluded.total_stake,
			staker_count = excluded.staker_count,
			harvest_count = excluded.harvest_count,
			start_round = excluded.start_round,
			end_round = excluded.end_round,
			claim_period_rounds = excluded.claim_period_rounds,
			last_harvest_round = excluded.last_harvest_round,
			final_harvest_done = excluded.final_harvest_done,
			fee_balance = excluded.fee_balance,
			base_reserve = excluded.base_reserve,
			retained_yield = excluded.retained_yield,
			min_swap_threshold = excluded.min_swap_threshold,
			costs = excluded.costs,
			deleted = excluded.deleted
	`,
		string(p.Admin),
		string(p.Variant),
		u64(p.TotalStake),
		u64(p.StakerCount),
		u64(p.HarvestCount),
		u64(p.StartRound),
		u64(p.EndRound),
		u64(p.ClaimPeriodRounds),
		u64(p.LastHarvestRound),
		boolInt(p.FinalHarvestDone),
		u64(p.FeeBalance),
		u64(p.BaseReserve),
		u64(p.RetainedYield),
		u64(p.MinSwapThreshold),
		costs,
		boolInt(p.Deleted),
	)
	if err != nil {
		return fmt.Errorf("write pool: %w", err)
	}
	return nil
}

func writeRecord(ctx context.Context, tx *sql.Tx, rec harvestlog.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO harvest_records (idx, growth_factor, round, realized, stake_before)
		VALUES (?, ?, ?, ?, ?)
	`,
		u64(rec.Index),
		rec.GrowthFactor.Bytes(),
		u64(rec.Round),
		u64(rec.Realized),
		u64(rec.StakeBefore),
	)
	if err != nil {
		return fmt.Errorf("write harvest record %d: %w", rec.Index, err)
	}
	return nil
}

func writePosition(ctx context.Context, tx *sql.Tx, c ledger.PositionChange) error {
	if c.Removed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE account = ?`, string(c.Account)); err != nil {
			return fmt.Errorf("delete position %q: %w", c.Account, err)
		}
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO positions (account, stake, last_observed)
		VALUES (?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			stake = excluded.stake,
			last_observed = excluded.last_observed
	`,
		string(c.Account),
		c.Position.Stake.Bytes(),
		u64(c.Position.LastObserved),
	)
	if err != nil {
		return fmt.Errorf("write position %q: %w", c.Account, err)
	}
	return nil
}

func writeOp(ctx context.Context, tx *sql.Tx, op ledger.OpRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO operations (seq, id, kind, caller, round, escrow, amount, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		u64(op.Seq),
		op.ID,
		string(op.Kind),
		string(op.Caller),
		u64(op.Round),
		u64(op.Escrow),
		u64(op.Amount),
		u64(op.Result),
	)
	if err != nil {
		return fmt.Errorf("write operation %s: %w", op.ID, err)
	}
	return nil
}

func writeSource(ctx context.Context, tx *sql.Tx, state sim.SourceState) error {
	data, err := marshalSource(state)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sim_source (id, state) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state
	`, data)
	if err != nil {
		return fmt.Errorf("write source state: %w", err)
	}
	return nil
}

// SaveSource writes the simulated yield source's state outside any ledger
// operation.
func (s *Store) SaveSource(ctx context.Context, state sim.SourceState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save source: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeSource(ctx, tx, state); err != nil {
		return err
	}
	return tx.Commit()
}
