package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/compound/internal/ledger"
)

// ReadOperations returns journaled operations with seq greater than afterSeq,
// at most limit of them (0 means no limit).
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no operations match.
func (s *Store) ReadOperations(ctx context.Context, afterSeq uint64, limit int) ([]ledger.OpRecord, error) {
	query := `
		SELECT seq, id, kind, caller, round, escrow, amount, result
		FROM operations
		WHERE seq > ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	args := []any{u64(afterSeq)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []ledger.OpRecord{}
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

func scanOp(rows *sql.Rows) (ledger.OpRecord, error) {
	var (
		seq, round, escrow, amount, result int64
		id, kind, caller                   string
	)
	if err := rows.Scan(&seq, &id, &kind, &caller, &round, &escrow, &amount, &result); err != nil {
		return ledger.OpRecord{}, fmt.Errorf("scan operation: %w", err)
	}
	return ledger.OpRecord{
		ID:     id,
		Seq:    fromI64(seq),
		Kind:   ledger.OpKind(kind),
		Caller: ledger.AccountID(caller),
		Round:  fromI64(round),
		Escrow: fromI64(escrow),
		Amount: fromI64(amount),
		Result: fromI64(result),
	}, nil
}

// LastSeq returns the highest journaled sequence number, or 0 if the journal
// is empty. The engine resumes its clock from here.
func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM operations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return fromI64(seq.Int64), nil
}
