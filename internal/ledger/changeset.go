package ledger

import (
	"github.com/roach88/compound/internal/harvestlog"
	"github.com/roach88/compound/internal/position"
)

// OpKind names a ledger operation.
type OpKind string

const (
	OpSetup        OpKind = "setup"
	OpJoin         OpKind = "join"
	OpLeave        OpKind = "leave"
	OpForceLeave   OpKind = "force_leave"
	OpStake        OpKind = "stake"
	OpWithdraw     OpKind = "withdraw"
	OpTrigger      OpKind = "trigger"
	OpCompoundNow  OpKind = "compound_now"
	OpFundTriggers OpKind = "fund_triggers"
	OpLocalClaim   OpKind = "local_claim"
	OpPurge        OpKind = "purge"
	OpDeletePool   OpKind = "delete_pool"
)

// Call carries the caller context every operation runs under.
type Call struct {
	// OpID is a unique operation identifier assigned by the serializer.
	OpID string

	// Seq is the logical sequence number assigned by the serializer.
	Seq uint64

	Caller AccountID
	Round  uint64

	// Escrow is the fee payment the caller attached to the call.
	Escrow uint64
}

// OpRecord is the journal entry of a committed operation.
type OpRecord struct {
	ID     string
	Seq    uint64
	Kind   OpKind
	Caller AccountID
	Round  uint64
	Escrow uint64

	// Amount is the requested amount (stake, withdraw) or index (claim, purge).
	Amount uint64

	// Result is the realized amount for withdrawals.
	Result uint64
}

// PositionChange is the new state of one touched position.
type PositionChange struct {
	Account  AccountID
	Position position.Position
	Removed  bool
}

// Changeset is everything one operation changed. It is handed to the
// Persister before the ledger applies it in memory.
type Changeset struct {
	Op        OpRecord
	Pool      Pool
	Appended  []harvestlog.Record
	Positions []PositionChange

	// PurgedDownTo is set when records above it were deleted.
	PurgedDownTo *uint64

	// Teardown removes every position.
	Teardown bool
}

// Snapshot is the full persisted state of a ledger.
type Snapshot struct {
	Pool      Pool
	Records   []harvestlog.Record
	Positions map[AccountID]position.Position
}

// Receipt describes a committed operation to the caller.
type Receipt struct {
	Op OpRecord

	// Harvest is the record appended by the operation, if any.
	Harvest *harvestlog.Record

	// Settlement is set by DeletePool.
	Settlement *Settlement
}

// Settlement lists the residual assets returned to the admin at teardown.
type Settlement struct {
	Stake    uint64
	Yield    uint64
	Retained uint64
	Fees     uint64
}
