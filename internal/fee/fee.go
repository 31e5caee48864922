// Package fee prices the external sub-steps of composite ledger operations and
// tracks the pool's fee balance against its minimum reserve.
//
// Every step has a fixed cost in base-currency units. A step is paid either
// by the pool out of its fee balance (FromPool) or directly by the caller out
// of the escrow it supplied with the call (PooledByCaller). Writing a harvest
// record does not spend its cost: the amount is locked into the reserve, and
// released again when the record is purged.
package fee

import (
	"github.com/roach88/compound/internal/fault"
)

// MinTxFee is the base per-call network fee.
const MinTxFee = 1000

// recordKeyBytes and recordValueBytes size one stored harvest record.
const (
	recordKeyBytes   = 8
	recordValueBytes = 16
)

// Step is one external sub-step of a composite operation.
type Step int

const (
	StepRecordWrite Step = iota
	StepClaim
	StepSwap
	StepStake
	StepUnstake
)

func (s Step) String() string {
	switch s {
	case StepRecordWrite:
		return "record_write"
	case StepClaim:
		return "claim"
	case StepSwap:
		return "swap"
	case StepStake:
		return "stake"
	case StepUnstake:
		return "unstake"
	default:
		return "unknown"
	}
}

// PayMode selects who pays a step.
type PayMode int

const (
	// FromPool means the pool pays out of its fee balance.
	FromPool PayMode = iota

	// PooledByCaller means the caller pays out of the call's escrow.
	PooledByCaller
)

func (m PayMode) String() string {
	if m == PooledByCaller {
		return "pooled_by_caller"
	}
	return "from_pool"
}

// Costs is the fee table.
type Costs struct {
	RecordWrite uint64 `yaml:"record_write"`
	Claim       uint64 `yaml:"claim"`
	Swap        uint64 `yaml:"swap"`
	Stake       uint64 `yaml:"stake"`
	Unstake     uint64 `yaml:"unstake"`
}

// DefaultCosts returns the standard fee table.
func DefaultCosts() Costs {
	return Costs{
		RecordWrite: 2500 + 400*(recordKeyBytes+recordValueBytes),
		Claim:       4 * MinTxFee,
		Swap:        4 * MinTxFee,
		Stake:       3 * MinTxFee,
		Unstake:     3 * MinTxFee,
	}
}

// Of returns the cost of one step.
func (c Costs) Of(step Step) uint64 {
	switch step {
	case StepRecordWrite:
		return c.RecordWrite
	case StepClaim:
		return c.Claim
	case StepSwap:
		return c.Swap
	case StepStake:
		return c.Stake
	case StepUnstake:
		return c.Unstake
	default:
		return 0
	}
}

// Harvest returns the worst-case cost of one harvest: record write, claim,
// optional swap, and restake.
func (c Costs) Harvest(withSwap bool) uint64 {
	total := c.RecordWrite + c.Claim + c.Stake
	if withSwap {
		total += c.Swap
	}
	return total
}

// Validate fails with InsufficientFeeEscrow if supplied < required.
func Validate(supplied, required uint64) error {
	if supplied < required {
		return fault.New(fault.CodeInsufficientFeeEscrow, "escrow %d does not cover required fees %d", supplied, required).
			With("supplied", supplied).
			With("required", required)
	}
	return nil
}
