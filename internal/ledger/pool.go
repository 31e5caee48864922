package ledger

import (
	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/fee"
)

// Variant selects how claimed yield becomes stake.
type Variant string

const (
	// VariantDirect restakes claimed yield as is.
	VariantDirect Variant = "direct"

	// VariantFarm swaps claimed reward tokens into the staking asset first.
	VariantFarm Variant = "farm"
)

// Phase is the pool lifecycle stage at a given round.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseLive
	PhaseEnded
	PhaseDeletable
	PhaseTornDown
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseLive:
		return "live"
	case PhaseEnded:
		return "ended"
	case PhaseDeletable:
		return "deletable"
	case PhaseTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// Config fixes a pool's parameters at creation.
type Config struct {
	Admin             AccountID
	Variant           Variant
	StartRound        uint64
	EndRound          uint64
	ClaimPeriodRounds uint64
	BaseReserve       uint64
	MinSwapThreshold  uint64
	Costs             fee.Costs
}

// Validate checks the round window and identities.
func (c Config) Validate() error {
	if c.Admin == "" {
		return fault.New(fault.CodeInvalidInput, "pool admin is required")
	}
	if c.Variant != VariantDirect && c.Variant != VariantFarm {
		return fault.New(fault.CodeInvalidInput, "unknown pool variant %q", c.Variant)
	}
	if c.StartRound == 0 {
		return fault.New(fault.CodeInvalidInput, "start round must be positive")
	}
	if c.EndRound <= c.StartRound {
		return fault.New(fault.CodeInvalidInput, "end round %d must be after start round %d", c.EndRound, c.StartRound).
			With("start_round", c.StartRound).
			With("end_round", c.EndRound)
	}
	if ^uint64(0)-c.EndRound < c.ClaimPeriodRounds {
		return fault.New(fault.CodeInvalidInput, "claim period %d overflows the round counter", c.ClaimPeriodRounds)
	}
	return nil
}

// Pool is the pool-wide aggregate state.
type Pool struct {
	Admin   AccountID
	Variant Variant

	TotalStake   uint64
	StakerCount  uint64
	HarvestCount uint64

	StartRound        uint64
	EndRound          uint64
	ClaimPeriodRounds uint64
	LastHarvestRound  uint64
	FinalHarvestDone  bool

	// FeeBalance is the base-currency credit the pool holds for fees.
	FeeBalance  uint64
	BaseReserve uint64

	// RetainedYield is raw yield held back below MinSwapThreshold.
	RetainedYield    uint64
	MinSwapThreshold uint64

	Costs   fee.Costs
	Deleted bool
}

func newPool(c Config) Pool {
	return Pool{
		Admin:             c.Admin,
		Variant:           c.Variant,
		StartRound:        c.StartRound,
		EndRound:          c.EndRound,
		ClaimPeriodRounds: c.ClaimPeriodRounds,
		BaseReserve:       c.BaseReserve,
		MinSwapThreshold:  c.MinSwapThreshold,
		Costs:             c.Costs,
	}
}

// SetUp reports whether the admin has primed the pool.
func (p Pool) SetUp() bool {
	return p.LastHarvestRound != 0
}

// Reserve is the minimum fee balance: the base reserve plus one record
// deposit per retained harvest record.
func (p Pool) Reserve() uint64 {
	return p.BaseReserve + p.HarvestCount*p.Costs.RecordWrite
}

// Budget returns the pool's fee balance view.
func (p Pool) Budget() fee.Budget {
	return fee.Budget{Balance: p.FeeBalance, Reserve: p.Reserve()}
}

// HarvestCost is the worst-case cost of one harvest for this variant.
func (p Pool) HarvestCost() uint64 {
	return p.Costs.Harvest(p.Variant == VariantFarm)
}

// Deletable reports whether the teardown timing rule holds at round.
func (p Pool) Deletable(round uint64) bool {
	if p.StakerCount == 0 && round > p.EndRound {
		return true
	}
	return round > p.EndRound+p.ClaimPeriodRounds
}

// Phase returns the lifecycle stage at round.
func (p Pool) Phase(round uint64) Phase {
	switch {
	case p.Deleted:
		return PhaseTornDown
	case !p.SetUp():
		return PhaseInit
	case round <= p.EndRound:
		return PhaseLive
	case p.Deletable(round):
		return PhaseDeletable
	default:
		return PhaseEnded
	}
}
