// Package schedule decides when the next permissionless harvest may fire.
//
// Pre-funded fee credit above the pool's reserve buys a number of triggers.
// Those triggers split the rounds left between the last harvest and the pool
// end into equal sub-intervals, so depositing more credit makes harvests
// happen more often without any off-ledger coordination.
package schedule

// Status classifies the result of NextDue.
type Status int

const (
	// Scheduled means the next harvest is due at Due.Round.
	Scheduled Status = iota

	// DueNow means a harvest may fire in the current round.
	DueNow

	// NoFundedTrigger means the balance above reserve cannot pay for one harvest.
	NoFundedTrigger

	// NoMoreTriggersNeeded means the next slot would fall at or past the end;
	// the remaining yield folds into the terminal harvest.
	NoMoreTriggersNeeded

	// PoolAlreadyEnded means the last harvest happened after the end round.
	PoolAlreadyEnded
)

func (s Status) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case DueNow:
		return "due_now"
	case NoFundedTrigger:
		return "no_funded_trigger"
	case NoMoreTriggersNeeded:
		return "no_more_triggers_needed"
	case PoolAlreadyEnded:
		return "pool_already_ended"
	default:
		return "unknown"
	}
}

// Input is everything NextDue needs.
type Input struct {
	BalanceAboveReserve uint64
	FeePerHarvest       uint64
	LastHarvestRound    uint64
	EndRound            uint64
	CurrentRound        uint64
}

// Due is the scheduling decision. Round is 0 unless Status is Scheduled.
type Due struct {
	Status Status
	Round  uint64
}

// Triggers returns how many harvests the balance above reserve pays for.
// A zero fee buys an unbounded number of triggers.
func Triggers(balanceAboveReserve, feePerHarvest uint64) uint64 {
	if feePerHarvest == 0 {
		return ^uint64(0)
	}
	return balanceAboveReserve / feePerHarvest
}

// NextDue computes the next harvest slot. The checks run in a fixed order:
// funding, then the end of the window, then whether the pool already ended,
// then whether the slot has arrived.
func NextDue(in Input) Due {
	triggers := Triggers(in.BalanceAboveReserve, in.FeePerHarvest)
	if triggers == 0 {
		return Due{Status: NoFundedTrigger}
	}

	candidate := in.LastHarvestRound
	if in.EndRound > in.LastHarvestRound && in.FeePerHarvest != 0 {
		candidate += (in.EndRound - in.LastHarvestRound) / triggers
	}

	if candidate >= in.EndRound {
		return Due{Status: NoMoreTriggersNeeded}
	}
	if in.LastHarvestRound > in.EndRound {
		return Due{Status: PoolAlreadyEnded}
	}
	if candidate <= in.CurrentRound {
		return Due{Status: DueNow}
	}
	return Due{Status: Scheduled, Round: candidate}
}

// Ready reports whether d permits a harvest now.
func (d Due) Ready() bool {
	return d.Status == DueNow
}
