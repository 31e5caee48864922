package harness

import "github.com/roach88/compound/internal/harvestlog"

// OutcomeOK marks a committed operation. Rejected operations carry their
// fault code instead.
const OutcomeOK = "ok"

// TraceEvent is one executed operation and the pool aggregates after it.
type TraceEvent struct {
	Seq     uint64 `json:"seq"`
	OpID    string `json:"op_id"`
	Op      string `json:"op"`
	Caller  string `json:"caller"`
	Round   uint64 `json:"round"`
	Escrow  uint64 `json:"escrow,omitempty"`
	Amount  uint64 `json:"amount,omitempty"`
	Outcome string `json:"outcome"`

	// Result is the realized amount of a withdrawal.
	Result  uint64        `json:"result,omitempty"`
	Harvest *HarvestTrace `json:"harvest,omitempty"`

	TotalStake   uint64 `json:"total_stake"`
	FeeBalance   uint64 `json:"fee_balance"`
	HarvestCount uint64 `json:"harvest_count"`
}

// HarvestTrace is the harvest record appended by an operation.
type HarvestTrace struct {
	Index        uint64 `json:"index"`
	GrowthFactor string `json:"growth_factor"`
	Realized     uint64 `json:"realized"`
	StakeBefore  uint64 `json:"stake_before"`
}

func harvestTrace(r *harvestlog.Record) *HarvestTrace {
	if r == nil {
		return nil
	}
	return &HarvestTrace{
		Index:        r.Index,
		GrowthFactor: r.GrowthFactor.String(),
		Realized:     r.Realized,
		StakeBefore:  r.StakeBefore,
	}
}

// fields flattens an event for expect-clause matching.
func (e TraceEvent) fields() map[string]any {
	out := map[string]any{
		"result":        e.Result,
		"amount":        e.Amount,
		"total_stake":   e.TotalStake,
		"fee_balance":   e.FeeBalance,
		"harvest_count": e.HarvestCount,
	}
	if e.Harvest != nil {
		out["harvest_index"] = e.Harvest.Index
		out["growth_factor"] = e.Harvest.GrowthFactor
		out["realized"] = e.Harvest.Realized
		out["stake_before"] = e.Harvest.StakeBefore
	}
	return out
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every executed operation in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the final state views used by final_state assertions.
	State map[string][]map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  map[string][]map[string]any{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends one executed operation.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// Committed returns the trace events that committed.
func (r *Result) Committed() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Outcome == OutcomeOK {
			out = append(out, e)
		}
	}
	return out
}
