package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/compound/internal/config"
	"github.com/roach88/compound/internal/engine"
	"github.com/roach88/compound/internal/fault"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/sim"
	"github.com/roach88/compound/internal/store"
)

// Harness executes one scenario against a real ledger persisted to an
// in-memory SQLite store, with simulated collaborators.
type Harness struct {
	store  *store.Store
	ledger *ledger.Ledger
	engine *engine.Engine
	src    *sim.Source
	venue  *sim.Venue
	logger *zap.Logger

	lastRound uint64
}

// Run executes a scenario with a discarded log.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(context.Background(), scenario, zap.NewNop())
}

// RunWithLogger executes a scenario and returns the result.
//
// Execution flow:
// 1. Create a fresh in-memory store and pool
// 2. Execute setup steps, which must all commit
// 3. Execute flow steps and check expect clauses
// 4. Capture final state views and evaluate assertions
//
// The returned error reports a harness failure (bad pool, failed setup,
// storage error). Expectation failures are recorded in Result.Errors.
func RunWithLogger(ctx context.Context, scenario *Scenario, logger *zap.Logger) (*Result, error) {
	h, err := newHarness(ctx, scenario, logger)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result := NewResult()
	for i, step := range scenario.Setup {
		event, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
		if event.Outcome != OutcomeOK {
			return nil, fmt.Errorf("setup step %d (%s by %s): rejected with %s", i, step.Op, step.Caller, event.Outcome)
		}
		result.AddTrace(event)
	}

	for i, step := range scenario.Flow {
		event, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
		result.AddTrace(event)
		if msg := checkExpect(i, step, event); msg != "" {
			result.AddError(msg)
		}
		h.logger.Debug("flow step completed",
			zap.Int("step", i),
			zap.String("op", step.Op),
			zap.String("outcome", event.Outcome),
		)
	}

	result.State = h.state()
	actx := &AssertionContext{Ctx: ctx, Store: h.store, Ledger: h.ledger}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario, logger *zap.Logger) (*Harness, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := &config.Config{Pool: scenario.Pool, Source: scenario.Source, Venue: scenario.Venue}
	cfg.ApplyDefaults()
	lc, err := cfg.Ledger()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	src := sim.NewSource(cfg.Source.RateBPS)
	venue := sim.NewVenue(cfg.Venue.RateBPS)
	st.TrackSource(src.State)

	l, err := ledger.New(lc, ledger.Deps{
		Source:    engine.ObserveSource(src),
		Strategy:  cfg.Strategy(engine.ObserveVenue(venue)),
		Persister: st,
		Logger:    logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if err := st.CreatePool(ctx, l.Pool()); err != nil {
		st.Close()
		return nil, err
	}

	return &Harness{
		store:  st,
		ledger: l,
		engine: engine.New(l, engine.WithIDs(engine.NewFixedGenerator(scenario.IDs...)), engine.WithLogger(logger)),
		src:    src,
		venue:  venue,
		logger: logger,
	}, nil
}

// execute runs one step. Ledger rejections become the event's outcome;
// only errors without a fault code are returned.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	kind, err := engine.ParseKind(step.Op)
	if err != nil {
		return TraceEvent{}, err
	}
	if len(step.Yield) > 0 {
		h.src.Queue(step.Yield...)
	}
	if step.Fail != "" {
		inject(h.src, h.venue, step.Fail)
	}
	if step.Round > h.lastRound {
		h.lastRound = step.Round
	}

	caller, err := ledger.ParseAccount(step.Caller)
	if err != nil {
		// An empty caller is a legitimate input to reject.
		caller = ledger.AccountID(step.Caller)
	}
	receipt, err := h.engine.Execute(ctx, engine.Request{
		Kind:   kind,
		Caller: caller,
		Round:  step.Round,
		Escrow: step.Escrow,
		Amount: step.Amount,
	})

	outcome := OutcomeOK
	if err != nil {
		code := fault.CodeOf(err)
		if code == "" {
			return TraceEvent{}, err
		}
		outcome = string(code)
	}

	p := h.ledger.Pool()
	return TraceEvent{
		Seq:          receipt.Op.Seq,
		OpID:         receipt.Op.ID,
		Op:           step.Op,
		Caller:       string(caller),
		Round:        step.Round,
		Escrow:       step.Escrow,
		Amount:       step.Amount,
		Outcome:      outcome,
		Result:       receipt.Op.Result,
		Harvest:      harvestTrace(receipt.Harvest),
		TotalStake:   p.TotalStake,
		FeeBalance:   p.FeeBalance,
		HarvestCount: p.HarvestCount,
	}, nil
}

// checkExpect returns a failure message, or "" when the event matches.
func checkExpect(i int, step Step, event TraceEvent) string {
	want := OutcomeOK
	if step.Expect != nil {
		want = step.Expect.Outcome
	}
	if event.Outcome != want {
		return fmt.Sprintf("flow[%d] %s by %s at round %d: expected outcome %s, got %s",
			i, step.Op, step.Caller, step.Round, want, event.Outcome)
	}
	if step.Expect == nil {
		return ""
	}
	actual := event.fields()
	for _, key := range sortedKeys(step.Expect.Result) {
		got, ok := actual[key]
		if !ok {
			return fmt.Sprintf("flow[%d] %s: result field %q not present", i, step.Op, key)
		}
		if !stateValuesEqual(step.Expect.Result[key], got) {
			return fmt.Sprintf("flow[%d] %s: result field %q = %v, want %v", i, step.Op, key, got, step.Expect.Result[key])
		}
	}
	return ""
}

// state captures the final state views.
func (h *Harness) state() map[string][]map[string]any {
	p := h.ledger.Pool()
	views := map[string][]map[string]any{
		TablePool: {{
			"admin":              string(p.Admin),
			"variant":            string(p.Variant),
			"phase":              p.Phase(h.lastRound).String(),
			"total_stake":        p.TotalStake,
			"staker_count":       p.StakerCount,
			"harvest_count":      p.HarvestCount,
			"fee_balance":        p.FeeBalance,
			"reserve":            p.Reserve(),
			"retained_yield":     p.RetainedYield,
			"last_harvest_round": p.LastHarvestRound,
			"final_harvest_done": p.FinalHarvestDone,
			"deleted":            p.Deleted,
		}},
		TablePositions: {},
		TableHarvests:  {},
	}

	for _, id := range h.ledger.Accounts() {
		pos, err := h.ledger.Position(id)
		if err != nil {
			continue
		}
		row := map[string]any{
			"account":       string(id),
			"stored_stake":  pos.Stake.String(),
			"last_observed": pos.LastObserved,
		}
		if units, exact, err := h.ledger.Balance(id); err == nil {
			row["balance"] = units
			row["stake"] = exact.String()
		} else {
			row["balance"] = pos.Realizable()
			row["stake"] = pos.Stake.String()
		}
		views[TablePositions] = append(views[TablePositions], row)
	}

	for _, r := range h.ledger.Records(1, p.HarvestCount) {
		views[TableHarvests] = append(views[TableHarvests], map[string]any{
			"index":         r.Index,
			"growth_factor": r.GrowthFactor.String(),
			"round":         r.Round,
			"realized":      r.Realized,
			"stake_before":  r.StakeBefore,
		})
	}
	return views
}
