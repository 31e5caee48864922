package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/compound/internal/config"
	"github.com/roach88/compound/internal/engine"
	"github.com/roach88/compound/internal/sim"
)

// Scenario is a conformance scenario: a pool, a sequence of operations with
// expected outcomes, and assertions over the resulting trace and state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Pool   config.PoolConfig   `yaml:"pool"`
	Source config.SourceConfig `yaml:"source,omitempty"`
	Venue  config.VenueConfig  `yaml:"venue,omitempty"`

	// IDs are the operation ids handed out in order. Once exhausted, ids
	// continue as "op-N".
	IDs []string `yaml:"ids,omitempty"`

	// Setup operations establish initial state and must all commit.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the main sequence. Each step may state its expected outcome.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation.
type Step struct {
	// Op is the operation kind, e.g. "stake" or "compound_now".
	Op     string `yaml:"op"`
	Caller string `yaml:"caller"`
	Round  uint64 `yaml:"round"`
	Escrow uint64 `yaml:"escrow,omitempty"`
	Amount uint64 `yaml:"amount,omitempty"`

	// Yield queues exact claim amounts on the source before the step runs.
	Yield []uint64 `yaml:"yield,omitempty"`

	// Fail injects a failure into the next call of one collaborator method:
	// "claim", "stake", "unstake", or "swap".
	Fail string `yaml:"fail,omitempty"`

	// Expect is checked against the step's outcome. Nil means the step must
	// commit.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected step outcome.
type ExpectClause struct {
	// Outcome is "ok" or a fault code such as "NOT_DUE".
	Outcome string `yaml:"outcome"`

	// Result is a subset match against the step's trace fields
	// (result, amount, total_stake, fee_balance, harvest_count,
	// harvest_index, growth_factor, realized, stake_before).
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op, Caller and Outcome filter events (trace_contains, trace_count).
	Op      string `yaml:"op,omitempty"`
	Caller  string `yaml:"caller,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of matches (trace_count, journal_count).
	Count int `yaml:"count,omitempty"`

	// Table is the state view: "pool", "positions", or "harvests" (final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects exactly one row of the view (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is a subset match against the selected row (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertJournalCount  = "journal_count"
	AssertAudit         = "audit"
)

// State view names.
const (
	TablePool      = "pool"
	TablePositions = "positions"
	TableHarvests  = "harvests"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Pool.Admin == "" {
		return fmt.Errorf("pool.admin is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot carry expect", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

var failTargets = map[string]bool{"claim": true, "stake": true, "unstake": true, "swap": true}

func validateStep(step Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	if _, err := engine.ParseKind(step.Op); err != nil {
		return err
	}
	if step.Fail != "" && !failTargets[step.Fail] {
		return fmt.Errorf("unknown failure target %q", step.Fail)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	case AssertFinalState:
		switch a.Table {
		case TablePool, TablePositions, TableHarvests:
		case "":
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		default:
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertAudit:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// inject arms a failure on the next call of target.
func inject(src *sim.Source, venue *sim.Venue, target string) {
	if target == "swap" {
		venue.FailNext()
		return
	}
	src.FailNext(target)
}
