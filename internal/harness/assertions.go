package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s by %s at round %d: %s\n", event.Seq, event.Op, event.Caller, event.Round, event.Outcome)
		}
	}
	return buf.String()
}

// matches reports whether event passes the assertion's op, caller and
// outcome filters. Empty filters match anything.
func (a Assertion) matches(event TraceEvent) bool {
	if a.Op != "" && event.Op != a.Op {
		return false
	}
	if a.Caller != "" && event.Caller != a.Caller {
		return false
	}
	if a.Outcome != "" && event.Outcome != a.Outcome {
		return false
	}
	return true
}

func (a Assertion) describe() string {
	parts := []string{a.Op}
	if a.Caller != "" {
		parts = append(parts, "by "+a.Caller)
	}
	if a.Outcome != "" {
		parts = append(parts, "with outcome "+a.Outcome)
	}
	return strings.Join(parts, " ")
}

// assertTraceContains checks that at least one event matches.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if assertion.matches(event) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: assertion.describe(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first committed occurrence of each op
// appears in order. Intervening operations are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Outcome != OutcomeOK {
			continue
		}
		if _, seen := positions[event.Op]; !seen {
			positions[event.Op] = i + 1
		}
	}

	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops committed: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(assertion.Ops); i++ {
		prev, curr := assertion.Ops[i-1], assertion.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the number of matching events.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.matches(event) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.describe()),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertJournalCount checks how many operations the store journaled.
func assertJournalCount(ctx context.Context, st *store.Store, assertion Assertion) error {
	ops, err := st.ReadOperations(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(ops) != assertion.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d journaled operations", assertion.Count),
			Actual:   fmt.Sprintf("%d journaled operations", len(ops)),
		}
	}
	return nil
}

// assertFinalState selects exactly one row of a state view and checks the
// expected fields (subset semantics).
func assertFinalState(state map[string][]map[string]any, assertion Assertion) error {
	rows, ok := state[assertion.Table]
	if !ok {
		return fmt.Errorf("final_state: unknown table %q", assertion.Table)
	}

	var matched []map[string]any
	for _, row := range rows {
		if rowMatches(row, assertion.Where) {
			matched = append(matched, row)
		}
	}
	whereDesc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	row := matched[0]
	for _, key := range sortedKeys(assertion.Expect) {
		actualValue, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in %s columns: %v", key, assertion.Table, sortedKeys(row)),
			}
		}
		if !stateValuesEqual(assertion.Expect[key], actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s where %s: %s = %v", assertion.Table, whereDesc, key, assertion.Expect[key]),
				Actual:   fmt.Sprintf("%s = %v", key, actualValue),
			}
		}
	}
	return nil
}

func rowMatches(row, where map[string]any) bool {
	for key, want := range where {
		got, ok := row[key]
		if !ok || !stateValuesEqual(want, got) {
			return false
		}
	}
	return true
}

// formatWhereClause creates a human-readable description of the row filter.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a YAML-decoded expected value with an actual
// one. YAML integers decode as int while the views hold uint64, so values
// compare by their printed form.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	return fmt.Sprint(expected) == fmt.Sprint(actual)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssertionContext provides the state needed by store- and ledger-backed
// assertions.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Ledger *ledger.Ledger
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		case AssertJournalCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_count requires a store", i)
			} else {
				err = assertJournalCount(actx.Ctx, actx.Store, assertion)
			}
		case AssertAudit:
			if actx == nil || actx.Ledger == nil {
				err = fmt.Errorf("assertion[%d]: audit requires a ledger", i)
			} else if aerr := actx.Ledger.Audit(); aerr != nil {
				err = &AssertionError{Type: AssertAudit, Expected: "realizable stakes within total stake", Actual: aerr.Error()}
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
