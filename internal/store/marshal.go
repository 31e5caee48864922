package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/compound/internal/fee"
	"github.com/roach88/compound/internal/fixedpoint"
	"github.com/roach88/compound/internal/sim"
)

// SQLite INTEGER is signed; uint64 quantities round-trip through a bit cast.
func u64(v uint64) int64 { return int64(v) }

func fromI64(v int64) uint64 { return uint64(v) }

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func marshalCosts(c fee.Costs) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal costs: %w", err)
	}
	return string(data), nil
}

func unmarshalCosts(data string) (fee.Costs, error) {
	var c fee.Costs
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return fee.Costs{}, fmt.Errorf("unmarshal costs: %w", err)
	}
	return c, nil
}

func marshalSource(s sim.SourceState) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal source state: %w", err)
	}
	return string(data), nil
}

func unmarshalSource(data string) (sim.SourceState, error) {
	var s sim.SourceState
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return sim.SourceState{}, fmt.Errorf("unmarshal source state: %w", err)
	}
	return s, nil
}

func unmarshalValue(b []byte, what string) (fixedpoint.Value, error) {
	v, err := fixedpoint.FromBytes(b)
	if err != nil {
		return fixedpoint.Zero, fmt.Errorf("decode %s: %w", what, err)
	}
	return v, nil
}
