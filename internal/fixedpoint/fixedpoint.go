// Package fixedpoint implements the unsigned Q64.64 numbers used for account
// stakes and harvest growth factors.
//
// A Value holds 64 integer bits and 64 fractional bits inside a 256-bit word
// (github.com/holiman/uint256), so a full 128x128-bit product never wraps
// before it is renormalized. Every operation is checked: results that would be
// negative, exceed 128 bits, or divide by zero return a fault instead.
//
// Pool totals never use this type; they are plain uint64 base units. Only
// per-account stakes and growth factors carry fractional precision, so that
// sub-unit value survives many small harvests.
package fixedpoint

import (
	"github.com/holiman/uint256"

	"github.com/roach88/compound/internal/fault"
)

// FracBits is the number of fractional bits.
const FracBits = 64

// Size is the encoded width in bytes (8 integer bytes, 8 fractional bytes).
const Size = 16

const maxBits = 2 * FracBits

// Value is an unsigned Q64.64 fixed-point number. The zero value is 0.
type Value struct {
	raw uint256.Int
}

// Zero is 0.
var Zero = Value{}

// One is 1.0.
var One = FromInt(1)

// FromInt converts whole base units into fixed point.
func FromInt(n uint64) Value {
	var v Value
	v.raw.SetUint64(n)
	v.raw.Lsh(&v.raw, FracBits)
	return v
}

// FromRaw interprets n as raw Q64.64 bits (n / 2^64).
func FromRaw(n uint64) Value {
	var v Value
	v.raw.SetUint64(n)
	return v
}

// Add returns v + w.
func (v Value) Add(w Value) (Value, error) {
	var out Value
	if _, overflow := out.raw.AddOverflow(&v.raw, &w.raw); overflow || out.raw.BitLen() > maxBits {
		return Zero, fault.New(fault.CodeArithmeticOverflow, "fixed-point add overflows Q64.64")
	}
	return out, nil
}

// Sub returns v - w, failing if the result would be negative.
func (v Value) Sub(w Value) (Value, error) {
	var out Value
	if _, underflow := out.raw.SubOverflow(&v.raw, &w.raw); underflow {
		return Zero, fault.New(fault.CodeArithmeticUnderflow, "fixed-point subtract underflows").
			With("minuend", v.String()).
			With("subtrahend", w.String())
	}
	return out, nil
}

// Mul returns v * w, truncated to 64 fractional bits.
func (v Value) Mul(w Value) (Value, error) {
	var out Value
	if _, overflow := out.raw.MulOverflow(&v.raw, &w.raw); overflow {
		return Zero, fault.New(fault.CodeArithmeticOverflow, "fixed-point multiply overflows")
	}
	out.raw.Rsh(&out.raw, FracBits)
	if out.raw.BitLen() > maxBits {
		return Zero, fault.New(fault.CodeArithmeticOverflow, "fixed-point multiply overflows Q64.64")
	}
	return out, nil
}

// Div returns v / w, truncated toward zero.
func (v Value) Div(w Value) (Value, error) {
	if w.raw.IsZero() {
		return Zero, fault.New(fault.CodeDivisionByZero, "fixed-point divide by zero")
	}
	var out Value
	out.raw.Lsh(&v.raw, FracBits)
	out.raw.Div(&out.raw, &w.raw)
	if out.raw.BitLen() > maxBits {
		return Zero, fault.New(fault.CodeArithmeticOverflow, "fixed-point divide overflows Q64.64")
	}
	return out, nil
}

// GrowthFactor returns 1 + realized/stakeBefore, truncated.
func GrowthFactor(realized, stakeBefore uint64) (Value, error) {
	if stakeBefore == 0 {
		return Zero, fault.New(fault.CodeDivisionByZero, "growth factor over zero total stake")
	}
	var inc uint256.Int
	inc.SetUint64(realized)
	inc.Lsh(&inc, FracBits)
	inc.Div(&inc, uint256.NewInt(stakeBefore))

	var out Value
	out.raw.Add(&One.raw, &inc)
	if out.raw.BitLen() > maxBits {
		return Zero, fault.New(fault.CodeArithmeticOverflow, "growth factor %d/%d overflows Q64.64", realized, stakeBefore)
	}
	return out, nil
}

// Floor drops the fractional part.
func (v Value) Floor() uint64 {
	var whole uint256.Int
	whole.Rsh(&v.raw, FracBits)
	return whole.Uint64()
}

// Frac returns the fractional part as raw bits (the dust below one unit).
func (v Value) Frac() uint64 {
	return v.raw[0]
}

// IsZero reports whether v is exactly 0.
func (v Value) IsZero() bool {
	return v.raw.IsZero()
}

// Cmp compares v and w and returns -1, 0, or +1.
func (v Value) Cmp(w Value) int {
	return v.raw.Cmp(&w.raw)
}

// Bytes encodes v as 16 big-endian bytes: integer part first, then fraction.
func (v Value) Bytes() []byte {
	full := v.raw.Bytes32()
	out := make([]byte, Size)
	copy(out, full[32-Size:])
	return out
}

// FromBytes decodes a big-endian encoding of at most 16 bytes.
// Shorter inputs are treated as left-padded with zeros.
func FromBytes(b []byte) (Value, error) {
	if len(b) > Size {
		return Zero, fault.New(fault.CodeInvalidInput, "fixed-point encoding is %d bytes, max %d", len(b), Size)
	}
	var v Value
	v.raw.SetBytes(b)
	return v, nil
}
