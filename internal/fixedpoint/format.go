package fixedpoint

import (
	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimal places used when rendering values.
const DisplayPlaces = 12

var scale = decimal.NewFromBigInt(One.raw.ToBig(), 0)

// Decimal converts v to a decimal truncated to DisplayPlaces, so a rendered
// stake never exceeds what the value holds.
func (v Value) Decimal() decimal.Decimal {
	q, _ := decimal.NewFromBigInt(v.raw.ToBig(), 0).QuoRem(scale, DisplayPlaces)
	return q
}

// String renders v as a decimal number, e.g. "1.125" or "0.000000000001".
func (v Value) String() string {
	return v.Decimal().String()
}
