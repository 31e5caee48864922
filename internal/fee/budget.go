package fee

import (
	"math/bits"

	"github.com/roach88/compound/internal/fault"
)

// Charge is one priced step.
type Charge struct {
	Step   Step
	Mode   PayMode
	Amount uint64
}

// Plan accumulates the charges of one composite operation.
type Plan struct {
	costs   Costs
	charges []Charge
}

// NewPlan starts an empty plan priced by c.
func NewPlan(c Costs) *Plan {
	return &Plan{costs: c}
}

// Add appends a step paid in the given mode.
func (p *Plan) Add(step Step, mode PayMode) *Plan {
	p.charges = append(p.charges, Charge{Step: step, Mode: mode, Amount: p.costs.Of(step)})
	return p
}

// Charges returns the plan's charges in order.
func (p *Plan) Charges() []Charge {
	out := make([]Charge, len(p.charges))
	copy(out, p.charges)
	return out
}

// Total returns the sum of every charge.
func (p *Plan) Total() uint64 {
	var sum uint64
	for _, c := range p.charges {
		sum += c.Amount
	}
	return sum
}

// TotalBy returns the sum of the charges paid in mode.
func (p *Plan) TotalBy(mode PayMode) uint64 {
	var sum uint64
	for _, c := range p.charges {
		if c.Mode == mode {
			sum += c.Amount
		}
	}
	return sum
}

// Budget is the pool's fee balance and the part of it locked as reserve.
type Budget struct {
	Balance uint64
	Reserve uint64
}

// AboveReserve returns the spendable part of the balance.
func (b Budget) AboveReserve() uint64 {
	if b.Balance < b.Reserve {
		return 0
	}
	return b.Balance - b.Reserve
}

// Covers fails with InsufficientFeeEscrow unless the spendable balance is at least cost.
func (b Budget) Covers(cost uint64) error {
	if b.AboveReserve() < cost {
		return fault.New(fault.CodeInsufficientFeeEscrow, "pool fee balance %d above reserve cannot pay %d", b.AboveReserve(), cost).
			With("above_reserve", b.AboveReserve()).
			With("required", cost)
	}
	return nil
}

// Deposit credits amount to the balance.
func (b *Budget) Deposit(amount uint64) error {
	sum, carry := bits.Add64(b.Balance, amount, 0)
	if carry != 0 {
		return fault.New(fault.CodeArithmeticOverflow, "fee balance overflows")
	}
	b.Balance = sum
	return nil
}

// Settle deposits the caller's escrow and pays the plan. PooledByCaller
// charges come out of the escrow before the remainder is credited; FromPool
// charges come out of the balance. Record writes move their cost into the
// reserve. A plan with charges must leave the balance at or above the
// reserve; a bare deposit never fails on it. The budget is unchanged on error.
func (b *Budget) Settle(escrow uint64, plan *Plan) error {
	callerPaid := plan.TotalBy(PooledByCaller)
	if err := Validate(escrow, callerPaid); err != nil {
		return err
	}

	next := *b
	if err := next.Deposit(escrow - callerPaid); err != nil {
		return err
	}
	for _, c := range plan.charges {
		switch {
		case c.Step == StepRecordWrite && c.Mode == PooledByCaller:
			if err := next.Deposit(c.Amount); err != nil {
				return err
			}
			next.Reserve += c.Amount
		case c.Step == StepRecordWrite:
			next.Reserve += c.Amount
		case c.Mode == FromPool:
			if next.Balance < c.Amount {
				return fault.New(fault.CodeInsufficientFeeEscrow, "fee balance %d cannot pay %s step %d", next.Balance, c.Step, c.Amount)
			}
			next.Balance -= c.Amount
		}
	}
	if len(plan.charges) > 0 && next.Balance < next.Reserve {
		return fault.New(fault.CodeInsufficientFeeEscrow, "fee balance %d would fall below reserve %d", next.Balance, next.Reserve).
			With("balance", next.Balance).
			With("reserve", next.Reserve)
	}
	*b = next
	return nil
}
