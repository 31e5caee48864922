package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/roach88/compound/internal/harvestlog"
	"github.com/roach88/compound/internal/ledger"
	"github.com/roach88/compound/internal/schedule"
)

// ReceiptView is the output of a committed operation.
type ReceiptView struct {
	OpID       string          `json:"op_id"`
	Seq        uint64          `json:"seq"`
	Op         string          `json:"op"`
	Caller     string          `json:"caller"`
	Round      uint64          `json:"round"`
	Escrow     uint64          `json:"escrow,omitempty"`
	Amount     uint64          `json:"amount,omitempty"`
	Result     uint64          `json:"result,omitempty"`
	Harvest    *RecordView     `json:"harvest,omitempty"`
	Settlement *SettlementView `json:"settlement,omitempty"`
}

// SettlementView lists what teardown returned to the admin.
type SettlementView struct {
	Stake    uint64 `json:"stake"`
	Yield    uint64 `json:"yield"`
	Retained uint64 `json:"retained"`
	Fees     uint64 `json:"fees"`
}

func receiptView(r ledger.Receipt) ReceiptView {
	v := ReceiptView{
		OpID:   r.Op.ID,
		Seq:    r.Op.Seq,
		Op:     string(r.Op.Kind),
		Caller: string(r.Op.Caller),
		Round:  r.Op.Round,
		Escrow: r.Op.Escrow,
		Amount: r.Op.Amount,
		Result: r.Op.Result,
	}
	if s := r.Settlement; s != nil {
		v.Settlement = &SettlementView{Stake: s.Stake, Yield: s.Yield, Retained: s.Retained, Fees: s.Fees}
	}
	if r.Harvest != nil {
		h := recordView(*r.Harvest)
		v.Harvest = &h
	}
	return v
}

func (v ReceiptView) WriteText(w io.Writer) {
	fmt.Fprintf(w, "✓ %s by %s at round %d (seq %d)\n", v.Op, v.Caller, v.Round, v.Seq)
	fmt.Fprintf(w, "  op id: %s\n", v.OpID)
	if v.Result != 0 {
		fmt.Fprintf(w, "  paid out: %d\n", v.Result)
	}
	if v.Harvest != nil {
		fmt.Fprintf(w, "  harvest #%d: growth %s, realized %d over %d\n",
			v.Harvest.Index, v.Harvest.GrowthFactor, v.Harvest.Realized, v.Harvest.StakeBefore)
	}
	if s := v.Settlement; s != nil {
		fmt.Fprintf(w, "  settlement: stake %d, yield %d, retained %d, fees %d\n", s.Stake, s.Yield, s.Retained, s.Fees)
	}
}

// RecordView is one harvest record.
type RecordView struct {
	Index        uint64 `json:"index"`
	GrowthFactor string `json:"growth_factor"`
	Round        uint64 `json:"round"`
	Realized     uint64 `json:"realized"`
	StakeBefore  uint64 `json:"stake_before"`
}

func recordView(r harvestlog.Record) RecordView {
	return RecordView{
		Index:        r.Index,
		GrowthFactor: r.GrowthFactor.String(),
		Round:        r.Round,
		Realized:     r.Realized,
		StakeBefore:  r.StakeBefore,
	}
}

// RecordList renders harvest records as a table.
type RecordList []RecordView

func (l RecordList) WriteText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No harvest records.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tROUND\tGROWTH\tREALIZED\tSTAKE BEFORE")
	for _, r := range l {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\n", r.Index, r.Round, r.GrowthFactor, r.Realized, r.StakeBefore)
	}
	tw.Flush()
}

// OpList renders journaled operations as a table.
type OpList []ReceiptView

func (l OpList) WriteText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No operations journaled.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tOP\tCALLER\tROUND\tESCROW\tAMOUNT\tRESULT")
	for _, op := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n", op.Seq, op.Op, op.Caller, op.Round, op.Escrow, op.Amount, op.Result)
	}
	tw.Flush()
}

// DueView is a scheduling decision.
type DueView struct {
	AtRound uint64 `json:"at_round"`
	Status  string `json:"status"`
	Round   uint64 `json:"round,omitempty"`
}

func dueView(at uint64, d schedule.Due) DueView {
	return DueView{AtRound: at, Status: d.Status.String(), Round: d.Round}
}

func (v DueView) WriteText(w io.Writer) {
	if v.Status == schedule.Scheduled.String() {
		fmt.Fprintf(w, "At round %d: next harvest scheduled for round %d\n", v.AtRound, v.Round)
		return
	}
	fmt.Fprintf(w, "At round %d: %s\n", v.AtRound, v.Status)
}

// StatusView summarizes the pool.
type StatusView struct {
	Admin            string  `json:"admin"`
	Variant          string  `json:"variant"`
	Phase            string  `json:"phase"`
	StartRound       uint64  `json:"start_round"`
	EndRound         uint64  `json:"end_round"`
	TotalStake       uint64  `json:"total_stake"`
	StakerCount      uint64  `json:"staker_count"`
	HarvestCount     uint64  `json:"harvest_count"`
	LastHarvestRound uint64  `json:"last_harvest_round"`
	FeeBalance       uint64  `json:"fee_balance"`
	Reserve          uint64  `json:"reserve"`
	RetainedYield    uint64  `json:"retained_yield,omitempty"`
	FinalHarvestDone bool    `json:"final_harvest_done"`
	Deleted          bool    `json:"deleted"`
	Next             DueView `json:"next"`
}

func statusView(p ledger.Pool, round uint64, due schedule.Due) StatusView {
	return StatusView{
		Admin:            string(p.Admin),
		Variant:          string(p.Variant),
		Phase:            p.Phase(round).String(),
		StartRound:       p.StartRound,
		EndRound:         p.EndRound,
		TotalStake:       p.TotalStake,
		StakerCount:      p.StakerCount,
		HarvestCount:     p.HarvestCount,
		LastHarvestRound: p.LastHarvestRound,
		FeeBalance:       p.FeeBalance,
		Reserve:          p.Reserve(),
		RetainedYield:    p.RetainedYield,
		FinalHarvestDone: p.FinalHarvestDone,
		Deleted:          p.Deleted,
		Next:             dueView(round, due),
	}
}

func (v StatusView) WriteText(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Pool:\t%s (%s), admin %s\n", v.Phase, v.Variant, v.Admin)
	fmt.Fprintf(tw, "Window:\trounds %d to %d\n", v.StartRound, v.EndRound)
	fmt.Fprintf(tw, "Stake:\t%d across %d stakers\n", v.TotalStake, v.StakerCount)
	fmt.Fprintf(tw, "Harvests:\t%d, last at round %d\n", v.HarvestCount, v.LastHarvestRound)
	fmt.Fprintf(tw, "Fees:\t%d (reserve %d)\n", v.FeeBalance, v.Reserve)
	if v.RetainedYield > 0 {
		fmt.Fprintf(tw, "Retained:\t%d raw yield\n", v.RetainedYield)
	}
	tw.Flush()
	v.Next.WriteText(w)
}

// BalanceView is one account's position.
type BalanceView struct {
	Account      string `json:"account"`
	Units        uint64 `json:"units"`
	Stake        string `json:"stake"`
	LastObserved uint64 `json:"last_observed"`
	HarvestCount uint64 `json:"harvest_count"`
}

func (v BalanceView) WriteText(w io.Writer) {
	fmt.Fprintf(w, "%s: %d units (exact %s)\n", v.Account, v.Units, v.Stake)
	if v.LastObserved < v.HarvestCount {
		fmt.Fprintf(w, "  observed %d of %d harvests; run 'compound claim' to catch up\n", v.LastObserved, v.HarvestCount)
	}
}
