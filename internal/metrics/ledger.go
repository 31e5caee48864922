// Package metrics exposes Prometheus collectors for the pool ledger, its
// external collaborators, and the keeper.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/compound/internal/fault"
)

const namespace = "compound"

var (
	ledgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Count of ledger operations by kind and outcome.",
	}, []string{"op", "status"})
	ledgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger operations, including external calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "status"})
	ledgerHarvestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "harvests_total",
		Help:      "Count of harvest records appended.",
	})
	ledgerHarvestRealizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "harvest_realized_units_total",
		Help:      "Stake units credited by harvests.",
	})
	ledgerTotalStake = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "total_stake_units",
		Help:      "Pool total stake after the last committed operation.",
	})
	ledgerFeeBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "fee_balance_units",
		Help:      "Pool fee balance after the last committed operation.",
	})
	ledgerHarvestRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "harvest_records",
		Help:      "Retained harvest records.",
	})
)

// Ledger tracks metrics for ledger operations.
type Ledger struct{}

// NewLedger constructs a metrics collector for ledger operations.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Status maps an operation error to a low-cardinality label value: "success"
// or the lowercased fault code.
func Status(err error) string {
	if err == nil {
		return "success"
	}
	code := fault.CodeOf(err)
	if code == "" {
		return "error"
	}
	return strings.ToLower(string(code))
}

// Observe records one operation outcome and duration.
func (Ledger) Observe(op string, err error, started time.Time) {
	status := Status(err)
	ledgerOperationsTotal.WithLabelValues(op, status).Inc()
	ledgerOperationDuration.WithLabelValues(op, status).Observe(time.Since(started).Seconds())
}

// ObserveHarvest records one appended harvest record.
func (Ledger) ObserveHarvest(realized uint64) {
	ledgerHarvestsTotal.Inc()
	ledgerHarvestRealizedTotal.Add(float64(realized))
}

// SetPool publishes the pool aggregates.
func (Ledger) SetPool(totalStake, feeBalance, records uint64) {
	ledgerTotalStake.Set(float64(totalStake))
	ledgerFeeBalance.Set(float64(feeBalance))
	ledgerHarvestRecords.Set(float64(records))
}
