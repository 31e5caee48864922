package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var keeperTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "keeper",
	Name:      "ticks_total",
	Help:      "Keeper ticks by outcome: triggered, idle, or error.",
}, []string{"result"})

// Keeper tracks metrics for the harvest keeper.
type Keeper struct{}

// NewKeeper constructs a collector for the keeper.
func NewKeeper() *Keeper {
	return &Keeper{}
}

// ObserveTick records one keeper tick.
func (Keeper) ObserveTick(result string) {
	keeperTicksTotal.WithLabelValues(result).Inc()
}
