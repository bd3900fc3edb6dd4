package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront_cart"

type CartMetrics struct {
	Reconciliations  prometheus.Counter
	RemovedLineItems *prometheus.CounterVec
	ClampedLineItems prometheus.Counter
	PriceRefreshes   prometheus.Counter
	SaveConflicts    prometheus.Counter
	Mutations        *prometheus.CounterVec
}

// NewCartMetrics registers the cart counters on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	factory := promauto.With(reg)
	return &CartMetrics{
		Reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Number of cart reads reconciled against the catalog.",
		}),
		RemovedLineItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removed_line_items_total",
			Help:      "Line items dropped during reconciliation, by reason.",
		}, []string{"reason"}),
		ClampedLineItems: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clamped_line_items_total",
			Help:      "Line items whose quantity was clamped to the available stock.",
		}),
		PriceRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_refreshes_total",
			Help:      "Line items whose snapshot price was refreshed.",
		}),
		SaveConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_conflicts_total",
			Help:      "Cart saves rejected because of a stale revision.",
		}),
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

func (m *CartMetrics) Mutation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	m.Mutations.WithLabelValues(operation, outcome).Inc()
}
