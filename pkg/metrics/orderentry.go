package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/readerpos/pkg/money"
)

// OrderEntryMetrics records cart broadcasts and charge outcomes.
type OrderEntryMetrics struct {
	broadcasts *prometheus.CounterVec
	deliveries prometheus.Counter
	charges    *prometheus.CounterVec
	charged    *prometheus.CounterVec
}

// NewOrderEntryMetrics registers the order entry metrics on the provided registerer.
func NewOrderEntryMetrics(reg prometheus.Registerer) *OrderEntryMetrics {
	if reg == nil {
		return &OrderEntryMetrics{}
	}
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_broadcasts_total",
		Help: "Cart change broadcasts sent by the coordinator.",
	}, []string{"observers"})
	deliveries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_observer_deliveries_total",
		Help: "Cart snapshots delivered to observers.",
	})
	charges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charges_total",
		Help: "Charge attempts by outcome.",
	}, []string{"outcome"})
	charged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charged_amount_total",
		Help: "Completed charge totals in major currency units.",
	}, []string{"currency"})
	reg.MustRegister(broadcasts, deliveries, charges, charged)
	return &OrderEntryMetrics{
		broadcasts: broadcasts,
		deliveries: deliveries,
		charges:    charges,
		charged:    charged,
	}
}

// IncBroadcast counts one broadcast fanned out to the given number of observers.
func (m *OrderEntryMetrics) IncBroadcast(observers int) {
	if m == nil || m.broadcasts == nil {
		return
	}
	m.broadcasts.WithLabelValues(observerBucket(observers)).Inc()
	m.deliveries.Add(float64(observers))
}

// ObserveCharge counts a charge outcome; completed totals also add to the charged amount.
func (m *OrderEntryMetrics) ObserveCharge(outcome string, total money.Money) {
	if m == nil || m.charges == nil {
		return
	}
	m.charges.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome != "completed" {
		return
	}
	amount, _ := total.Decimal().Float64()
	m.charged.WithLabelValues(normalizeLabel(total.Currency.String())).Add(amount)
}

func observerBucket(observers int) string {
	switch {
	case observers <= 0:
		return "0"
	case observers <= 2:
		return "1-2"
	default:
		return "3+"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
