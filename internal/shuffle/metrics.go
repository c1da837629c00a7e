package shuffle

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricExchanges = "exchanges_total"
	MetricElements  = "elements_sent_total"
)

// Metrics counts exchange traffic.
type Metrics struct {
	// Exchanges counts completed exchanges.
	Exchanges prometheus.Counter
	// Elements counts buffer elements sent, by dist label.
	Elements *prometheus.CounterVec
}

// NewMetrics returns unregistered counters.
func NewMetrics() *Metrics {
	return &Metrics{
		Exchanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragged",
			Subsystem: "shuffle",
			Name:      MetricExchanges,
			Help:      "Number of completed all-to-all exchanges.",
		}),
		Elements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragged",
			Subsystem: "shuffle",
			Name:      MetricElements,
			Help:      "Number of buffer elements sent, by buffer label.",
		}, []string{"label"}),
	}
}

// Register adds the counters to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Exchanges, m.Elements} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
