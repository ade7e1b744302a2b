package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters for the dialogue flow. A nil *Metrics is valid and
// turns every observation into a no-op.
type Metrics struct {
	turnsTotal    *prometheus.CounterVec
	dispatchTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Completed conversational turns by reply mode",
		}, []string{"mode"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dialogue",
			Name:      "tool_dispatch_total",
			Help:      "Tool dispatches by tool name and outcome",
		}, []string{"tool", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.dispatchTotal)
	return m
}

func (m *Metrics) ObserveTurn(mode string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveDispatch(tool, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(tool, outcome).Inc()
}
