// Package metrics exposes the small set of counters the agent collects:
// commands executed and the outcome of provider selection. It's the
// ambient observability layer spec §2 doesn't name directly but which
// every long-running daemon in the wider examples pack carries, wired
// here via github.com/prometheus/client_golang the same way the rest of
// the pack's services expose a /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's counters. A nil *Metrics is not valid — use
// New to build one.
type Metrics struct {
	CommandsExecuted    *prometheus.CounterVec
	ProviderUnavailable *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers and returns the agent's metrics against a fresh registry.
func New() *Metrics {
	m := &Metrics{
		CommandsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostagent_commands_executed_total",
			Help: "Number of shell commands spawned by the agent, labeled by request variant.",
		}, []string{"request"}),
		ProviderUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostagent_provider_unavailable_total",
			Help: "Number of times provider selection found no available candidate.",
		}, []string{"endpoint"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.CommandsExecuted, m.ProviderUnavailable)
	return m
}

// Handler returns the http.Handler to mount at /metrics, serving m's own
// registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
