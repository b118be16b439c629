// Package metrics exposes the site's Prometheus collectors and the bus
// listener that feeds them from session events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider owns an isolated Prometheus registry and the collectors
// registered on it.
type Provider struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	sessions prometheus.Gauge
}

// NewProvider creates a registry with the site's collectors registered.
func NewProvider() *Provider {
	p := &Provider{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "narrativegeo_events_total",
			Help: "Session events published on the bus, by kind.",
		}, []string{"kind"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "narrativegeo_explore_sessions",
			Help: "Explore sessions currently running.",
		}),
	}
	p.registry.MustRegister(p.events, p.sessions)
	return p
}

// Registry returns the underlying Prometheus registry.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// Handler returns an HTTP handler serving the registry in exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
