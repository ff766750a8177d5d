// Package metrics exposes the dashboard's Prometheus counters and gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prinde"

// Collector owns the dashboard metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	eventsApplied  *prometheus.CounterVec
	eventsDropped  *prometheus.CounterVec
	jobsExpired    prometheus.Counter
	jobsResets     prometheus.Counter
	activeJobs     prometheus.Gauge
	linkConnected  prometheus.Gauge
	reconnects     prometheus.Counter
	gatewayCalls   *prometheus.CounterVec
	confirmations  *prometheus.CounterVec
	browserClients prometheus.Gauge
}

// NewCollector registers every metric on reg. A nil reg gets a fresh registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: reg,
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_events_applied_total",
			Help:      "Progress events merged into the active job set",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_events_dropped_total",
			Help:      "Progress events that changed nothing",
		}, []string{"reason"}),
		jobsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_expired_total",
			Help:      "Completed jobs removed after the grace delay",
		}),
		jobsResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_set_resets_total",
			Help:      "Times the active job set was cleared",
		}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Top-level jobs currently tracked",
		}),
		linkConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_source_connected",
			Help:      "1 while the push channel to the engine is up",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_source_reconnects_total",
			Help:      "Push channel connection attempts after a failure",
		}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Engine REST calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Confirmation requests by outcome",
		}, []string{"outcome"}),
		browserClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_clients",
			Help:      "Connected browser websocket clients",
		}),
	}

	reg.MustRegister(
		c.eventsApplied,
		c.eventsDropped,
		c.jobsExpired,
		c.jobsResets,
		c.activeJobs,
		c.linkConnected,
		c.reconnects,
		c.gatewayCalls,
		c.confirmations,
		c.browserClients,
	)

	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// EventApplied counts a merged event.
func (c *Collector) EventApplied(created bool) {
	kind := "update"
	if created {
		kind = "create"
	}
	c.eventsApplied.WithLabelValues(kind).Inc()
}

// EventDropped counts an event that was ignored.
func (c *Collector) EventDropped(reason string) {
	c.eventsDropped.WithLabelValues(reason).Inc()
}

// JobExpired counts a grace-delay removal.
func (c *Collector) JobExpired() {
	c.jobsExpired.Inc()
}

// JobsReset counts a cleared job set.
func (c *Collector) JobsReset() {
	c.jobsResets.Inc()
}

// ActiveJobs sets the tracked job gauge.
func (c *Collector) ActiveJobs(n int) {
	c.activeJobs.Set(float64(n))
}

// SetConnected records the push channel state.
func (c *Collector) SetConnected(connected bool) {
	if connected {
		c.linkConnected.Set(1)
		return
	}
	c.linkConnected.Set(0)
}

// Reconnect counts a retry of the push channel.
func (c *Collector) Reconnect() {
	c.reconnects.Inc()
}

// GatewayRequest counts an engine REST call.
func (c *Collector) GatewayRequest(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.gatewayCalls.WithLabelValues(operation, outcome).Inc()
}

// Confirmation counts a confirmation outcome: requested, accepted, rejected, failed or expired.
func (c *Collector) Confirmation(outcome string) {
	c.confirmations.WithLabelValues(outcome).Inc()
}

// BrowserClients sets the connected browser gauge.
func (c *Collector) BrowserClients(n int) {
	c.browserClients.Set(float64(n))
}
