// Package metrics collects in-process Prometheus counters for the session
// subsystem. Exposing them over HTTP is the host application's business.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records session lifecycle events. A nil *Collector is valid and
// records nothing, so callers never have to guard their calls.
type Collector struct {
	recoverOutcomes *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	storeFallbacks  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		recoverOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_recover_outcomes_total",
			Help: "Recovery outcomes by source provider and outcome kind.",
		}, []string{"source", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_refreshes_total",
			Help: "Refresh attempts by trigger and result.",
		}, []string{"trigger", "result"}),
		storeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_secure_store_fallbacks_total",
			Help: "Writes that fell back to the legacy plaintext store.",
		}),
	}

	reg.MustRegister(c.recoverOutcomes, c.refreshes, c.storeFallbacks)
	return c
}

// RecordRecoverOutcome records one recovery result. source identifies which
// step produced it ("amplify", "firebase", "stored", "none").
func (c *Collector) RecordRecoverOutcome(source, outcome string) {
	if c == nil {
		return
	}
	c.recoverOutcomes.WithLabelValues(source, outcome).Inc()
}

// RecordRefresh records one refresh attempt. trigger is "timer",
// "foreground" or "manual"; result is "applied", "skipped" or "error".
func (c *Collector) RecordRefresh(trigger, result string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(trigger, result).Inc()
}

// RecordStoreFallback records one legacy plaintext fallback write.
func (c *Collector) RecordStoreFallback() {
	if c == nil {
		return
	}
	c.storeFallbacks.Inc()
}
