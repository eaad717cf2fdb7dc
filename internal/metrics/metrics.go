// Package metrics holds the Prometheus counters for the correlation lifecycle.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks saves, resolutions, augmentations and slot deletions.
type Metrics struct {
	registry *prometheus.Registry

	saves        *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	augments     *prometheus.CounterVec
	slotsDeleted *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapcrash_saves_total",
				Help: "Wrapper exception saves to the pending slot",
			},
			[]string{"result"}, // "ok", "error"
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapcrash_resolutions_total",
				Help: "Startup correlation attempts by outcome",
			},
			[]string{"outcome"},
		),
		augments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapcrash_augments_total",
				Help: "Error log augmentation attempts",
			},
			[]string{"result"}, // "augmented", "passthrough"
		),
		slotsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrapcrash_slots_deleted_total",
				Help: "Slots deleted, by reason",
			},
			[]string{"reason"}, // "consumed", "orphaned"
		),
	}

	m.registry.MustRegister(m.saves, m.resolutions, m.augments, m.slotsDeleted)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SaveOK() {
	if m != nil {
		m.saves.WithLabelValues("ok").Inc()
	}
}

func (m *Metrics) SaveFailed() {
	if m != nil {
		m.saves.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) Resolved(outcome string) {
	if m != nil {
		m.resolutions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Augmented(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.augments.WithLabelValues("augmented").Inc()
		return
	}
	m.augments.WithLabelValues("passthrough").Inc()
}

func (m *Metrics) SlotDeleted(reason string) {
	if m != nil {
		m.slotsDeleted.WithLabelValues(reason).Inc()
	}
}

// WriteTextfile writes the current values in text exposition format, for
// node_exporter's textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
