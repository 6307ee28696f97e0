// Package rmetrics contains Prometheus collectors for rivulet streams.
//
// Streams accept an optional [*Metrics] in their configuration.
// All methods are safe to call on a nil *Metrics, which records nothing.
package rmetrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a set of collectors shared by any number of streams.
// Each stream reports under its own "stream" label.
type Metrics struct {
	emitted      *prometheus.CounterVec
	delivered    *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	deduplicated *prometheus.CounterVec
	subscribers  *prometheus.GaugeVec
}

// New creates the collectors under the given namespace
// and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_emitted_total",
			Help:      "Values accepted by a stream from its producer.",
		}, []string{"stream"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_delivered_total",
			Help:      "Values handed to individual subscriptions.",
		}, []string{"stream"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_dropped_total",
			Help:      "Values discarded by a buffer overflow policy.",
		}, []string{"stream"}),
		deduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_deduplicated_total",
			Help:      "State updates skipped because they equaled the current value.",
		}, []string{"stream"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Live subscriptions per stream.",
		}, []string{"stream"}),
	}

	for _, c := range []prometheus.Collector{
		m.emitted, m.delivered, m.dropped, m.deduplicated, m.subscribers,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register stream collector: %w", err)
		}
	}

	return m, nil
}

// Stream returns the per-stream view of m for the given stream name.
func (m *Metrics) Stream(name string) *Stream {
	if m == nil {
		return nil
	}

	return &Stream{
		emitted:      m.emitted.WithLabelValues(name),
		delivered:    m.delivered.WithLabelValues(name),
		dropped:      m.dropped.WithLabelValues(name),
		deduplicated: m.deduplicated.WithLabelValues(name),
		subscribers:  m.subscribers.WithLabelValues(name),
	}
}

// Stream holds the collectors for a single named stream.
// A nil *Stream records nothing.
type Stream struct {
	emitted      prometheus.Counter
	delivered    prometheus.Counter
	dropped      prometheus.Counter
	deduplicated prometheus.Counter
	subscribers  prometheus.Gauge
}

func (s *Stream) Emitted() {
	if s != nil {
		s.emitted.Inc()
	}
}

func (s *Stream) Delivered(n int) {
	if s != nil {
		s.delivered.Add(float64(n))
	}
}

func (s *Stream) Dropped() {
	if s != nil {
		s.dropped.Inc()
	}
}

func (s *Stream) Deduplicated() {
	if s != nil {
		s.deduplicated.Inc()
	}
}

// SetSubscribers records the current number of live subscriptions.
func (s *Stream) SetSubscribers(n int) {
	if s != nil {
		s.subscribers.Set(float64(n))
	}
}
