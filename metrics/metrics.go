// Package metrics wires the engine's Prometheus collectors: session
// state occupancy, sequence-gap/resend counts, replay cursor occupancy,
// and index flush latency. Built as a constructed Registry rather than
// package-level vars with an init()-time MustRegister, so a process can
// run more than one Registry (e.g. one per test) without collector
// name collisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every collector the engine reports through, backed by
// its own *prometheus.Registry rather than the global DefaultRegisterer.
type Registry struct {
	reg *prometheus.Registry

	sessionsByState   *prometheus.GaugeVec
	messagesSent      *prometheus.CounterVec
	messagesReceived  *prometheus.CounterVec
	gapsDetected      prometheus.Counter
	resendsServiced   prometheus.Counter
	backPressureTotal *prometheus.CounterVec
	disconnectsTotal  *prometheus.CounterVec

	replayCursorsActive prometheus.Gauge
	replayCursorsQueued prometheus.Gauge

	indexFlushSeconds prometheus.Histogram
	indexFlushErrors  prometheus.Counter
}

// NewRegistry constructs and registers every collector under namespace.
func NewRegistry(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		sessionsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_in_state",
			Help:      "Number of sessions currently in each FSM state.",
		}, []string{"state"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total outbound messages, by MsgType.",
		}, []string{"msg_type"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total inbound messages, by MsgType.",
		}, []string{"msg_type"}),
		gapsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_gaps_detected_total",
			Help:      "Total inbound messages with MsgSeqNum above the expected value.",
		}),
		resendsServiced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resend_requests_serviced_total",
			Help:      "Total ResendRequests that completed a replay.",
		}),
		backPressureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "back_pressure_total",
			Help:      "Total times an outbound offer returned BACK_PRESSURE, by worker.",
		}, []string{"worker"}),
		disconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Total session disconnects, by cause.",
		}, []string{"cause"}),
		replayCursorsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "replay_cursors_active",
			Help:      "Number of replay cursors currently running.",
		}),
		replayCursorsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "replay_cursors_queued",
			Help:      "Number of resend requests waiting for a replay cursor slot.",
		}),
		indexFlushSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seqindex_flush_seconds",
			Help:      "Duration of a sequence-number index flush to disk.",
			Buckets:   prometheus.DefBuckets,
		}),
		indexFlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seqindex_flush_errors_total",
			Help:      "Total sequence-number index flushes that returned an error.",
		}),
	}

	reg.MustRegister(
		r.sessionsByState,
		r.messagesSent,
		r.messagesReceived,
		r.gapsDetected,
		r.resendsServiced,
		r.backPressureTotal,
		r.disconnectsTotal,
		r.replayCursorsActive,
		r.replayCursorsQueued,
		r.indexFlushSeconds,
		r.indexFlushErrors,
	)
	return r
}

// Handler returns an http.Handler serving this Registry in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// SetSessionsInState replaces the gauge for state with count; callers
// typically recompute every state's count on each engine tick.
func (r *Registry) SetSessionsInState(state string, count float64) {
	r.sessionsByState.WithLabelValues(state).Set(count)
}

func (r *Registry) MessageSent(msgType string)     { r.messagesSent.WithLabelValues(msgType).Inc() }
func (r *Registry) MessageReceived(msgType string) { r.messagesReceived.WithLabelValues(msgType).Inc() }
func (r *Registry) GapDetected()                   { r.gapsDetected.Inc() }
func (r *Registry) ResendServiced()                { r.resendsServiced.Inc() }
func (r *Registry) BackPressure(worker string)      { r.backPressureTotal.WithLabelValues(worker).Inc() }
func (r *Registry) Disconnect(cause string)         { r.disconnectsTotal.WithLabelValues(cause).Inc() }

// SetReplayCursors records the Replayer's current active/queued counts.
func (r *Registry) SetReplayCursors(active, queued int) {
	r.replayCursorsActive.Set(float64(active))
	r.replayCursorsQueued.Set(float64(queued))
}

// ObserveIndexFlush records a completed seqindex.Flush call's duration
// and whether it returned an error.
func (r *Registry) ObserveIndexFlush(seconds float64, err error) {
	r.indexFlushSeconds.Observe(seconds)
	if err != nil {
		r.indexFlushErrors.Inc()
	}
}
