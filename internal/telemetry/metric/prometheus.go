package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dxshell"

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
	OutcomeIgnored  = "ignored"
	OutcomeDeclined = "declined"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	handshakes          *prometheus.CounterVec
	handshakeDuration   prometheus.Histogram
	screenTransitions   *prometheus.CounterVec
	bridgeMessages      *prometheus.CounterVec
	pushSubmissions     *prometheus.CounterVec
	connectivityChanges *prometheus.CounterVec
	controlRequests     *prometheus.CounterVec
}

// NewRegistry creates a registry with the controller metrics and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Device registration handshakes by outcome.",
		}, []string{"outcome"}),
		handshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_duration_seconds",
			Help:      "Latency of device registration handshakes.",
			Buckets:   prometheus.DefBuckets,
		}),
		screenTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screen_transitions_total",
			Help:      "Navigator screen transitions.",
		}, []string{"from", "to"}),
		bridgeMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_messages_total",
			Help:      "Inbound bridge messages by tag and outcome.",
		}, []string{"tag", "outcome"}),
		pushSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_submissions_total",
			Help:      "Push registration submissions by outcome.",
		}, []string{"outcome"}),
		connectivityChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connectivity_changes_total",
			Help:      "Connectivity events observed by the navigator.",
		}, []string{"state"}),
		controlRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_requests_total",
			Help:      "Control API requests by route and status code.",
		}, []string{"route", "code"}),
	}

	r.reg.MustRegister(
		r.handshakes,
		r.handshakeDuration,
		r.screenTransitions,
		r.bridgeMessages,
		r.pushSubmissions,
		r.connectivityChanges,
		r.controlRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registerer exposes the underlying registerer so other components (the
// Badger store, for one) can add their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer exposes the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveHandshake records one handshake outcome and its latency.
func (r *Registry) ObserveHandshake(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.handshakes.WithLabelValues(outcome).Inc()
	r.handshakeDuration.Observe(took.Seconds())
}

// ObserveTransition records a screen change.
func (r *Registry) ObserveTransition(from, to string) {
	if r == nil {
		return
	}
	r.screenTransitions.WithLabelValues(from, to).Inc()
}

// ObserveBridgeMessage records a dispatched bridge message.
func (r *Registry) ObserveBridgeMessage(tag, outcome string) {
	if r == nil {
		return
	}
	if tag == "" {
		tag = "none"
	}
	r.bridgeMessages.WithLabelValues(tag, outcome).Inc()
}

// ObservePush records a push registration submission.
func (r *Registry) ObservePush(outcome string) {
	if r == nil {
		return
	}
	r.pushSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveConnectivity records a connectivity event.
func (r *Registry) ObserveConnectivity(connected bool) {
	if r == nil {
		return
	}
	state := "offline"
	if connected {
		state = "online"
	}
	r.connectivityChanges.WithLabelValues(state).Inc()
}

// ObserveControlRequest records a served control API request. Requests
// that matched no route share the "unmatched" label.
func (r *Registry) ObserveControlRequest(route string, code int) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.controlRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
