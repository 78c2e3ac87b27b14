package authkit

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth event names passed to MetricsRecorder.
const (
	MetricRegisterSuccess       = "auth.register.success"
	MetricRegisterConflict      = "auth.register.conflict"
	MetricLoginSuccess          = "auth.login.success"
	MetricLoginFailure          = "auth.login.failure"
	MetricLogout                = "auth.logout"
	MetricRefreshSuccess        = "auth.refresh.success"
	MetricRefreshFailure        = "auth.refresh.failure"
	MetricInvalidAuthentication = "auth.middleware.invalid_authentication"
	MetricAccessDenied          = "auth.middleware.access_denied"
	MetricPasswordResetRequest  = "auth.password_reset.request"
	MetricPasswordResetComplete = "auth.password_reset.complete"
)

// MetricsRecorder increments counters for auth events.
type MetricsRecorder interface {
	Increment(event string)
}

// CounterMetrics implements MetricsRecorder with in-memory counts.
type CounterMetrics struct {
	mutex  sync.Mutex
	counts map[string]int64
}

// NewCounterMetrics constructs an in-memory metrics recorder.
func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counts: make(map[string]int64)}
}

// Increment increases the counter for the given event.
func (recorder *CounterMetrics) Increment(event string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.counts[event]++
}

// Count returns the current value for the given event.
func (recorder *CounterMetrics) Count(event string) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.counts[event]
}

// PrometheusMetrics exports auth events as a labelled Prometheus counter.
type PrometheusMetrics struct {
	events *prometheus.CounterVec
}

// NewPrometheusMetrics registers the auth event counter with registerer.
func NewPrometheusMetrics(registerer prometheus.Registerer) (*PrometheusMetrics, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "elearning",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Authentication and authorization events by type.",
	}, []string{"event"})
	if err := registerer.Register(events); err != nil {
		return nil, err
	}
	return &PrometheusMetrics{events: events}, nil
}

// Increment increases the counter for the given event.
func (recorder *PrometheusMetrics) Increment(event string) {
	recorder.events.WithLabelValues(event).Inc()
}
