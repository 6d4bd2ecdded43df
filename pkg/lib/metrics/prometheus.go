package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds the listener client and lifecycle metrics.
type Registry struct {
	// RPC client
	RPCCalls    *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	// Lifecycle
	LifecycleEvents *prometheus.CounterVec
	ReadinessWait   prometheus.Histogram
	ReadinessProbes *prometheus.CounterVec

	// Helper daemon
	HelperRequests *prometheus.CounterVec
}

// Get returns the process-wide registry registered with the default prometheus registerer.
func Get() *Registry {
	once.Do(func() {
		registry = New(prometheus.DefaultRegisterer)
	})
	return registry
}

// New creates a Registry whose collectors are registered with reg.
// Tests pass a fresh prometheus.NewRegistry() to stay isolated.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	r := &Registry{}

	r.RPCCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "labview_rpc_calls_total",
		Help: "Listener commands issued, by command and outcome",
	}, []string{"command", "outcome"})

	r.RPCDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "labview_rpc_call_duration_seconds",
		Help:    "Round trip time of listener commands",
		Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
	}, []string{"command"})

	r.LifecycleEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "labview_lifecycle_events_total",
		Help: "Lifecycle transitions (launch, adopt, kill, restart, timeout)",
	}, []string{"event"})

	r.ReadinessWait = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "labview_readiness_wait_seconds",
		Help:    "Time spent waiting for the automation server to accept connections",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
	})

	r.ReadinessProbes = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "labview_readiness_probes_total",
		Help: "Connection probes made while waiting for the automation server",
	}, []string{"result"})

	r.HelperRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "labview_helper_requests_total",
		Help: "Requests served by the helper daemon, by method and gRPC code",
	}, []string{"method", "code"})

	return r
}

// ObserveRPC records one listener command. Nil receivers are ignored.
func (r *Registry) ObserveRPC(command string, started time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.RPCCalls.WithLabelValues(command, outcome).Inc()
	r.RPCDuration.WithLabelValues(command).Observe(time.Since(started).Seconds())
}

// LifecycleEvent counts a lifecycle transition. Nil receivers are ignored.
func (r *Registry) LifecycleEvent(event string) {
	if r == nil {
		return
	}
	r.LifecycleEvents.WithLabelValues(event).Inc()
}

// ReadinessProbe counts a single connection probe. Nil receivers are ignored.
func (r *Registry) ReadinessProbe(ok bool) {
	if r == nil {
		return
	}
	result := "refused"
	if ok {
		result = "accepted"
	}
	r.ReadinessProbes.WithLabelValues(result).Inc()
}

// ObserveReadiness records how long a readiness wait took. Nil receivers are ignored.
func (r *Registry) ObserveReadiness(d time.Duration) {
	if r == nil {
		return
	}
	r.ReadinessWait.Observe(d.Seconds())
}

// HelperRequest counts a helper daemon request. Nil receivers are ignored.
func (r *Registry) HelperRequest(method, code string) {
	if r == nil {
		return
	}
	r.HelperRequests.WithLabelValues(method, code).Inc()
}
