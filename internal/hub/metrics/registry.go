package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Post statuses recorded on hub_post_total.
const (
	StatusDelivered = "delivered"
	StatusEmpty     = "empty"
	StatusPanic     = "panic"
)

// Registry encapsulates all hub metrics and provides a clean interface
// for recording them without global state
type Registry struct {
	registry *prometheus.Registry

	// Dispatch metrics
	postTotal        *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchFanout   *prometheus.HistogramVec
	deliveriesTotal  *prometheus.CounterVec

	// Observer metrics
	activeObservers        *prometheus.GaugeVec
	observerOperationTotal *prometheus.CounterVec

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		postTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_post_total",
				Help: "Total number of posts",
			},
			[]string{"event", "status"}, // status: delivered, empty, panic
		),

		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_dispatch_duration_seconds",
				Help:    "Time spent invoking observers for a post",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"event"},
		),

		dispatchFanout: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_dispatch_fanout",
				Help:    "Number of observers invoked per post",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"event"},
		),

		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_deliveries_total",
				Help: "Total number of observer invocations",
			},
			[]string{"event"},
		),

		activeObservers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hub_active_observers",
				Help: "Current number of registered observers",
			},
			[]string{"event"},
		),

		observerOperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_observer_operation_total",
				Help: "Total number of observer registrations and removals",
			},
			[]string{"operation"}, // operation: observe, remove
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hub_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hub_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.postTotal,
		r.dispatchDuration,
		r.dispatchFanout,
		r.deliveriesTotal,
		r.activeObservers,
		r.observerOperationTotal,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// RecordPost records one dispatch pass for an event
func (r *Registry) RecordPost(event, status string, delivered int, duration time.Duration) {
	r.postTotal.WithLabelValues(event, status).Inc()
	r.dispatchDuration.WithLabelValues(event).Observe(duration.Seconds())
	if status != StatusPanic {
		r.dispatchFanout.WithLabelValues(event).Observe(float64(delivered))
	}
	if delivered > 0 {
		r.deliveriesTotal.WithLabelValues(event).Add(float64(delivered))
	}
}

// RecordObserve records a new observer registration
func (r *Registry) RecordObserve(event string) {
	r.observerOperationTotal.WithLabelValues("observe").Inc()
	r.activeObservers.WithLabelValues(event).Inc()
}

// RecordRemove records an observer removal
func (r *Registry) RecordRemove(event string) {
	r.observerOperationTotal.WithLabelValues("remove").Inc()
	r.activeObservers.WithLabelValues(event).Dec()
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, buildTime string) {
	r.systemInfo.WithLabelValues(version, buildTime).Set(1)
}
