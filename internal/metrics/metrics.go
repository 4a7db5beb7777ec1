package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "round_robin"

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing, which keeps services usable without a registry.
type Metrics struct {
	registrations      prometheus.Counter
	schedulesGenerated *prometheus.CounterVec
	matchesScheduled   prometheus.Counter
	resultsRecorded    prometheus.Counter
	scheduleDuration   prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Participants registered.",
		}),
		schedulesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_generated_total",
			Help:      "Schedules written, by trigger.",
		}, []string{"trigger"}),
		matchesScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_scheduled_total",
			Help:      "Matches created by schedule generation.",
		}),
		resultsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_recorded_total",
			Help:      "Match results entered or cleared.",
		}),
		scheduleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_generation_seconds",
			Help:      "Time spent generating and persisting a schedule.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.registrations,
		m.schedulesGenerated,
		m.matchesScheduled,
		m.resultsRecorded,
		m.scheduleDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) RegistrationRecorded() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// ScheduleGenerated records one persisted schedule. trigger is "activation"
// or "regeneration".
func (m *Metrics) ScheduleGenerated(trigger string, matches int, took time.Duration) {
	if m == nil {
		return
	}
	m.schedulesGenerated.WithLabelValues(trigger).Inc()
	m.matchesScheduled.Add(float64(matches))
	m.scheduleDuration.Observe(took.Seconds())
}

func (m *Metrics) ResultRecorded() {
	if m == nil {
		return
	}
	m.resultsRecorded.Inc()
}

// Middleware counts requests by chi route pattern so path ids don't blow up
// label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
