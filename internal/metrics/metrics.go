// Package metrics exposes Prometheus counters for the API client and the web console.
//
// metrics.go -- Collector on a private registry, served at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "michame"

// Collector implements apiclient.Observer and datasource degradation reporting.
// Each Collector owns its registry, so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	sessionExpired  prometheus.Counter
	degraded        *prometheus.CounterVec
	consoleRequests *prometheus.CounterVec
}

// New builds a Collector with every metric registered, plus Go runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Backend API calls by method and outcome.",
		}, []string{"method", "outcome"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend API call latency, including any refresh and retry.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "refresh_total",
			Help:      "Access token refresh attempts by result.",
		}, []string{"result"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_expired_total",
			Help:      "Sessions ended by an unrecoverable 401.",
		}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datasource",
			Name:      "degraded_total",
			Help:      "Switches from live data to static fixtures, by data kind.",
		}, []string{"source"}),
		consoleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "requests_total",
			Help:      "Web console requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
	}

	c.registry.MustRegister(
		c.apiRequests, c.apiDuration, c.refreshes, c.sessionExpired, c.degraded, c.consoleRequests,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RequestDone records one logical API call.
func (c *Collector) RequestDone(method, outcome string, elapsed time.Duration) {
	c.apiRequests.WithLabelValues(method, outcome).Inc()
	c.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RefreshDone records a refresh attempt.
func (c *Collector) RefreshDone(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.refreshes.WithLabelValues(result).Inc()
}

// SessionExpired records a forced logout.
func (c *Collector) SessionExpired() {
	c.sessionExpired.Inc()
}

// Degraded records a switch to fixtures for source (e.g. "rides").
func (c *Collector) Degraded(source string) {
	c.degraded.WithLabelValues(source).Inc()
}

// Middleware counts console requests by chi route pattern, keeping label cardinality bounded.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		c.consoleRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
	})
}

// statusWriter captures the response status.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
