package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_twin_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Chat metrics
	chatReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_chat_replies_total",
		Help: "Total number of chat replies by source",
	}, []string{"source"})

	// AI metrics
	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_twin_ai_request_duration_seconds",
		Help:    "Duration of AI requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_ai_requests_total",
		Help: "Total number of AI requests",
	}, []string{"model", "status"})

	// Cache metrics
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"cache"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"cache"})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"route"})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "backend", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_twin_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "backend"})

	// Contact metrics
	contactSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_twin_contact_submissions_total",
		Help: "Total number of contact submissions",
	}, []string{"persisted", "notified"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordHTTPRequest records a served request
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordChatReply records where a chat reply came from
func (m *Metrics) RecordChatReply(source string) {
	chatReplies.WithLabelValues(source).Inc()
}

// RecordAIRequest records an AI request
func (m *Metrics) RecordAIRequest(model, status string, duration time.Duration) {
	aiRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	aiRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(name string, hit bool) {
	if hit {
		cacheHits.WithLabelValues(name).Inc()
		return
	}
	cacheMisses.WithLabelValues(name).Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(route string) {
	rateLimitExceeded.WithLabelValues(route).Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, backend, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, backend, status).Inc()
	storageOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

// RecordContactSubmission records the outcome of a contact submission
func (m *Metrics) RecordContactSubmission(persisted, notified bool) {
	contactSubmissions.WithLabelValues(strconv.FormatBool(persisted), strconv.FormatBool(notified)).Inc()
}

// Handler serves the Prometheus exposition
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records every request matched by the router, labelled with
// the route template rather than the raw path.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.InstrumentRoute(route, next).ServeHTTP(w, r)
	})
}

// InstrumentRoute records requests under a fixed route label
func (m *Metrics) InstrumentRoute(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewStatusRecorder(w)
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(route, r.Method, rec.Status(), time.Since(start))
	})
}
