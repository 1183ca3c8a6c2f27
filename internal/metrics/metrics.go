package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "decorbook"

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Outgoing REST API requests by method, route and status class.",
		},
		[]string{"method", "route", "code"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Outgoing REST API latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_cache_lookups_total",
			Help:      "Public GET cache lookups by result.",
		},
		[]string{"result"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking lifecycle transitions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	staleSearches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_stale_results_total",
			Help:      "Search responses dropped because a newer query was issued.",
		},
	)

	callbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_callbacks_total",
			Help:      "Incoming HTTP callbacks by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, apiDuration, cacheLookups, transitions, staleSearches, callbacks)
	})
}

// ObserveAPI records one outgoing request. code is the HTTP status or 0 on transport error.
func ObserveAPI(method, route string, code int, elapsed time.Duration) {
	apiRequests.WithLabelValues(method, route, codeClass(code)).Inc()
	apiDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func codeClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func IncCache(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// IncTransition counts a transition attempt. outcome is ok, rejected or failed.
func IncTransition(action, outcome string) {
	transitions.WithLabelValues(action, outcome).Inc()
}

func IncStaleSearch() {
	staleSearches.Inc()
}

// IncHTTP increments the callback counter for an endpoint label.
func IncHTTP(endpoint string) {
	callbacks.WithLabelValues(endpoint).Inc()
}
