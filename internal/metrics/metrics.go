// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamhub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		},
		[]string{"route"},
	)

	// Accounts

	AccountsRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamhub_accounts_registered_total",
			Help: "Accounts created through registration",
		},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"result"},
	)

	// Personalization

	FavoritesChangedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_favorites_changed_total",
			Help: "Favourite additions and removals",
		},
		[]string{"action"},
	)

	ReviewsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_reviews_submitted_total",
			Help: "Review submissions by outcome (created or updated)",
		},
		[]string{"outcome"},
	)

	// Infrastructure

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_cache_lookups_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_events_published_total",
			Help: "Events processed by the event bus by type",
		},
		[]string{"type"},
	)

	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamhub_events_dropped_total",
			Help: "Events dropped because the bus buffer was full",
		},
	)
)

// RecordHTTPRequest records one finished request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordLogin records a login attempt outcome
func RecordLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}
