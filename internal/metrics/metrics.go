// Package metrics exposes Prometheus collectors for the word count service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec
	wordCountRequestsTotal       *prometheus.CounterVec
	wordCountDurationSeconds     *prometheus.HistogramVec
	wordCountStreamChunksTotal   prometheus.Counter
	wordCountFetchedBytesTotal   *prometheus.CounterVec
	wordCountHistoryQueriesTotal *prometheus.CounterVec
	fetchRateLimitDelaySeconds   prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		wordCountRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordcount_requests_total",
				Help: "Total number of word count runs, labeled by processing type and outcome.",
			},
			[]string{"processing_type", "outcome"},
		)

		wordCountDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wordcount_duration_seconds",
				Help:    "Histogram of end-to-end word count latencies, labeled by processing type.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"processing_type"},
		)

		wordCountStreamChunksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "wordcount_stream_chunks_total",
				Help: "Total number of body chunks folded by the streamed strategy.",
			},
		)

		wordCountFetchedBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordcount_fetched_bytes_total",
				Help: "Total number of document bytes fetched, labeled by processing type.",
			},
			[]string{"processing_type"},
		)

		wordCountHistoryQueriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordcount_history_queries_total",
				Help: "Total number of history queries, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchRateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wordcount_fetch_rate_limit_delay_seconds",
				Help:    "Time outbound fetches spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveWordCount records one finished word count run.
func ObserveWordCount(processingType, outcome string, duration time.Duration) {
	Init()
	wordCountRequestsTotal.WithLabelValues(processingType, outcome).Inc()
	wordCountDurationSeconds.WithLabelValues(processingType).Observe(duration.Seconds())
}

// ObserveStreamChunk records one folded chunk of n bytes.
func ObserveStreamChunk(n int) {
	Init()
	wordCountStreamChunksTotal.Inc()
	if n > 0 {
		wordCountFetchedBytesTotal.WithLabelValues("stream").Add(float64(n))
	}
}

// ObserveWholeBody records a fully buffered body of n bytes.
func ObserveWholeBody(n int) {
	Init()
	if n > 0 {
		wordCountFetchedBytesTotal.WithLabelValues("whole").Add(float64(n))
	}
}

// ObserveHistoryQuery increments the history query counter.
func ObserveHistoryQuery(outcome string) {
	Init()
	wordCountHistoryQueriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records time spent waiting for a fetch token.
func ObserveRateLimitDelay(d time.Duration) {
	Init()
	fetchRateLimitDelaySeconds.Observe(d.Seconds())
}
