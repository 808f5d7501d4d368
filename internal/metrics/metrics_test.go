package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	require.NotNil(t, httpRequestsTotal)
	require.NotNil(t, httpRequestDurationSeconds)
	require.NotNil(t, wordCountRequestsTotal)
	require.NotNil(t, wordCountDurationSeconds)
	require.NotNil(t, wordCountStreamChunksTotal)
	require.NotNil(t, wordCountFetchedBytesTotal)
	require.NotNil(t, wordCountHistoryQueriesTotal)
	require.NotNil(t, fetchRateLimitDelaySeconds)
}

func TestObserveWordCount(t *testing.T) {
	before := testutil.ToFloat64(wordCountRequestsCounter("stream", "success"))
	ObserveWordCount("stream", "success", 20*time.Millisecond)
	ObserveWordCount("stream", "success", 40*time.Millisecond)
	assert.InDelta(t, before+2, testutil.ToFloat64(wordCountRequestsCounter("stream", "success")), 0.001)

	failedBefore := testutil.ToFloat64(wordCountRequestsCounter("whole", "fetch_error"))
	ObserveWordCount("whole", "fetch_error", time.Millisecond)
	assert.InDelta(t, failedBefore+1, testutil.ToFloat64(wordCountRequestsCounter("whole", "fetch_error")), 0.001)
}

func TestObserveStreamChunkAndWholeBody(t *testing.T) {
	Init()
	chunks := testutil.ToFloat64(wordCountStreamChunksTotal)
	streamBytes := testutil.ToFloat64(wordCountFetchedBytesTotal.WithLabelValues("stream"))
	wholeBytes := testutil.ToFloat64(wordCountFetchedBytesTotal.WithLabelValues("whole"))

	ObserveStreamChunk(100)
	ObserveStreamChunk(0)
	ObserveWholeBody(512)

	assert.InDelta(t, chunks+2, testutil.ToFloat64(wordCountStreamChunksTotal), 0.001)
	assert.InDelta(t, streamBytes+100, testutil.ToFloat64(wordCountFetchedBytesTotal.WithLabelValues("stream")), 0.001)
	assert.InDelta(t, wholeBytes+512, testutil.ToFloat64(wordCountFetchedBytesTotal.WithLabelValues("whole")), 0.001)
}

func TestObserveHistoryQuery(t *testing.T) {
	Init()
	before := testutil.ToFloat64(wordCountHistoryQueriesTotal.WithLabelValues("error"))
	ObserveHistoryQuery("error")
	assert.InDelta(t, before+1, testutil.ToFloat64(wordCountHistoryQueriesTotal.WithLabelValues("error")), 0.001)
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveWordCount("whole", "success", time.Millisecond)
	ObserveRateLimitDelay(250 * time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wordcount_requests_total")
	assert.Contains(t, rec.Body.String(), "wordcount_duration_seconds")
	assert.Contains(t, rec.Body.String(), "wordcount_fetch_rate_limit_delay_seconds_count")
}

func wordCountRequestsCounter(processingType, outcome string) prometheus.Counter {
	Init()
	return wordCountRequestsTotal.WithLabelValues(processingType, outcome)
}
