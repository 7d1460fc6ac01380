package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueryErrors.WithLabelValues("metrics_test", "timeout_error"))

	RecordQuery("metrics_test", 10*time.Millisecond, "")
	RecordQuery("metrics_test", 20*time.Millisecond, "timeout_error")

	after := testutil.ToFloat64(QueryErrors.WithLabelValues("metrics_test", "timeout_error"))
	assert.Equal(t, before+1, after)
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("metrics_test"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("metrics_test"))
	purges := testutil.ToFloat64(CacheInvalidations.WithLabelValues("metrics_test"))

	RecordCacheHit("metrics_test")
	RecordCacheHit("metrics_test")
	RecordCacheMiss("metrics_test")
	RecordInvalidation("metrics_test")

	assert.Equal(t, hits+2, testutil.ToFloat64(CacheHits.WithLabelValues("metrics_test")))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheMisses.WithLabelValues("metrics_test")))
	assert.Equal(t, purges+1, testutil.ToFloat64(CacheInvalidations.WithLabelValues("metrics_test")))
}
