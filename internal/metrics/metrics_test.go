package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRender(t *testing.T) {
	before := testutil.ToFloat64(PageRendersTotal.WithLabelValues("overview", "ok"))
	RecordRender("overview", "ok", 0.05)
	after := testutil.ToFloat64(PageRendersTotal.WithLabelValues("overview", "ok"))
	assert.Equal(t, before+1, after)
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(LoadCacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(LoadCacheTotal.WithLabelValues("miss"))

	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheMiss()

	assert.Equal(t, hits+1, testutil.ToFloat64(LoadCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(LoadCacheTotal.WithLabelValues("miss")))
}

func TestSetActiveSessions(t *testing.T) {
	SetActiveSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(ActiveSessions))
	SetActiveSessions(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(ActiveSessions))
}
