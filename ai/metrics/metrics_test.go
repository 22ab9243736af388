package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter_Counters(t *testing.T) {
	e := NewExporter(Config{})

	e.RecordAIRequest("primary", "ok", 250*time.Millisecond)
	e.RecordAIRequest("primary", "ok", 100*time.Millisecond)
	e.RecordAIRequest("backup", "upstream_error", time.Second)
	e.RecordCacheHit("response")
	e.RecordCacheMiss("response")
	e.RecordRateDenial("cooldown")
	e.RecordAITokens("primary", 120, 45)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.aiRequests.WithLabelValues("primary", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.aiRequests.WithLabelValues("backup", "upstream_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.cacheHits.WithLabelValues("response")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.cacheMisses.WithLabelValues("response")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.rateDenials.WithLabelValues("cooldown")))
	assert.Equal(t, 120.0, testutil.ToFloat64(e.aiTokens.WithLabelValues("primary", "prompt")))
	assert.Equal(t, 45.0, testutil.ToFloat64(e.aiTokens.WithLabelValues("primary", "completion")))
}

func TestExporter_Handler(t *testing.T) {
	e := NewExporter(Config{})
	e.RecordRoutedMessage("command")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	e.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "ashbot_bot_messages_routed_total")
}
