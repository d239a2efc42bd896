package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector("memorygrid")
	other := NewCollector("memorygrid")

	c.RecordReadFailure("fetch public memories")
	c.RecordMemoryCreated("public")
	c.RecordStoreOperation("insert", 10*time.Millisecond, nil)
	c.RecordStoreOperation("insert", 10*time.Millisecond, errors.New("boom"))
	c.RecordHTTPRequest(http.MethodGet, "/api/v1/memories", http.StatusOK, time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `memorygrid_memory_read_failures_total{operation="fetch public memories"} 1`)
	assert.Contains(t, body, `memorygrid_memories_created_total{visibility="public"} 1`)
	assert.Contains(t, body, `memorygrid_store_operations_total{operation="insert",status="error"} 1`)
	assert.Contains(t, body, `memorygrid_http_requests_total{method="GET",route="/api/v1/memories",status="200"} 1`)
	assert.NotContains(t, scrape(t, other), "memories_created_total{")
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestInitTracingDisabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{})
	require.NoError(t, err)

	_, span := tp.Tracer().Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
