package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveStage("reason", "ok", time.Second)
	m.IncStageConflict("reason")
	m.IncVerdict(true)
	m.ObserveLLMRequest("m", "reasoning", "ok", time.Second, 1, 1)
	assert.Nil(t, m.Registry())
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.ObserveStage("validate", "ok", 2*time.Second)
	m.ObserveStage("validate", "malformed", time.Second)
	m.IncStageConflict("generate")
	m.IncVerdict(false)
	m.ObserveLLMRequest("gpt-4o-mini", "validation", "ok", time.Second, 100, 20)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageRuns.WithLabelValues("validate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageConflicts.WithLabelValues("generate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdicts.WithLabelValues("false")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.llmTokens.WithLabelValues("gpt-4o-mini", "input")))
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/generations/:id/reason", "200", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `govgen_api_requests_total{method="POST",route="/api/generations/:id/reason",status="200"} 1`), body)
}
