package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveInvocation("flow", OutcomeSuccess, 2*time.Second)
	m.ObserveInvocation("flow", OutcomeFailed, time.Second)
	m.ObserveInvocation("agent", OutcomeSuccess, time.Second)
	m.ObserveStep(OutcomeSuccess, 500*time.Millisecond)
	m.ObserveFlowLength(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("flow", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("flow", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues(OutcomeSuccess)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveInvocation("agent", OutcomeError, time.Second)
	m.ObserveStep(OutcomeFailed, time.Second)
	m.ObserveFlowLength(1)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveInvocation("agent", OutcomeSuccess, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agents_invocations_total{kind="agent",outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
