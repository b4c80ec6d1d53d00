package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveInvocation("getGroupInfo", "", 0.1)
	m.GateDecision("granted")
	m.AddGenerated(3)
	m.RuleFailure("malformed_rule")
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveInvocation("checkAndGenerateRecurring", "", 0.01)
	m.ObserveInvocation("checkAndGenerateRecurring", "permission_denied", 0.01)
	m.GateDecision("created")
	m.AddGenerated(3)
	m.AddGenerated(0)
	m.RuleFailure("malformed_rule")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("checkAndGenerateRecurring", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("checkAndGenerateRecurring", "permission_denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDecisions.WithLabelValues("created")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Generated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleFailures.WithLabelValues("malformed_rule")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.AddGenerated(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "groupledger_recurring_generated_total 2"))
}
