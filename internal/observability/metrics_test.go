package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordDecision("ticket:view", "deny")
	m.RecordDecision("ticket:view", "deny")
	m.RecordDecision("roles:manage", "allow")
	m.RecordRoleCache("hit")
	m.RecordRequest("/tickets/:id", http.MethodGet, 200, 10*time.Millisecond)
	m.RecordError("/tickets/:id", http.MethodGet, "NOT_FOUND")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("ticket:view", "deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("roles:manage", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roleCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/tickets/:id", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/tickets/:id", http.MethodGet, "NOT_FOUND")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordDecision("a", "b")
		m.RecordRoleCache("miss")
		m.RecordRequest("/", http.MethodGet, 200, time.Millisecond)
		m.RecordError("/", http.MethodGet, "X")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision("ticket:edit", "allow")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `tickettracker_authz_decisions_total{action="ticket:edit",decision="allow"} 1`))
}
