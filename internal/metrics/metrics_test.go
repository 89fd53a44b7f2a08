package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.Update("callback", "updated", 0.01)
	m.Update("callback", "updated", 0.02)
	m.Update("message", "ignored", 0.001)
	m.Transition("done", "applied")
	m.Transition("done", "rejected")
	m.Adjustments(3)
	m.Adjustments(0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), `splitbot_updates_total{kind="callback",outcome="updated"} 2`)
	assert.Contains(t, string(body), `splitbot_updates_total{kind="message",outcome="ignored"} 1`)
	assert.Contains(t, string(body), `splitbot_transitions_total{action="done",result="rejected"} 1`)
	assert.Contains(t, string(body), "splitbot_balance_adjustments_total 3")
	assert.Contains(t, string(body), `splitbot_update_duration_seconds_count{kind="callback"} 2`)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Update("message", "ignored", 0)
	m.Transition("split", "applied")
	m.Adjustments(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
