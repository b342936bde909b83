package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposeRecordedSeries(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "POST", 201, 15*time.Millisecond)
	m.RecordError("/tickets/:id/actions/:action", "POST", "FORBIDDEN")
	m.RecordTransition("volume_shortfall", "forward", "ok")
	m.RecordTicketCreated("volume_shortfall", "high")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `placement_ticketing_http_requests_total{method="POST",route="/tickets",status="201"} 1`)
	assert.Contains(t, out, `placement_ticketing_errors_total{code="FORBIDDEN"`)
	assert.Contains(t, out, `placement_ticketing_ticket_transitions_total{action="forward",result="ok",type="volume_shortfall"} 1`)
	assert.Contains(t, out, `placement_ticketing_tickets_created_total{priority="high",type="volume_shortfall"} 1`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordTransition("t", "a", "ok")
		m.RecordTicketCreated("t", "low")
	})
}
