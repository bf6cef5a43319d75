package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/api/clients", 200, 12*time.Millisecond)
	c.RecordHTTPRequest("GET", "/api/clients", 200, 15*time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/clients", 201, 20*time.Millisecond)

	if got := counterValue(t, reg, "lexdesk_http_requests_total"); got != 3 {
		t.Errorf("lexdesk_http_requests_total = %v, want 3", got)
	}
}

func TestRecordOpAndLogin(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOp("clients", "create")
	c.RecordOp("clients", "delete")
	c.RecordLogin("ok")
	c.RecordLogin("denied")
	c.RecordLogin("denied")
	c.RecordReminderSent()

	if got := counterValue(t, reg, "lexdesk_record_operations_total"); got != 2 {
		t.Errorf("lexdesk_record_operations_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "lexdesk_logins_total"); got != 3 {
		t.Errorf("lexdesk_logins_total = %v, want 3", got)
	}
	if got := counterValue(t, reg, "lexdesk_court_reminders_sent_total"); got != 1 {
		t.Errorf("lexdesk_court_reminders_sent_total = %v, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPRequest("GET", "/api/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "lexdesk_http_requests_total") {
		t.Error("expected exposition to contain lexdesk_http_requests_total")
	}
}
