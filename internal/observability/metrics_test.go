package observability_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aegis-iam/aegis/internal/observability"
	_ "github.com/aegis-iam/aegis/testing"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", res.Code)
	}
	return res.Body.String()
}

func TestObserveDecision(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveDecision(true, "superadmin")
	m.ObserveDecision(false, "none")
	m.ObserveDecision(false, "none")

	body := scrape(t, m)
	if !strings.Contains(body, `aegis_authz_decisions_total{clause="superadmin",outcome="allow"} 1`) {
		t.Fatalf("missing allow counter in scrape:\n%s", body)
	}
	if !strings.Contains(body, `aegis_authz_decisions_total{clause="none",outcome="deny"} 2`) {
		t.Fatalf("missing deny counter in scrape:\n%s", body)
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := observability.NewMetrics()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/anything", nil))
	if res.Code != http.StatusTeapot {
		t.Fatalf("middleware must pass the response through, got %d", res.Code)
	}

	body := scrape(t, m)
	if !strings.Contains(body, `aegis_http_requests_total{code="418",route="unknown"} 1`) {
		t.Fatalf("missing request counter in scrape:\n%s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *observability.Metrics
	m.ObserveDecision(true, "direct_permission")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if m.Middleware(next) == nil {
		t.Fatalf("nil metrics middleware must return the next handler")
	}
}
