package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/conference-scheduler/internal/logging"
	"github.com/example/conference-scheduler/internal/observability"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	var sawLogger bool
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawLogger = logging.Lookup(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !sawLogger {
		t.Fatal("request scoped logger missing from context")
	}
	logged := buf.String()
	if !strings.Contains(logged, "request started") || !strings.Contains(logged, "request completed") {
		t.Fatalf("unexpected log output:\n%s", logged)
	}
	if !strings.Contains(logged, "path=/sessions") {
		t.Fatalf("request path missing from log output:\n%s", logged)
	}
}

func TestInstrumentRecordsStatus(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	handler := Instrument(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() != "scheduler_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == "409" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatal("expected a request counter labelled with status 409")
	}
}

func TestRouteLabelCollapsesIdentifiers(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/sessions":              "/sessions",
		"/sessions/sess-1":       "/sessions/{id}",
		"/respond":               "/respond",
		"/faculties":             "/faculties",
		"/unknown/deeply/nested": "other",
		"/bulk-invites":          "/bulk-invites",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
