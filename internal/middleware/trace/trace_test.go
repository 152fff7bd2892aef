package trace

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/budget", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("response header %q != context id %q", rr.Header().Get(RequestIDHeader), seen)
	}
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "upstream-1" {
		t.Fatalf("request id = %q, want upstream-1", seen)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	if GenerateRequestID() == GenerateRequestID() {
		t.Fatal("expected unique ids")
	}
}

func TestRemoteIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := RemoteIP(r); got != "10.0.0.1" {
		t.Fatalf("got %q", got)
	}

	r.RemoteAddr = "10.0.0.2"
	if got := RemoteIP(r); got != "10.0.0.2" {
		t.Fatalf("got %q", got)
	}
	if got := ClientIP(r); got != "10.0.0.2" {
		t.Fatalf("ClientIP outside the middleware = %q", got)
	}
}

func TestMiddleware_LogsResolvedClientIP(t *testing.T) {
	var buf bytes.Buffer
	resolve := func(*http.Request) string { return "198.51.100.4" }
	m := NewMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)), resolve)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["client_ip"] != "198.51.100.4" || seen != "198.51.100.4" {
		t.Fatalf("logged %v, handler saw %q", line["client_ip"], seen)
	}
}

func TestGetMetrics_Average(t *testing.T) {
	m := NewMiddleware(nil, nil)
	if got := m.GetMetrics(); got != (Metrics{}) {
		t.Fatalf("empty metrics = %+v", got)
	}

	m.totalRequests = 4
	m.totalMicros = 1000
	if got := m.GetMetrics(); got.TotalRequests != 4 || got.AverageResponseTime != 250 {
		t.Fatalf("metrics = %+v", got)
	}
}
