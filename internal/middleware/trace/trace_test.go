package trace

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classfees/internal/log"
	"classfees/internal/metrics"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	mw := NewMiddleware(nil, log.Discard(), nil)
	h := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id=%q", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header=%q want %q", rec.Header().Get(RequestIDHeader), seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestMiddlewareKeepsInboundRequestID(t *testing.T) {
	mw := NewMiddleware(nil, log.Discard(), nil)
	h := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("got %q", got)
	}
}

func TestMiddlewareLogsAndRecordsRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentApp})
	m := metrics.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/students/{id}", func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).InfoContext(r.Context(), "handler ran")
		w.WriteHeader(http.StatusNotFound)
	})
	h := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger, m).Middleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/students/s1", nil))

	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") || !strings.Contains(out, "status_code=404") {
		t.Errorf("completion not logged: %s", out)
	}
	if !strings.Contains(out, "handler ran") || !strings.Contains(out, "request_id=req_") {
		t.Errorf("request logger not in context: %s", out)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	want := `classfees_http_requests_total{method="GET",route="GET /api/students/{id}",status="404"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("missing %s", want)
	}
}
