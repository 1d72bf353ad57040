package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithRequestIDTagsRequestLogger(t *testing.T) {
	const incoming = "edge-7f3a9c"
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With("service", "site")

	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestIDFromRequest(r); got != incoming {
			t.Fatalf("request id in context = %q, want %q", got, incoming)
		}
		LoggerFromContext(r.Context()).Info("contact submitted", "submission_id", "s-1")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req = req.WithContext(ContextWithLogger(req.Context(), base))
	req.Header.Set(RequestIDHeader, "  "+incoming+" ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != incoming {
		t.Fatalf("response request id = %q, want %q", got, incoming)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["request_id"] != incoming || line["service"] != "site" || line["submission_id"] != "s-1" {
		t.Fatalf("log line missing request attributes: %v", line)
	}
}

func TestWithRequestIDGeneratesWhenMissing(t *testing.T) {
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestIDFromRequest(r); got == "" {
			t.Fatal("expected generated request id in context")
		}
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestWithRequestIDReplacesOversizedHeader(t *testing.T) {
	oversized := strings.Repeat("a", maxRequestIDLen+1)
	handler := WithRequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", oversized)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got == oversized || got == "" {
		t.Fatalf("expected a generated request id, got %q", got)
	}
}
