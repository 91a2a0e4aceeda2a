package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/personnes", nil))

	if seen == "" {
		t.Fatal("no request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("header id %q != context id %q", got, seen)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/personnes", nil)
	req.Header.Set("X-Request-ID", "journey-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "journey-42" {
		t.Fatalf("context id = %q, want the caller's", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "journey-42" {
		t.Fatalf("header id = %q, want journey-42", got)
	}
}
