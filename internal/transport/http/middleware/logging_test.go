package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"labadmin/internal/requestctx"
)

func TestLoggerRecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/personnes/42", nil)
	req = req.WithContext(requestctx.WithRequestID(req.Context(), "req-123"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status to pass through, got %d", rec.Code)
	}

	var line struct {
		Method    string  `json:"method"`
		Path      string  `json:"path"`
		Status    int     `json:"status"`
		Duration  float64 `json:"durationMs"`
		RequestID string  `json:"requestId"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line.Method != http.MethodGet || line.Path != "/personnes/42" {
		t.Fatalf("unexpected log line: %+v", line)
	}
	if line.Status != http.StatusNotFound {
		t.Fatalf("expected status 404 in log, got %d", line.Status)
	}
	if line.RequestID != "req-123" {
		t.Fatalf("expected request id in log, got %q", line.RequestID)
	}
}
