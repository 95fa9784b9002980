package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func requestLogEntry(t *testing.T, status int, body string) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	Logger(logger)(handler).ServeHTTP(rec, req)

	if rec.Code != status {
		t.Fatalf("response status = %d, want %d", rec.Code, status)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	return entry
}

func TestLoggerFields(t *testing.T) {
	entry := requestLogEntry(t, http.StatusOK, "OK")

	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/test" {
		t.Errorf("path = %v, want /test", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if entry["bytes"] != float64(2) {
		t.Errorf("bytes = %v, want 2", entry["bytes"])
	}
	if entry["message"] != "request completed" {
		t.Errorf("message = %v, want 'request completed'", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestLoggerClientError(t *testing.T) {
	entry := requestLogEntry(t, http.StatusNotFound, "Not Found")

	if entry["status"] != float64(404) {
		t.Errorf("status = %v, want 404", entry["status"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info for a client error", entry["level"])
	}
}

func TestLoggerServerErrorWarns(t *testing.T) {
	entry := requestLogEntry(t, http.StatusInternalServerError, "boom")

	if entry["status"] != float64(500) {
		t.Errorf("status = %v, want 500", entry["status"])
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn for a server error", entry["level"])
	}
}
