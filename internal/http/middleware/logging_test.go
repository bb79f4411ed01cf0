package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogger swaps the global logger for an in-memory JSON sink.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func TestRequestID_GeneratedWhenAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/api/v1/requests", func(c *gin.Context) {
		if v, ok := c.Get(requestIDKey); !ok || v == "" {
			t.Fatalf("request id missing from context")
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated %s header", requestIDHeader)
	}
}

func TestRequestID_ClientValuePropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/api/v1/bookings", func(c *gin.Context) {
		if v, _ := c.Get(requestIDKey); v != "bk-trace-7" {
			t.Fatalf("context request id = %v; want bk-trace-7", v)
		}
		c.Status(http.StatusNoContent)
	})

	// Header lookup is case-insensitive; exercise both spellings.
	for _, hdr := range []string{requestIDHeader, strings.ToLower(requestIDHeader)} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		req.Header.Set(hdr, "bk-trace-7")
		r.ServeHTTP(w, req)
		if got := w.Header().Get(requestIDHeader); got != "bk-trace-7" {
			t.Fatalf("header %q: response id = %q; want bk-trace-7", hdr, got)
		}
	}
}

func TestLogger_LevelByOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.GET("/api/v1/conversations", func(c *gin.Context) { c.String(http.StatusOK, "[]") })
	r.POST("/api/v1/requests", func(c *gin.Context) {
		_ = c.Error(errors.New("severity out of range"))
		c.Status(http.StatusBadRequest)
	})

	do := func(method, path string, want int) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		if w.Code != want {
			t.Fatalf("%s %s -> %d; want %d", method, path, w.Code, want)
		}
	}

	do(http.MethodGet, "/api/v1/conversations", http.StatusOK) // info
	do(http.MethodGet, "/api/v1/nope", http.StatusNotFound)    // warn, raw-path fallback
	do(http.MethodPost, "/api/v1/requests", http.StatusBadRequest) // error (c.Errors set)

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) || !strings.Contains(logs, `"path":"/api/v1/conversations"`) {
		t.Fatalf("expected info line with matched route, got:\n%s", logs)
	}
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"path":"/api/v1/nope"`) {
		t.Fatalf("expected warn line with raw path, got:\n%s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, "severity out of range") {
		t.Fatalf("expected error line with collected error, got:\n%s", logs)
	}
}

func TestRecovery_JSONEnvelopeAndLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())
	r.GET("/api/v1/bookings/:id", func(c *gin.Context) { panic("nil schedule") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b1", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["message"] != "internal server error" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if body["request_id"] == "" {
		t.Fatalf("envelope lost the request id: %v", body)
	}
	if out := buf.String(); !strings.Contains(out, "panic recovered") {
		t.Fatalf("expected panic log, got:\n%s", out)
	}
}

func TestRecovery_PanicAfterWriteSkipsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Recovery())
	r.GET("/api/v1/requests", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late failure")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil))

	// The partial body must not be followed by the JSON envelope.
	if strings.Contains(w.Body.String(), "internal server error") {
		t.Fatalf("JSON envelope written over a started response: %q", w.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic log, got:\n%s", buf.String())
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Without Logger() the fallback has no request fields.
	buf1 := captureLogger(t)
	r1 := gin.New()
	r1.Use(RequestID())
	r1.GET("/x", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("emitted outside the access log")
		c.Status(http.StatusOK)
	})
	r1.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if out := buf1.String(); !strings.Contains(out, "emitted outside the access log") || strings.Contains(out, `"request_id"`) {
		t.Fatalf("fallback logger wrong:\n%s", out)
	}

	// With Logger() the line inherits the correlation fields.
	buf2 := captureLogger(t)
	r2 := gin.New()
	r2.Use(RequestID())
	r2.Use(Logger())
	r2.GET("/x", func(c *gin.Context) {
		LoggerFrom(c).Info().Str("notification_id", "n1").Msg("pushed")
		c.Status(http.StatusOK)
	})
	r2.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	out := buf2.String()
	if !strings.Contains(out, `"notification_id":"n1"`) || !strings.Contains(out, `"request_id"`) {
		t.Fatalf("request-scoped logger wrong:\n%s", out)
	}
}

func TestHelpers_asString_truncate(t *testing.T) {
	if asString("seeker1") != "seeker1" || asString(42) != "" || asString(nil) != "" {
		t.Fatalf("asString failed")
	}
	if truncate("page=2", 2048) != "page=2" {
		t.Fatalf("truncate no-op failed")
	}
	if got := truncate("abcdefgh", 5); got != "abcde…" {
		t.Fatalf("truncate = %q; want %q", got, "abcde…")
	}
	if truncate("abc", 0) != "abc" {
		t.Fatalf("max<=0 must disable the cap")
	}
}
