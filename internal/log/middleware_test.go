package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("whatever"))
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentDashboard, Output: &buf})
	l.Info("Dashboard built", FieldUserID, "alice")
	assert.Contains(t, buf.String(), `"component":"dashboard"`)
	assert.Contains(t, buf.String(), `"user_id":"alice"`)

	buf.Reset()
	l = New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "component=app")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Output: &buf})

	var seen *Logger
	h := RequestLogger(logger,
		func(context.Context) string { return "req_1" },
		func(*http.Request) string { return "10.0.0.1" },
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary?x=1", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	if assert.NotNil(t, seen) {
		assert.Equal(t, ComponentHTTP, seen.Component())
	}
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "request_id=req_1")
	assert.Contains(t, out, "status_code=418")
	assert.Contains(t, out, "client_ip=10.0.0.1")
	assert.Contains(t, out, "path=/api/summary")
}

func TestFromContextDefault(t *testing.T) {
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestLogFields(t *testing.T) {
	tx := core.NewExpense(decimal.RequireFromString("12.5"), time.Now(), "secret note", "Food", "Card", "Shop")
	tx.ID = "t1"
	f := NewFields().WithTransaction(tx).WithError(errors.New("boom")).WithUser("").WithRequestID("r")

	assert.Equal(t, "t1", f[FieldTransactionID])
	assert.Equal(t, "12.50", f[FieldAmount])
	assert.Equal(t, "boom", f[FieldError])
	assert.NotContains(t, f, FieldUserID)
	assert.Len(t, f.ToSlice(), len(f)*2)
	for _, v := range f {
		assert.NotEqual(t, "secret note", v)
	}
}
