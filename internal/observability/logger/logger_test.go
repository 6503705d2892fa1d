package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/hotelops/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM bookings":                  "SELECT",
		"WITH recent AS (SELECT 1) SELECT * FROM": "SELECT",
		"  insert into users values (1)":          "INSERT",
		"":                                        "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-42")
	ctx = obscontext.WithRunID(ctx, "run-7")
	WithContext(ctx, base).Info("report.generated")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" {
		t.Fatalf("expected request_id field, got %v", fields["request_id"])
	}
	if fields["run_id"] != "run-7" {
		t.Fatalf("expected run_id field, got %v", fields["run_id"])
	}
}

func TestGinMiddlewareLogsRateLimitedAsWarn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(err error) (string, string) { return "rate_limited", "rate_limited" },
	}))
	router.GET("/api/reports", func(c *gin.Context) {
		_ = c.Error(errors.New("too many requests"))
		c.Status(http.StatusTooManyRequests)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") != "abc" {
		t.Fatalf("expected request id to be echoed")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entries[0].Level)
	}
}

func TestTableFromSQL(t *testing.T) {
	cases := map[string]string{
		`SELECT * FROM "bookings" WHERE id = $1`:   "bookings",
		"INSERT INTO `users` (`email`) VALUES (?)": "users",
		`UPDATE public.rooms SET name = $1`:        "rooms",
		"SELECT 1":                                 "unknown",
	}
	for sql, want := range cases {
		if got := tableFromSQL(sql); got != want {
			t.Fatalf("tableFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	ctx := obscontext.WithRunID(context.Background(), "run-7")
	query := func() (string, int64) { return `SELECT * FROM "users" WHERE email = $1`, 0 }

	quiet := NewGormLogger(DefaultGormLoggerConfig())
	quiet.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
	quiet.Trace(ctx, time.Now(), query, nil)
	if logs.Len() != 0 {
		t.Fatalf("expected no entries, got %d", logs.Len())
	}

	quiet.Trace(ctx, time.Now(), query, errors.New("boom"))
	entries := logs.TakeAll()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error entry, got %+v", entries)
	}
	fields := entries[0].ContextMap()
	if fields["table"] != "users" || fields["operation"] != "SELECT" || fields["run_id"] != "run-7" {
		t.Fatalf("unexpected fields: %+v", fields)
	}

	verbose := NewGormLogger(DebugGormLoggerConfig())
	verbose.Trace(ctx, time.Now(), query, nil)
	entries = logs.TakeAll()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("expected one debug entry, got %+v", entries)
	}
}

func TestGinMiddlewareFlagsSlowReports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(GinMiddleware(MiddlewareConfig{SlowThreshold: time.Millisecond}))
	router.GET("/api/reports", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/reports?now=2024-06-01", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["slow"] != true || fields["report_now"] != "2024-06-01" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if fields["request_id"] == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestBuildRejectsUnknownLevel(t *testing.T) {
	if _, err := build(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	log, err := build(Config{Level: "warn", Format: "console", Debug: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
}

func TestWithContextOmitsMissingIDs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithContext(context.Background(), zap.New(core)).Info("seed.done")

	fields := logs.All()[0].ContextMap()
	for _, key := range []string{"request_id", "run_id", "trace_id"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("unexpected %s field: %+v", key, fields)
		}
	}
}
