package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/hotelops/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// SlowThreshold raises successful requests that take longer to warn.
	// Zero disables the check.
	SlowThreshold   time.Duration
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware tags the request context with a request id and writes one
// http_request entry per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFor(c)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		elapsed := time.Since(start)
		entry := requestEntry{
			route:   routeOf(c),
			status:  c.Writer.Status(),
			elapsed: elapsed,
			slow:    cfg.SlowThreshold > 0 && elapsed > cfg.SlowThreshold,
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", entry.route),
			zap.Int("status", entry.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if now := strings.TrimSpace(c.Query("now")); now != "" {
			fields = append(fields, zap.String("report_now", now))
		}
		if entry.slow {
			fields = append(fields, zap.Bool("slow", true))
		}

		if lastErr := c.Errors.Last(); lastErr != nil {
			if cfg.ErrorClassifier != nil {
				entry.errorType, entry.errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", entry.errorType),
				zap.String("error_code", entry.errorCode),
			)
			if cfg.Debug && entry.status >= http.StatusInternalServerError {
				fields = append(fields, zap.String("error", lastErr.Err.Error()))
			}
		}

		if ce := FromContext(c.Request.Context()).Check(entry.level(), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

type requestEntry struct {
	route     string
	status    int
	elapsed   time.Duration
	slow      bool
	errorType string
	errorCode string
}

func (e requestEntry) level() zapcore.Level {
	switch {
	case e.route == "/metrics" || e.route == "/health":
		return zapcore.DebugLevel
	case e.status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case e.status == http.StatusTooManyRequests, e.slow:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// requestIDFor reuses an inbound X-Request-Id or mints one, and echoes it on
// the response.
func requestIDFor(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(requestIDHeader, requestID)
	return requestID
}

func routeOf(c *gin.Context) string {
	if route := strings.TrimSpace(c.FullPath()); route != "" {
		return route
	}
	return "unknown"
}
