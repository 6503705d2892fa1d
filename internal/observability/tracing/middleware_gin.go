package tracing

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/hotelops/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Response headers set by the report handlers; copied onto the server span.
const (
	runIDHeader   = "X-Report-Run-Id"
	skippedHeader = "X-Report-Skipped-Records"
)

// GinMiddleware opens a server span per request, continuing any inbound
// trace context.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("hotelops/http")
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := strings.ToUpper(c.Request.Method)

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
		}

		ctx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.SetAttributes(reportAttributes(c.Writer.Header())...)

		if status < http.StatusInternalServerError {
			return
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			if safeErr := SafeError(lastErr.Err); safeErr != nil {
				span.RecordError(safeErr)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func reportAttributes(h http.Header) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if runID := h.Get(runIDHeader); runID != "" {
		attrs = append(attrs, attribute.String("report.run_id", runID))
	}
	if skipped, err := strconv.Atoi(h.Get(skippedHeader)); err == nil {
		attrs = append(attrs, attribute.Int("report.skipped_records", skipped))
	}
	return SafeAttributes(attrs...)
}
