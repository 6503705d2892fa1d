package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/observability"
	obsmetrics "github.com/smallbiznis/hotelops/internal/observability/metrics"
	"github.com/smallbiznis/hotelops/internal/ratelimit"
	"github.com/smallbiznis/hotelops/internal/ratelimit/ratelimittest"
	"go.uber.org/zap"
)

const testClientKey = "report:inflight:192.0.2.1"

func newLimitedTestServer(t *testing.T, svc *fakeReportService, fake *ratelimittest.Redis) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	httpMetrics := obsmetrics.NewHTTPMetricsWithRegistry(reg, reg, obsmetrics.Config{})
	engine := NewEngine(observability.Config{}, httpMetrics)
	NewServer(ServerParams{
		Gin:       engine,
		Cfg:       config.Config{},
		ReportSvc: svc,
		Log:       zap.NewNop(),
		Limiter:   ratelimit.NewReportLimiterWithClient(fake, 2, 5, 30*time.Second),
	})
	return engine
}

func serveReport(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.RemoteAddr = "192.0.2.1:40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErrorType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.Error.Type
}

func TestReportRateLimitAdmitsAndReleasesSlot(t *testing.T) {
	svc := &fakeReportService{result: sampleResult()}
	fake := ratelimittest.New()
	fake.SetBucket(true, 3.2)
	r := newLimitedTestServer(t, svc, fake)

	w := serveReport(r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "3" {
		t.Fatalf("expected remaining header 3, got %q", got)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one report run, got %d", svc.calls)
	}
	if _, held := fake.Held(testClientKey); held {
		t.Fatalf("expected in-flight slot to be released after the report")
	}
}

func TestReportRateLimitDeniesExhaustedBucket(t *testing.T) {
	svc := &fakeReportService{result: sampleResult()}
	fake := ratelimittest.New()
	fake.SetBucket(false, 0.25)
	r := newLimitedTestServer(t, svc, fake)

	w := serveReport(r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeErrorType(t, w); got != "rate_limited" {
		t.Fatalf("expected rate_limited, got %q", got)
	}
	if got := w.Header().Get("X-Rate-Limited-Reason"); got != rateLimitReasonClientRate {
		t.Fatalf("expected reason %q, got %q", rateLimitReasonClientRate, got)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining header 0, got %q", got)
	}
	if svc.calls != 0 {
		t.Fatalf("denied request must not run the report")
	}
	if _, held := fake.Held(testClientKey); held {
		t.Fatalf("denied request must not take the in-flight slot")
	}
}

func TestReportRateLimitDeniesSecondInFlightReport(t *testing.T) {
	svc := &fakeReportService{result: sampleResult()}
	fake := ratelimittest.New()
	fake.Hold(testClientKey, "running-report")
	r := newLimitedTestServer(t, svc, fake)

	w := serveReport(r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Rate-Limited-Reason"); got != rateLimitReasonReportInFlight {
		t.Fatalf("expected reason %q, got %q", rateLimitReasonReportInFlight, got)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}
	if svc.calls != 0 {
		t.Fatalf("second in-flight request must not run the report")
	}
	if token, _ := fake.Held(testClientKey); token != "running-report" {
		t.Fatalf("running report lost its slot, holder now %q", token)
	}
}

func TestReportRateLimitRedisFailureIsUnavailable(t *testing.T) {
	svc := &fakeReportService{result: sampleResult()}
	fake := ratelimittest.New()
	fake.Fail(errors.New("dial tcp: connection refused"))
	r := newLimitedTestServer(t, svc, fake)

	w := serveReport(r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeErrorType(t, w); got != "service_unavailable" {
		t.Fatalf("expected service_unavailable, got %q", got)
	}
	if svc.calls != 0 {
		t.Fatalf("report must not run when the limiter cannot decide")
	}
}
