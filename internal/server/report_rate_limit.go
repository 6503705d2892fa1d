package server

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/hotelops/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/hotelops/internal/observability/metrics"
	"github.com/smallbiznis/hotelops/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitReasonClientRate     = "client-rate"
	rateLimitReasonReportInFlight = "report-in-flight"
)

// ReportRateLimit throttles report recomputation per client address and
// admits one in-flight report per client.
func (s *Server) ReportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		clientKey := c.ClientIP()
		ctx := c.Request.Context()

		res, err := s.limiter.Allow(ctx, clientKey)
		if err != nil {
			logger.FromContext(ctx).Warn("report rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			denyReportRateLimit(c, endpoint, rateLimitReasonClientRate, res.RetryAfter, s.obsMetrics)
			return
		}

		lockToken, acquired, err := s.limiter.TryLockClient(ctx, clientKey)
		if err != nil {
			logger.FromContext(ctx).Warn("report concurrency lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !acquired {
			denyReportRateLimit(c, endpoint, rateLimitReasonReportInFlight, time.Second, s.obsMetrics)
			return
		}
		defer func() {
			err := s.limiter.ReleaseClient(context.WithoutCancel(ctx), clientKey, lockToken)
			switch {
			case errors.Is(err, ratelimit.ErrLockLost):
				logger.FromContext(ctx).Warn("report outlived its in-flight slot", zap.String("client", clientKey))
			case err != nil:
				logger.FromContext(ctx).Warn("report concurrency unlock failed", zap.Error(err))
			}
		}()

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyReportRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("report rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
		zap.Duration("retry_after", retryAfter),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
