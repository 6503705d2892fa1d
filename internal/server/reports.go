package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/hotelops/internal/observability/context"
	reportdomain "github.com/smallbiznis/hotelops/internal/report/domain"
)

const (
	HeaderReportRunID       = "X-Report-Run-Id"
	HeaderReportGeneratedAt = "X-Report-Generated-At"
	HeaderReportSkipped     = "X-Report-Skipped-Records"
)

type reportDiagnosticsResponse struct {
	RunID       string                   `json:"runId"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Now         time.Time                `json:"now"`
	Diagnostics reportdomain.Diagnostics `json:"diagnostics"`
}

// GetReport computes the report from the current data. The optional
// `now` query parameter replays the window lists at another instant.
func (s *Server) GetReport(c *gin.Context) {
	result, ok := s.generateReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result.Report)
}

// GetReportDiagnostics recomputes the report and returns only what the
// loader skipped and which references dangled.
func (s *Server) GetReportDiagnostics(c *gin.Context) {
	result, ok := s.generateReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reportDiagnosticsResponse{
		RunID:       result.RunID,
		GeneratedAt: result.GeneratedAt,
		Now:         result.Now,
		Diagnostics: result.Diagnostics,
	})
}

func (s *Server) generateReport(c *gin.Context) (reportdomain.Result, bool) {
	now, err := parseOptionalTime(c.Query("now"))
	if err != nil {
		AbortWithError(c, newValidationError("now", "invalid_now", "now must be RFC3339 or YYYY-MM-DD"))
		return reportdomain.Result{}, false
	}

	ctx, runID := obscontext.EnsureRunID(c.Request.Context())
	c.Request = c.Request.WithContext(ctx)
	c.Header(HeaderReportRunID, runID)

	result, err := s.reportSvc.Generate(ctx, reportdomain.Request{Now: now})
	if err != nil {
		AbortWithError(c, err)
		return reportdomain.Result{}, false
	}

	c.Header(HeaderReportGeneratedAt, result.GeneratedAt.UTC().Format(time.RFC3339))
	c.Header(HeaderReportSkipped, strconv.Itoa(result.Diagnostics.Skipped()))
	if s.obsMetrics != nil {
		s.obsMetrics.RecordReportGenerated(ctx, normalizeRateLimitEndpoint(c))
	}
	return result, true
}
