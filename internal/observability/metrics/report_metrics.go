package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/hotelops/pkg/db"
	"gorm.io/gorm"
)

const (
	ReportOutcomeSuccess = "success"
	ReportOutcomeFailure = "failure"
)

const (
	ReportStageLoad  = "load"
	ReportStageBuild = "build"
)

const (
	ReportFailureReasonDeadlineExceeded   = "deadline_exceeded"
	ReportFailureReasonConnection         = "connection"
	ReportFailureReasonQueryCanceled      = "query_canceled"
	ReportFailureReasonInsufficientAccess = "insufficient_privilege"
	ReportFailureReasonUndefinedTable     = "undefined_table"
	ReportFailureReasonDB                 = "db"
	ReportFailureReasonUnknown            = "unknown"
)

// ReportMetrics captures report pipeline health for dashboards and alerting.
type ReportMetrics struct {
	runs           *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	failures       *prometheus.CounterVec
	recordsSkipped *prometheus.CounterVec
	danglingRefs   *prometheus.CounterVec
	snapshotSize   *prometheus.GaugeVec
}

var (
	reportMetricsOnce sync.Once
	reportMetrics     *ReportMetrics
)

// Report returns the singleton report metrics registry.
func Report() *ReportMetrics {
	return ReportWithConfig(Config{})
}

// ReportWithConfig returns the singleton report metrics registry using config labels.
func ReportWithConfig(cfg Config) *ReportMetrics {
	reportMetricsOnce.Do(func() {
		reportMetrics = newReportMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reportMetrics
}

// NewReportMetrics registers report metrics on the given registerer.
func NewReportMetrics(registerer prometheus.Registerer, cfg Config) *ReportMetrics {
	return newReportMetrics(registerer, cfg)
}

func newReportMetrics(registerer prometheus.Registerer, cfg Config) *ReportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "hotelops"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hotelops_report_runs_total",
		Help:        "Report pipeline runs by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "hotelops_report_stage_duration_seconds",
		Help:        "Report pipeline latency per stage.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"stage"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hotelops_report_failures_total",
		Help:        "Aborted report runs by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	recordsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hotelops_report_records_skipped_total",
		Help:        "Malformed source records skipped while loading a snapshot.",
		ConstLabels: constLabels,
	}, []string{"entity"})
	danglingRefs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hotelops_report_dangling_references_total",
		Help:        "Bookings whose user or room reference did not resolve.",
		ConstLabels: constLabels,
	}, []string{"side"})
	snapshotSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "hotelops_report_snapshot_records",
		Help:        "Records accepted into the most recent report snapshot.",
		ConstLabels: constLabels,
	}, []string{"entity"})

	registerer.MustRegister(
		runs,
		stageDuration,
		failures,
		recordsSkipped,
		danglingRefs,
		snapshotSize,
	)

	return &ReportMetrics{
		runs:           runs,
		stageDuration:  stageDuration,
		failures:       failures,
		recordsSkipped: recordsSkipped,
		danglingRefs:   danglingRefs,
		snapshotSize:   snapshotSize,
	}
}

// IncRun increments the run counter for an outcome.
func (m *ReportMetrics) IncRun(outcome string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// ObserveStage records stage latency in seconds.
func (m *ReportMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncFailure classifies and counts an aborted run.
func (m *ReportMetrics) IncFailure(err error) {
	if m == nil || err == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(ClassifyReportFailure(err)).Inc()
}

// AddSkipped increments the skipped record counter for an entity by count.
func (m *ReportMetrics) AddSkipped(entity string, count int) {
	if m == nil || count <= 0 || m.recordsSkipped == nil {
		return
	}
	m.recordsSkipped.WithLabelValues(entity).Add(float64(count))
}

// AddDangling increments the dangling reference counter for a side by count.
func (m *ReportMetrics) AddDangling(side string, count int) {
	if m == nil || count <= 0 || m.danglingRefs == nil {
		return
	}
	m.danglingRefs.WithLabelValues(side).Add(float64(count))
}

// SetSnapshotSize records how many records of an entity made it into the snapshot.
func (m *ReportMetrics) SetSnapshotSize(entity string, count int) {
	if m == nil || m.snapshotSize == nil {
		return
	}
	m.snapshotSize.WithLabelValues(entity).Set(float64(count))
}

// ClassifyReportFailure maps load errors to low-cardinality reasons.
func ClassifyReportFailure(err error) string {
	if err == nil {
		return ReportFailureReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReportFailureReasonDeadlineExceeded
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case db.IsConnectionErr(pgErr):
			return ReportFailureReasonConnection
		case pgErr.Code == "57014":
			return ReportFailureReasonQueryCanceled
		case pgErr.Code == "42501":
			return ReportFailureReasonInsufficientAccess
		case pgErr.Code == "42P01":
			return ReportFailureReasonUndefinedTable
		default:
			return ReportFailureReasonDB
		}
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return ReportFailureReasonConnection
	}
	if isDBError(err) {
		return ReportFailureReasonDB
	}
	return ReportFailureReasonUnknown
}

func isDBError(err error) bool {
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrNotImplemented)
}
