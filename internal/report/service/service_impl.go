package service

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/hotelops/internal/clock"
	"github.com/smallbiznis/hotelops/internal/config"
	obscontext "github.com/smallbiznis/hotelops/internal/observability/context"
	"github.com/smallbiznis/hotelops/internal/observability/logger"
	"github.com/smallbiznis/hotelops/internal/observability/metrics"
	"github.com/smallbiznis/hotelops/internal/observability/tracing"
	reportdomain "github.com/smallbiznis/hotelops/internal/report/domain"
	"github.com/smallbiznis/hotelops/internal/report/engine"
	"github.com/smallbiznis/hotelops/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Repo          reportdomain.Repository
	Config        *config.ReportConfigHolder
	Metrics       *metrics.Metrics       `optional:"true"`
	ReportMetrics *metrics.ReportMetrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	repo          reportdomain.Repository
	config        *config.ReportConfigHolder
	metrics       *metrics.Metrics
	reportMetrics *metrics.ReportMetrics
	tracer        trace.Tracer
}

func NewService(p Params) reportdomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("report.service"),
		clock:         p.Clock,
		repo:          p.Repo,
		config:        p.Config,
		metrics:       p.Metrics,
		reportMetrics: p.ReportMetrics,
		tracer:        otel.Tracer("hotelops/report"),
	}
}

func (s *Service) Generate(ctx context.Context, req reportdomain.Request) (reportdomain.Result, error) {
	ctx, runID := obscontext.EnsureRunID(ctx)
	ctx, span := s.tracer.Start(ctx, "report.generate", trace.WithAttributes(attribute.String("report.run_id", runID)))
	defer span.End()

	log := logger.WithContext(ctx, s.log)

	now := s.clock.Now().UTC()
	if req.Now != nil {
		if req.Now.IsZero() {
			return reportdomain.Result{}, reportdomain.ErrInvalidReferenceTime
		}
		now = req.Now.UTC()
	}

	cfg := s.config.Get()

	loadStart := time.Now()
	raw, err := s.load(ctx)
	loadDuration := time.Since(loadStart)
	s.reportMetrics.ObserveStage(metrics.ReportStageLoad, loadDuration)
	s.metrics.RecordStageDuration(ctx, metrics.ReportStageLoad, loadDuration)
	if err != nil {
		s.reportMetrics.IncRun(metrics.ReportOutcomeFailure)
		s.reportMetrics.IncFailure(err)
		s.metrics.RecordReportFailure(ctx, metrics.ClassifyReportFailure(err))
		if safeErr := tracing.SafeError(err); safeErr != nil {
			span.RecordError(safeErr)
		}
		span.SetStatus(codes.Error, "source unavailable")
		log.Error("report.load_failed",
			zap.String("reason", metrics.ClassifyReportFailure(err)),
			zap.String("sqlstate", db.SQLState(err)),
			zap.Error(err),
		)
		return reportdomain.Result{}, err
	}

	buildStart := time.Now()
	report, diag := engine.Run(raw, now, cfg)
	buildDuration := time.Since(buildStart)
	s.reportMetrics.ObserveStage(metrics.ReportStageBuild, buildDuration)
	s.metrics.RecordStageDuration(ctx, metrics.ReportStageBuild, buildDuration)

	s.recordDiagnostics(ctx, raw, diag)
	s.reportMetrics.IncRun(metrics.ReportOutcomeSuccess)

	span.SetAttributes(tracing.SafeAttributes(
		attribute.Int("report.users", report.TotalUsers),
		attribute.Int("report.bookings", report.TotalBookings),
		attribute.Int("report.skipped", diag.Skipped()),
	)...)

	log.Info("report.generated",
		zap.Time("now", now),
		zap.Int("users", report.TotalUsers),
		zap.Int("bookings", report.TotalBookings),
		zap.Int("rooms", len(raw.Rooms)),
		zap.Int("skipped_users", diag.SkippedUsers),
		zap.Int("skipped_rooms", diag.SkippedRooms),
		zap.Int("skipped_reviews", diag.SkippedReviews),
		zap.Int("skipped_bookings", diag.SkippedBookings),
		zap.Int("dangling_user_refs", diag.DanglingUserRefs),
		zap.Int("dangling_room_refs", diag.DanglingRoomRefs),
		zap.Int64("build_ms", buildDuration.Milliseconds()),
	)

	return reportdomain.Result{
		RunID:       runID,
		GeneratedAt: s.clock.Now().UTC(),
		Now:         now,
		Report:      report,
		Diagnostics: diag,
	}, nil
}

// load reads the three collections concurrently. Any failure aborts the run.
func (s *Service) load(ctx context.Context) (reportdomain.RawSnapshot, error) {
	var raw reportdomain.RawSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := s.repo.ListUsers(gctx, s.db)
		if err != nil {
			return fmt.Errorf("%w: list users: %w", reportdomain.ErrSourceUnavailable, err)
		}
		raw.Users = users
		return nil
	})
	g.Go(func() error {
		rooms, err := s.repo.ListRooms(gctx, s.db)
		if err != nil {
			return fmt.Errorf("%w: list rooms: %w", reportdomain.ErrSourceUnavailable, err)
		}
		raw.Rooms = rooms
		return nil
	})
	g.Go(func() error {
		bookings, err := s.repo.ListBookings(gctx, s.db)
		if err != nil {
			return fmt.Errorf("%w: list bookings: %w", reportdomain.ErrSourceUnavailable, err)
		}
		raw.Bookings = bookings
		return nil
	})
	if err := g.Wait(); err != nil {
		return reportdomain.RawSnapshot{}, err
	}
	return raw, nil
}

func (s *Service) recordDiagnostics(ctx context.Context, raw reportdomain.RawSnapshot, diag reportdomain.Diagnostics) {
	skipped := map[string]int{
		reportdomain.EntityUser:    diag.SkippedUsers,
		reportdomain.EntityRoom:    diag.SkippedRooms,
		reportdomain.EntityReview:  diag.SkippedReviews,
		reportdomain.EntityBooking: diag.SkippedBookings,
	}
	for entity, count := range skipped {
		s.reportMetrics.AddSkipped(entity, count)
		s.metrics.RecordSkippedRecords(ctx, entity, count)
	}
	s.reportMetrics.AddDangling(reportdomain.EntityUser, diag.DanglingUserRefs)
	s.reportMetrics.AddDangling(reportdomain.EntityRoom, diag.DanglingRoomRefs)

	s.reportMetrics.SetSnapshotSize(reportdomain.EntityUser, len(raw.Users)-diag.SkippedUsers)
	s.reportMetrics.SetSnapshotSize(reportdomain.EntityRoom, len(raw.Rooms)-diag.SkippedRooms)
	s.reportMetrics.SetSnapshotSize(reportdomain.EntityBooking, len(raw.Bookings)-diag.SkippedBookings)
}
