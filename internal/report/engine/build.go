// Package engine turns a snapshot of users, rooms and bookings into the
// operations report. Every function is pure: the same snapshot and the same
// reference instant always produce the same report.
package engine

import (
	"time"

	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/report/domain"
	"golang.org/x/sync/errgroup"
)

// Build joins the snapshot and assembles the report.
func Build(snapshot domain.Snapshot, now time.Time, cfg config.ReportConfig) domain.Report {
	return assemble(snapshot, Join(snapshot, cfg), now, cfg)
}

// Run loads, joins and assembles in one pass, returning the diagnostics
// collected along the way.
func Run(raw domain.RawSnapshot, now time.Time, cfg config.ReportConfig) (domain.Report, domain.Diagnostics) {
	snapshot, diag := Load(raw)
	joined := Join(snapshot, cfg)
	RecordDangling(joined, &diag)
	if diag.Issues == nil {
		diag.Issues = []domain.Issue{}
	}
	return assemble(snapshot, joined, now, cfg), diag
}

// assemble fans the aggregators and list builders out over the same joined
// slice. None of them writes to shared memory; each result lands in its own
// variable and is merged after the single Wait.
func assemble(snapshot domain.Snapshot, joined []domain.JoinedBooking, now time.Time, cfg config.ReportConfig) domain.Report {
	now = now.UTC()

	var (
		totals         TotalsView
		monthly        MonthlyView
		cumulative     []domain.SeriesPoint
		occupancy      []domain.SeriesPoint
		byType         RoomTypeView
		reviewsByType  []domain.SeriesPoint
		reviewsPerRoom *domain.ScalarValue
		leadTimes      []domain.CountPoint
		topRoom        *domain.SeriesPoint

		upcoming, arrivals, current, longStay, highValue, recent []domain.ListRow
	)

	var g errgroup.Group
	g.Go(func() error { totals = Totals(snapshot.Users, joined); return nil })
	g.Go(func() error {
		monthly = MonthlySeries(snapshot.Users, joined)
		cumulative = CumulativeGrowth(monthly.NewUsersPerMonth)
		return nil
	})
	g.Go(func() error { occupancy = OccupancyPerMonth(joined, len(snapshot.Rooms)); return nil })
	g.Go(func() error { byType = RoomTypeBreakdowns(joined); return nil })
	g.Go(func() error { reviewsByType = AverageReviewsByRoomType(snapshot.Rooms, cfg); return nil })
	g.Go(func() error { reviewsPerRoom = AverageReviewsPerRoom(snapshot.Rooms, cfg); return nil })
	g.Go(func() error { leadTimes = LeadTimeDistribution(joined, cfg); return nil })
	g.Go(func() error { topRoom = TopPerformingRoom(joined); return nil })

	g.Go(func() error { upcoming = UpcomingCheckouts(joined, now, cfg); return nil })
	g.Go(func() error { arrivals = RecentArrivals(joined, now, cfg); return nil })
	g.Go(func() error { current = CurrentGuests(joined, now, cfg); return nil })
	g.Go(func() error { longStay = LongStayGuests(joined, cfg); return nil })
	g.Go(func() error { highValue = HighValueBookings(joined, cfg); return nil })
	g.Go(func() error { recent = RecentBookings(joined, cfg); return nil })
	_ = g.Wait()

	return domain.Report{
		TotalUsers:          totals.TotalUsers,
		TotalBookings:       totals.TotalBookings,
		TotalRevenue:        totals.TotalRevenue.InexactFloat64(),
		AverageBookingValue: totals.AverageBookingValue.InexactFloat64(),

		BookingsPerMonth:      monthly.BookingsPerMonth,
		RevenuePerMonth:       monthly.RevenuePerMonth,
		NewUsersPerMonth:      monthly.NewUsersPerMonth,
		CumulativeUserGrowth:  cumulative,
		OccupancyRatePerMonth: occupancy,

		BookingsByRoomType:            byType.BookingsByRoomType,
		RevenueByRoomType:             byType.RevenueByRoomType,
		AverageLengthOfStayByRoomType: byType.AverageLengthOfStayByRoomType,
		AverageReviewsByRoomType:      reviewsByType,

		BookingLeadTimeDistribution: leadTimes,

		TopPerformingRoom:     topRoom,
		AverageReviewsPerRoom: reviewsPerRoom,

		UpcomingCheckouts: upcoming,
		RecentArrivals:    arrivals,
		HighValueBookings: highValue,
		CurrentGuests:     current,
		LongStayGuests:    longStay,
		RecentBookings:    recent,
	}
}
