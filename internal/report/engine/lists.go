package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/report/domain"
)

const dateLayout = "2006-01-02"

// UpcomingCheckouts lists bookings checking out within [now, now+window],
// earliest checkout first.
func UpcomingCheckouts(joined []domain.JoinedBooking, now time.Time, cfg config.ReportConfig) []domain.ListRow {
	until := now.AddDate(0, 0, cfg.WindowDays)
	return buildList(joined, cfg.ListLimit,
		func(jb domain.JoinedBooking) bool { return within(jb.CheckoutDate, now, until) },
		func(a, b domain.JoinedBooking) int { return a.CheckoutDate.Compare(b.CheckoutDate) },
	)
}

// RecentArrivals lists bookings that checked in within [now-window, now],
// latest check-in first.
func RecentArrivals(joined []domain.JoinedBooking, now time.Time, cfg config.ReportConfig) []domain.ListRow {
	since := now.AddDate(0, 0, -cfg.WindowDays)
	return buildList(joined, cfg.ListLimit,
		func(jb domain.JoinedBooking) bool { return within(jb.CheckinDate, since, now) },
		func(a, b domain.JoinedBooking) int { return b.CheckinDate.Compare(a.CheckinDate) },
	)
}

// CurrentGuests lists bookings with checkin <= now < checkout.
func CurrentGuests(joined []domain.JoinedBooking, now time.Time, cfg config.ReportConfig) []domain.ListRow {
	return buildList(joined, cfg.ListLimit,
		func(jb domain.JoinedBooking) bool { return !jb.CheckinDate.After(now) && now.Before(jb.CheckoutDate) },
		func(a, b domain.JoinedBooking) int { return b.CheckinDate.Compare(a.CheckinDate) },
	)
}

func LongStayGuests(joined []domain.JoinedBooking, cfg config.ReportConfig) []domain.ListRow {
	return buildList(joined, cfg.ListLimit,
		func(jb domain.JoinedBooking) bool { return jb.NumberOfDays >= cfg.LongStayNights },
		func(a, b domain.JoinedBooking) int { return cmp.Compare(b.NumberOfDays, a.NumberOfDays) },
	)
}

func HighValueBookings(joined []domain.JoinedBooking, cfg config.ReportConfig) []domain.ListRow {
	threshold := decimal.NewFromFloat(cfg.HighValueThreshold)
	return buildList(joined, cfg.ListLimit,
		func(jb domain.JoinedBooking) bool { return jb.TotalPrice.GreaterThanOrEqual(threshold) },
		func(a, b domain.JoinedBooking) int { return b.TotalPrice.Cmp(a.TotalPrice) },
	)
}

// RecentBookings lists every booking, newest creation first.
func RecentBookings(joined []domain.JoinedBooking, cfg config.ReportConfig) []domain.ListRow {
	return buildList(joined, cfg.ListLimit,
		func(domain.JoinedBooking) bool { return true },
		func(a, b domain.JoinedBooking) int { return b.CreatedAt.Compare(a.CreatedAt) },
	)
}

// buildList filters, sorts with ties broken by booking id ascending, and
// truncates to limit rows, never more than config.MaxListLimit. It never
// modifies joined.
func buildList(
	joined []domain.JoinedBooking,
	limit int,
	keep func(domain.JoinedBooking) bool,
	order func(a, b domain.JoinedBooking) int,
) []domain.ListRow {
	matched := make([]domain.JoinedBooking, 0)
	for _, jb := range joined {
		if keep(jb) {
			matched = append(matched, jb)
		}
	}

	slices.SortFunc(matched, func(a, b domain.JoinedBooking) int {
		if c := order(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	limit = max(0, min(limit, config.MaxListLimit))
	if len(matched) > limit {
		matched = matched[:limit]
	}

	rows := make([]domain.ListRow, 0, len(matched))
	for _, jb := range matched {
		rows = append(rows, toListRow(jb))
	}
	return rows
}

func toListRow(jb domain.JoinedBooking) domain.ListRow {
	return domain.ListRow{
		BookingID:    jb.ID,
		UserID:       jb.UserID,
		UserName:     jb.UserName,
		RoomName:     jb.RoomName,
		CheckinDate:  jb.CheckinDate.Format(dateLayout),
		CheckoutDate: jb.CheckoutDate.Format(dateLayout),
		NumberOfDays: jb.NumberOfDays,
		TotalPrice:   jb.TotalPrice.InexactFloat64(),
		CreatedAt:    jb.CreatedAt.UTC(),
	}
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
