package engine

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/report/domain"
)

type TotalsView struct {
	TotalUsers          int
	TotalBookings       int
	TotalRevenue        decimal.Decimal
	AverageBookingValue decimal.Decimal
}

// Totals counts every joined booking, dangling or not.
func Totals(users []domain.User, joined []domain.JoinedBooking) TotalsView {
	revenue := decimal.Zero
	for _, jb := range joined {
		revenue = revenue.Add(jb.TotalPrice)
	}
	return TotalsView{
		TotalUsers:          len(users),
		TotalBookings:       len(joined),
		TotalRevenue:        revenue,
		AverageBookingValue: safeDiv(revenue, len(joined)),
	}
}

type MonthlyView struct {
	BookingsPerMonth []domain.SeriesPoint
	RevenuePerMonth  []domain.SeriesPoint
	NewUsersPerMonth []domain.SeriesPoint
}

// MonthlySeries buckets bookings by check-in month and users by creation
// month. Both axes are contiguous and zero-filled.
func MonthlySeries(users []domain.User, joined []domain.JoinedBooking) MonthlyView {
	var bookingSpan monthSpan
	bookingCounts := map[month]int{}
	revenue := map[month]decimal.Decimal{}
	for _, jb := range joined {
		m := monthOf(jb.CheckinDate)
		bookingSpan.observe(m)
		bookingCounts[m]++
		revenue[m] = revenue[m].Add(jb.TotalPrice)
	}

	var userSpan monthSpan
	userCounts := map[month]int{}
	for _, user := range users {
		m := monthOf(user.CreatedAt)
		userSpan.observe(m)
		userCounts[m]++
	}

	view := MonthlyView{
		BookingsPerMonth: []domain.SeriesPoint{},
		RevenuePerMonth:  []domain.SeriesPoint{},
		NewUsersPerMonth: []domain.SeriesPoint{},
	}
	for _, m := range bookingSpan.months() {
		view.BookingsPerMonth = append(view.BookingsPerMonth, domain.SeriesPoint{Label: m.label(), Value: float64(bookingCounts[m])})
		view.RevenuePerMonth = append(view.RevenuePerMonth, domain.SeriesPoint{Label: m.label(), Value: revenue[m].InexactFloat64()})
	}
	for _, m := range userSpan.months() {
		view.NewUsersPerMonth = append(view.NewUsersPerMonth, domain.SeriesPoint{Label: m.label(), Value: float64(userCounts[m])})
	}
	return view
}

// CumulativeGrowth is the running sum of a monthly series on the same axis.
func CumulativeGrowth(newUsers []domain.SeriesPoint) []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, 0, len(newUsers))
	var total float64
	for _, point := range newUsers {
		total += point.Value
		out = append(out, domain.SeriesPoint{Label: point.Label, Value: total})
	}
	return out
}

type RoomTypeView struct {
	BookingsByRoomType            []domain.SeriesPoint
	RevenueByRoomType             []domain.SeriesPoint
	AverageLengthOfStayByRoomType []domain.SeriesPoint
}

type roomTypeTotals struct {
	bookings int
	revenue  decimal.Decimal
	nights   int
}

// RoomTypeBreakdowns groups bookings with a resolved room by room type.
// Types without bookings are omitted; labels are sorted ascending.
func RoomTypeBreakdowns(joined []domain.JoinedBooking) RoomTypeView {
	groups := map[string]*roomTypeTotals{}
	for _, jb := range joined {
		if !jb.RoomResolved {
			continue
		}
		group, ok := groups[jb.RoomType]
		if !ok {
			group = &roomTypeTotals{revenue: decimal.Zero}
			groups[jb.RoomType] = group
		}
		group.bookings++
		group.revenue = group.revenue.Add(jb.TotalPrice)
		group.nights += jb.NumberOfDays
	}

	view := RoomTypeView{
		BookingsByRoomType:            []domain.SeriesPoint{},
		RevenueByRoomType:             []domain.SeriesPoint{},
		AverageLengthOfStayByRoomType: []domain.SeriesPoint{},
	}
	for _, label := range sortedKeys(groups) {
		group := groups[label]
		view.BookingsByRoomType = append(view.BookingsByRoomType, domain.SeriesPoint{Label: label, Value: float64(group.bookings)})
		view.RevenueByRoomType = append(view.RevenueByRoomType, domain.SeriesPoint{Label: label, Value: group.revenue.InexactFloat64()})
		view.AverageLengthOfStayByRoomType = append(view.AverageLengthOfStayByRoomType, domain.SeriesPoint{
			Label: label,
			Value: safeDiv(decimal.NewFromInt(int64(group.nights)), group.bookings).InexactFloat64(),
		})
	}
	return view
}

// AverageReviewsByRoomType averages the mean rating of each room per type.
// Rooms without reviews contribute cfg.MissingReviewRating.
func AverageReviewsByRoomType(rooms []domain.Room, cfg config.ReportConfig) []domain.SeriesPoint {
	type acc struct {
		sum   decimal.Decimal
		rooms int
	}
	groups := map[string]*acc{}
	for _, room := range rooms {
		label := roomTypeLabel(room, cfg)
		group, ok := groups[label]
		if !ok {
			group = &acc{sum: decimal.Zero}
			groups[label] = group
		}
		group.sum = group.sum.Add(roomMeanRating(room, cfg))
		group.rooms++
	}

	out := make([]domain.SeriesPoint, 0, len(groups))
	for _, label := range sortedKeys(groups) {
		group := groups[label]
		out = append(out, domain.SeriesPoint{Label: label, Value: safeDiv(group.sum, group.rooms).InexactFloat64()})
	}
	return out
}

// AverageReviewsPerRoom is the mean of every room's mean rating, or nil
// when there are no rooms.
func AverageReviewsPerRoom(rooms []domain.Room, cfg config.ReportConfig) *domain.ScalarValue {
	if len(rooms) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, room := range rooms {
		sum = sum.Add(roomMeanRating(room, cfg))
	}
	return &domain.ScalarValue{Value: safeDiv(sum, len(rooms)).InexactFloat64()}
}

func roomMeanRating(room domain.Room, cfg config.ReportConfig) decimal.Decimal {
	if len(room.Reviews) == 0 {
		return decimal.NewFromFloat(cfg.MissingReviewRating)
	}
	sum := decimal.Zero
	for _, review := range room.Reviews {
		sum = sum.Add(decimal.NewFromFloat(review.Rating))
	}
	return safeDiv(sum, len(room.Reviews))
}

// LeadTimeDistribution bins the days between booking creation and check-in.
// Empty buckets are omitted; the rest keep bucket order.
func LeadTimeDistribution(joined []domain.JoinedBooking, cfg config.ReportConfig) []domain.CountPoint {
	counts := make([]int, len(cfg.LeadTimeBuckets))
	for _, jb := range joined {
		days := LeadTimeDays(jb.Booking)
		for i, bucket := range cfg.LeadTimeBuckets {
			if bucket.Contains(days) {
				counts[i]++
				break
			}
		}
	}

	out := []domain.CountPoint{}
	for i, bucket := range cfg.LeadTimeBuckets {
		if counts[i] == 0 {
			continue
		}
		out = append(out, domain.CountPoint{Label: bucket.Label, Value: counts[i]})
	}
	return out
}

// LeadTimeDays counts calendar days, not elapsed 24h periods: the creation
// instant is truncated to its UTC day before subtracting, so a booking made
// at 23:00 the evening before check-in has a lead time of 1. Backdated
// bookings clamp to 0.
func LeadTimeDays(booking domain.Booking) int {
	created := booking.CreatedAt.UTC()
	createdDay := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)
	days := daysBetween(createdDay, booking.CheckinDate)
	if days < 0 {
		return 0
	}
	return days
}

// OccupancyPerMonth splits each booked night into the month it falls in and
// divides by the room-nights available that month.
func OccupancyPerMonth(joined []domain.JoinedBooking, roomCount int) []domain.SeriesPoint {
	var span monthSpan
	nights := map[month]int{}
	for _, jb := range joined {
		if !jb.RoomResolved {
			continue
		}
		first := monthOf(jb.CheckinDate)
		last := monthOf(jb.CheckoutDate.AddDate(0, 0, -1))
		span.observe(first)
		span.observe(last)
		for m := first; m <= last; m++ {
			from := maxTime(jb.CheckinDate, m.start())
			to := minTime(jb.CheckoutDate, m.end())
			if to.After(from) {
				nights[m] += daysBetween(from, to)
			}
		}
	}

	out := []domain.SeriesPoint{}
	for _, m := range span.months() {
		out = append(out, domain.SeriesPoint{Label: m.label(), Value: occupancyRate(nights[m], roomCount, m.days())})
	}
	return out
}

func occupancyRate(nights, roomCount, daysInMonth int) float64 {
	if roomCount <= 0 || daysInMonth <= 0 {
		return 0
	}
	capacity := decimal.NewFromInt(int64(roomCount) * int64(daysInMonth))
	rate := decimal.NewFromInt(int64(nights)).Mul(hundred).Div(capacity)
	if rate.GreaterThan(hundred) {
		rate = hundred
	}
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return rate.InexactFloat64()
}

// TopPerformingRoom returns the room with the highest booking revenue, ties
// going to the lowest room id, or nil when no booking resolved to a room.
func TopPerformingRoom(joined []domain.JoinedBooking) *domain.SeriesPoint {
	type acc struct {
		name    string
		revenue decimal.Decimal
	}
	rooms := map[snowflake.ID]*acc{}
	for _, jb := range joined {
		if !jb.RoomResolved {
			continue
		}
		room, ok := rooms[jb.RoomID]
		if !ok {
			room = &acc{name: jb.RoomName, revenue: decimal.Zero}
			rooms[jb.RoomID] = room
		}
		room.revenue = room.revenue.Add(jb.TotalPrice)
	}
	if len(rooms) == 0 {
		return nil
	}

	var bestID snowflake.ID
	var best *acc
	for id, room := range rooms {
		if best == nil ||
			room.revenue.GreaterThan(best.revenue) ||
			(room.revenue.Equal(best.revenue) && id < bestID) {
			bestID, best = id, room
		}
	}
	return &domain.SeriesPoint{Label: best.name, Value: best.revenue.InexactFloat64()}
}

func safeDiv(sum decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count)))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
