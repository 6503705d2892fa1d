package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RawSnapshot is the unvalidated content of the three source collections.
type RawSnapshot struct {
	Users    []User
	Rooms    []Room
	Bookings []Booking
}

// Snapshot holds validated, normalized records. It is never mutated after Load.
type Snapshot struct {
	Users    []User
	Rooms    []Room
	Bookings []Booking
}

// JoinedBooking is a booking with its guest and room resolved.
// Unresolved sides carry placeholder labels and a false Resolved flag.
type JoinedBooking struct {
	Booking

	UserName     string
	UserResolved bool

	RoomName     string
	RoomType     string
	RoomPrice    decimal.Decimal
	RoomResolved bool
}

type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type CountPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type ScalarValue struct {
	Value float64 `json:"value"`
}

type ListRow struct {
	BookingID    snowflake.ID `json:"bookingId"`
	UserID       snowflake.ID `json:"userId"`
	UserName     string       `json:"userName"`
	RoomName     string       `json:"roomName"`
	CheckinDate  string       `json:"checkinDate"`
	CheckoutDate string       `json:"checkoutDate"`
	NumberOfDays int          `json:"numberOfDays"`
	TotalPrice   float64      `json:"totalPrice"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Report is the consolidated analytics payload. Sequences are never nil;
// TopPerformingRoom and AverageReviewsPerRoom are omitted when undefined.
type Report struct {
	TotalUsers          int     `json:"totalUsers"`
	TotalBookings       int     `json:"totalBookings"`
	TotalRevenue        float64 `json:"totalRevenue"`
	AverageBookingValue float64 `json:"averageBookingValue"`

	BookingsPerMonth      []SeriesPoint `json:"bookingsPerMonth"`
	RevenuePerMonth       []SeriesPoint `json:"revenuePerMonth"`
	NewUsersPerMonth      []SeriesPoint `json:"newUsersPerMonth"`
	CumulativeUserGrowth  []SeriesPoint `json:"cumulativeUserGrowth"`
	OccupancyRatePerMonth []SeriesPoint `json:"occupancyRatePerMonth"`

	BookingsByRoomType            []SeriesPoint `json:"bookingsByRoomType"`
	RevenueByRoomType             []SeriesPoint `json:"revenueByRoomType"`
	AverageLengthOfStayByRoomType []SeriesPoint `json:"averageLengthOfStayByRoomType"`
	AverageReviewsByRoomType      []SeriesPoint `json:"averageReviewsByRoomType"`

	BookingLeadTimeDistribution []CountPoint `json:"bookingLeadTimeDistribution"`

	TopPerformingRoom     *SeriesPoint `json:"topPerformingRoom,omitempty"`
	AverageReviewsPerRoom *ScalarValue `json:"averageReviewsPerRoom,omitempty"`

	UpcomingCheckouts []ListRow `json:"upcomingCheckouts"`
	RecentArrivals    []ListRow `json:"recentArrivals"`
	HighValueBookings []ListRow `json:"highValueBookings"`
	CurrentGuests     []ListRow `json:"currentGuests"`
	LongStayGuests    []ListRow `json:"longStayGuests"`
	RecentBookings    []ListRow `json:"recentBookings"`
}

const (
	EntityUser    = "user"
	EntityRoom    = "room"
	EntityReview  = "review"
	EntityBooking = "booking"
)

// MaxDiagnosticIssues caps the issue list; counters keep counting past it.
const MaxDiagnosticIssues = 100

type Issue struct {
	Entity string       `json:"entity"`
	ID     snowflake.ID `json:"id"`
	Reason string       `json:"reason"`
}

// Diagnostics reports records the pipeline skipped or could not resolve.
type Diagnostics struct {
	SkippedUsers     int     `json:"skippedUsers"`
	SkippedRooms     int     `json:"skippedRooms"`
	SkippedReviews   int     `json:"skippedReviews"`
	SkippedBookings  int     `json:"skippedBookings"`
	DanglingUserRefs int     `json:"danglingUserRefs"`
	DanglingRoomRefs int     `json:"danglingRoomRefs"`
	Issues           []Issue `json:"issues"`
	IssuesTruncated  bool    `json:"issuesTruncated"`
}

func (d Diagnostics) Skipped() int {
	return d.SkippedUsers + d.SkippedRooms + d.SkippedReviews + d.SkippedBookings
}

func (d *Diagnostics) AddIssue(entity string, id snowflake.ID, reason string) {
	if len(d.Issues) >= MaxDiagnosticIssues {
		d.IssuesTruncated = true
		return
	}
	d.Issues = append(d.Issues, Issue{Entity: entity, ID: id, Reason: reason})
}
