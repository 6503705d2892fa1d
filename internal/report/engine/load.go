package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hotelops/internal/report/domain"
	"gorm.io/datatypes"
)

var (
	errMissingID         = fmt.Errorf("%w: missing id", domain.ErrMalformedRecord)
	errDuplicateID       = fmt.Errorf("%w: duplicate id", domain.ErrMalformedRecord)
	errMissingCreatedAt  = fmt.Errorf("%w: missing creation timestamp", domain.ErrMalformedRecord)
	errNegativePrice     = fmt.Errorf("%w: negative price", domain.ErrMalformedRecord)
	errInvalidRating     = fmt.Errorf("%w: rating is not a non-negative number", domain.ErrMalformedRecord)
	errMissingReference  = fmt.Errorf("%w: missing user or room reference", domain.ErrMalformedRecord)
	errMissingDates      = fmt.Errorf("%w: missing check-in or check-out date", domain.ErrMalformedRecord)
	errCheckoutNotAfter  = fmt.Errorf("%w: checkout not after checkin", domain.ErrMalformedRecord)
	errDiscountOutOfSpan = fmt.Errorf("%w: discount outside [0, 100]", domain.ErrMalformedRecord)
)

var hundred = decimal.NewFromInt(100)

// Load validates and normalizes the raw collections. Malformed records are
// skipped and counted; input order is preserved for everything that is kept.
// When an id repeats, one valid record survives: the latest createdAt, then
// the smaller JSON encoding. The others count as duplicates, so the outcome
// does not depend on input order.
func Load(raw domain.RawSnapshot) (domain.Snapshot, domain.Diagnostics) {
	var diag domain.Diagnostics

	snapshot := domain.Snapshot{
		Users:    make([]domain.User, 0, len(raw.Users)),
		Rooms:    make([]domain.Room, 0, len(raw.Rooms)),
		Bookings: make([]domain.Booking, 0, len(raw.Bookings)),
	}

	users := make([]domain.User, len(raw.Users))
	userErrs := make([]error, len(raw.Users))
	for i, user := range raw.Users {
		user.CreatedAt = user.CreatedAt.UTC()
		users[i], userErrs[i] = user, validateUser(user)
	}
	keepUser := keepers(users, userErrs,
		func(u domain.User) snowflake.ID { return u.ID },
		func(u domain.User) time.Time { return u.CreatedAt },
	)
	for i, user := range users {
		if err := skipReason(i, user.ID, userErrs, keepUser); err != nil {
			diag.SkippedUsers++
			diag.AddIssue(domain.EntityUser, user.ID, reason(err))
			continue
		}
		snapshot.Users = append(snapshot.Users, user)
	}

	rooms := make([]domain.Room, len(raw.Rooms))
	roomErrs := make([]error, len(raw.Rooms))
	droppedReviews := make([]int, len(raw.Rooms))
	for i, room := range raw.Rooms {
		rooms[i], droppedReviews[i] = normalizeRoom(room)
		roomErrs[i] = validateRoom(room)
	}
	keepRoom := keepers(rooms, roomErrs,
		func(r domain.Room) snowflake.ID { return r.ID },
		func(r domain.Room) time.Time { return r.CreatedAt },
	)
	for i, room := range rooms {
		if err := skipReason(i, room.ID, roomErrs, keepRoom); err != nil {
			diag.SkippedRooms++
			diag.AddIssue(domain.EntityRoom, room.ID, reason(err))
			continue
		}
		for range droppedReviews[i] {
			diag.SkippedReviews++
			diag.AddIssue(domain.EntityReview, room.ID, reason(errInvalidRating))
		}
		snapshot.Rooms = append(snapshot.Rooms, room)
	}

	bookings := make([]domain.Booking, len(raw.Bookings))
	bookingErrs := make([]error, len(raw.Bookings))
	for i, booking := range raw.Bookings {
		normalized, err := normalizeBooking(booking)
		if err != nil {
			normalized = booking
		}
		bookings[i], bookingErrs[i] = normalized, err
	}
	keepBooking := keepers(bookings, bookingErrs,
		func(b domain.Booking) snowflake.ID { return b.ID },
		func(b domain.Booking) time.Time { return b.CreatedAt },
	)
	for i, booking := range bookings {
		if err := skipReason(i, booking.ID, bookingErrs, keepBooking); err != nil {
			diag.SkippedBookings++
			diag.AddIssue(domain.EntityBooking, booking.ID, reason(err))
			continue
		}
		snapshot.Bookings = append(snapshot.Bookings, booking)
	}

	return snapshot, diag
}

// keepers returns, per id, the index of the valid record that survives.
func keepers[T any](records []T, errs []error, id func(T) snowflake.ID, created func(T) time.Time) map[snowflake.ID]int {
	kept := make(map[snowflake.ID]int, len(records))
	encoded := make(map[int][]byte)
	encode := func(i int) []byte {
		if b, ok := encoded[i]; ok {
			return b
		}
		b, _ := json.Marshal(records[i])
		encoded[i] = b
		return b
	}

	for i, rec := range records {
		if errs[i] != nil {
			continue
		}
		cur, seen := kept[id(rec)]
		if !seen {
			kept[id(rec)] = i
			continue
		}
		switch c := created(rec).Compare(created(records[cur])); {
		case c > 0:
			kept[id(rec)] = i
		case c == 0 && bytes.Compare(encode(i), encode(cur)) < 0:
			kept[id(rec)] = i
		}
	}
	return kept
}

func skipReason(i int, id snowflake.ID, errs []error, kept map[snowflake.ID]int) error {
	if errs[i] != nil {
		return errs[i]
	}
	if kept[id] != i {
		return errDuplicateID
	}
	return nil
}

// normalizeRoom drops reviews whose rating is unusable and trims the type.
func normalizeRoom(room domain.Room) (domain.Room, int) {
	reviews := make([]domain.Review, 0, len(room.Reviews))
	for _, review := range room.Reviews {
		if validRating(review.Rating) {
			reviews = append(reviews, review)
		}
	}
	dropped := len(room.Reviews) - len(reviews)
	room.Reviews = datatypes.NewJSONSlice(reviews)
	room.Type = strings.TrimSpace(room.Type)
	return room, dropped
}

func validateUser(user domain.User) error {
	if user.ID == 0 {
		return errMissingID
	}
	if user.CreatedAt.IsZero() {
		return errMissingCreatedAt
	}
	return nil
}

func validateRoom(room domain.Room) error {
	if room.ID == 0 {
		return errMissingID
	}
	if room.Price.IsNegative() {
		return errNegativePrice
	}
	return nil
}

func validRating(rating float64) bool {
	return !math.IsNaN(rating) && !math.IsInf(rating, 0) && rating >= 0
}

func normalizeBooking(booking domain.Booking) (domain.Booking, error) {
	if booking.ID == 0 {
		return domain.Booking{}, errMissingID
	}
	if booking.UserID == 0 || booking.RoomID == 0 {
		return domain.Booking{}, errMissingReference
	}
	if booking.CheckinDate.IsZero() || booking.CheckoutDate.IsZero() {
		return domain.Booking{}, errMissingDates
	}

	checkin := calendarDate(booking.CheckinDate)
	checkout := calendarDate(booking.CheckoutDate)
	if !checkout.After(checkin) {
		return domain.Booking{}, errCheckoutNotAfter
	}
	if booking.TotalPrice.IsNegative() {
		return domain.Booking{}, errNegativePrice
	}
	if booking.DiscountPercent.IsNegative() || booking.DiscountPercent.GreaterThan(hundred) {
		return domain.Booking{}, errDiscountOutOfSpan
	}
	if booking.CreatedAt.IsZero() {
		return domain.Booking{}, errMissingCreatedAt
	}

	booking.CheckinDate = checkin
	booking.CheckoutDate = checkout
	booking.NumberOfDays = daysBetween(checkin, checkout)
	booking.CreatedAt = booking.CreatedAt.UTC()
	return booking, nil
}

// calendarDate keeps the calendar date as written in t's own location.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

func reason(err error) string {
	msg := err.Error()
	prefix := domain.ErrMalformedRecord.Error() + ": "
	if errors.Is(err, domain.ErrMalformedRecord) && strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
