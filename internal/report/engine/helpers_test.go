package engine

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/report/domain"
	"gorm.io/datatypes"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testUser(id int64, name string, created time.Time) domain.User {
	return domain.User{ID: snowflake.ID(id), Name: name, Email: name + "@example.com", CreatedAt: created}
}

func testRoom(id int64, name, roomType, price string, ratings ...float64) domain.Room {
	reviews := make([]domain.Review, 0, len(ratings))
	for _, rating := range ratings {
		reviews = append(reviews, domain.Review{Rating: rating})
	}
	return domain.Room{
		ID:      snowflake.ID(id),
		Name:    name,
		Slug:    name,
		Type:    roomType,
		Price:   money(price),
		Reviews: datatypes.NewJSONSlice(reviews),
	}
}

func testBooking(id, userID, roomID int64, checkin, checkout time.Time, price string) domain.Booking {
	return domain.Booking{
		ID:              snowflake.ID(id),
		UserID:          snowflake.ID(userID),
		RoomID:          snowflake.ID(roomID),
		CheckinDate:     checkin,
		CheckoutDate:    checkout,
		TotalPrice:      money(price),
		DiscountPercent: decimal.Zero,
		CreatedAt:       checkin.AddDate(0, 0, -10),
	}
}

func joinedFor(raw domain.RawSnapshot) []domain.JoinedBooking {
	snapshot, _ := Load(raw)
	return Join(snapshot, config.DefaultReportConfig())
}
