package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Email        string       `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"column:password_hash" json:"-"`
	IsAdmin      bool         `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (User) TableName() string { return "users" }

// Review is embedded in its room as a JSON array.
type Review struct {
	UserID    snowflake.ID `json:"user_id,omitempty"`
	Rating    float64      `json:"rating"`
	Comment   string       `json:"comment,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type Room struct {
	ID        snowflake.ID                `gorm:"primaryKey" json:"id"`
	Name      string                      `gorm:"not null" json:"name"`
	Slug      string                      `gorm:"not null;uniqueIndex" json:"slug"`
	Type      string                      `gorm:"column:type" json:"type"`
	Price     decimal.Decimal             `gorm:"type:numeric(12,2);not null" json:"price"`
	Reviews   datatypes.JSONSlice[Review] `gorm:"column:reviews" json:"reviews"`
	CreatedAt time.Time                   `gorm:"not null" json:"created_at"`
}

func (Room) TableName() string { return "rooms" }

// Booking dates are calendar dates; the engine normalizes them to UTC midnight.
type Booking struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID    `gorm:"not null;index" json:"user_id"`
	RoomID          snowflake.ID    `gorm:"not null;index" json:"room_id"`
	CheckinDate     time.Time       `gorm:"column:checkin_date;not null" json:"checkin_date"`
	CheckoutDate    time.Time       `gorm:"column:checkout_date;not null" json:"checkout_date"`
	NumberOfDays    int             `gorm:"column:number_of_days;not null" json:"number_of_days"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0" json:"discount_percent"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
}

func (Booking) TableName() string { return "bookings" }
