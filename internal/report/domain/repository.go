package domain

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks

// Repository reads the source collections. Report generation never writes;
// the insert methods exist for seeding.
type Repository interface {
	ListUsers(ctx context.Context, db *gorm.DB) ([]User, error)
	ListRooms(ctx context.Context, db *gorm.DB) ([]Room, error)
	ListBookings(ctx context.Context, db *gorm.DB) ([]Booking, error)

	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	UpdateUserCredentials(ctx context.Context, db *gorm.DB, user *User) error
	InsertRoom(ctx context.Context, db *gorm.DB, room *Room) error
	InsertBooking(ctx context.Context, db *gorm.DB, booking *Booking) error
}
