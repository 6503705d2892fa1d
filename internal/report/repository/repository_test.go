package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hotelops/internal/report/domain"
	"github.com/smallbiznis/hotelops/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestListCollectionsOrderedByID(t *testing.T) {
	db := dbtest.New(t, &domain.User{}, &domain.Room{}, &domain.Booking{})
	repo := Provide()
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertUser(ctx, db, &domain.User{ID: 20, Name: "Grace", Email: "grace@example.com", CreatedAt: created}))
	require.NoError(t, repo.InsertUser(ctx, db, &domain.User{ID: 10, Name: "Ada", Email: "ada@example.com", CreatedAt: created}))

	room := &domain.Room{
		ID:    7,
		Name:  "Ocean Suite",
		Slug:  "ocean-suite",
		Type:  "Suite",
		Price: decimal.RequireFromString("249.50"),
		Reviews: datatypes.NewJSONSlice([]domain.Review{
			{UserID: 10, Rating: 4, Comment: "quiet", CreatedAt: created},
			{UserID: 20, Rating: 5, CreatedAt: created},
		}),
		CreatedAt: created,
	}
	require.NoError(t, repo.InsertRoom(ctx, db, room))

	require.NoError(t, repo.InsertBooking(ctx, db, &domain.Booking{
		ID:              snowflake.ID(30),
		UserID:          10,
		RoomID:          7,
		CheckinDate:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		CheckoutDate:    time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		NumberOfDays:    3,
		TotalPrice:      decimal.RequireFromString("748.50"),
		DiscountPercent: decimal.Zero,
		CreatedAt:       created,
	}))

	users, err := repo.ListUsers(ctx, db)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, snowflake.ID(10), users[0].ID)
	assert.Equal(t, snowflake.ID(20), users[1].ID)

	rooms, err := repo.ListRooms(ctx, db)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Len(t, rooms[0].Reviews, 2)
	assert.Equal(t, 4.0, rooms[0].Reviews[0].Rating)
	assert.True(t, rooms[0].Price.Equal(decimal.RequireFromString("249.5")))

	bookings, err := repo.ListBookings(ctx, db)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.True(t, bookings[0].TotalPrice.Equal(decimal.RequireFromString("748.5")))
	assert.Equal(t, 3, bookings[0].NumberOfDays)
}

func TestFindUserByEmail(t *testing.T) {
	db := dbtest.New(t, &domain.User{})
	repo := Provide()
	ctx := context.Background()

	missing, err := repo.FindUserByEmail(ctx, db, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.InsertUser(ctx, db, &domain.User{ID: 1, Name: "Admin", Email: "admin@example.com", CreatedAt: time.Now().UTC()}))

	found, err := repo.FindUserByEmail(ctx, db, " Admin@Example.com ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, snowflake.ID(1), found.ID)

	found.PasswordHash = "hash"
	found.IsAdmin = true
	require.NoError(t, repo.UpdateUserCredentials(ctx, db, found))

	reloaded, err := repo.FindUserByEmail(ctx, db, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin)
	assert.Equal(t, "hash", reloaded.PasswordHash)
}

func TestListFailsOnMissingTable(t *testing.T) {
	db := dbtest.New(t)
	_, err := Provide().ListBookings(context.Background(), db)
	assert.Error(t, err)
}
