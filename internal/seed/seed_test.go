package seed

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/hotelops/internal/clock"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/report/domain"
	"github.com/smallbiznis/hotelops/internal/report/engine"
	"github.com/smallbiznis/hotelops/internal/report/repository"
	"github.com/smallbiznis/hotelops/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSeeder(t *testing.T) (*Seeder, *clock.FakeClock) {
	t.Helper()
	conn := dbtest.New(t, &domain.User{}, &domain.Room{}, &domain.Booking{})
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	seeder, err := NewSeeder(Params{
		DB:    conn,
		Repo:  repository.Provide(),
		Clock: clk,
		Log:   zap.NewNop(),
	})
	require.NoError(t, err)
	return seeder, clk
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	seeder, _ := newTestSeeder(t)
	ctx := context.Background()

	first, err := seeder.EnsureAdmin(ctx, AdminParams{Email: " Admin@Gmail.com ", Password: DefaultAdminPassword})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, DefaultAdminEmail, first.User.Email)
	assert.Equal(t, DefaultAdminName, first.User.Name)
	assert.True(t, first.User.IsAdmin)
	assert.NotEqual(t, DefaultAdminPassword, first.User.PasswordHash)

	second, err := seeder.EnsureAdmin(ctx, AdminParams{Email: DefaultAdminEmail, Password: "other"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.False(t, second.PasswordUpdated)
	assert.Equal(t, first.User.ID, second.User.ID)

	stored, err := seeder.CheckAdmin(ctx, DefaultAdminEmail)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(stored, DefaultAdminPassword))
	assert.False(t, VerifyPassword(stored, "other"))
}

func TestEnsureAdminResetsPassword(t *testing.T) {
	seeder, _ := newTestSeeder(t)
	ctx := context.Background()

	_, err := seeder.EnsureAdmin(ctx, AdminParams{Email: DefaultAdminEmail, Password: DefaultAdminPassword})
	require.NoError(t, err)

	res, err := seeder.EnsureAdmin(ctx, AdminParams{Email: DefaultAdminEmail, Password: "rotated", ResetPassword: true})
	require.NoError(t, err)
	assert.True(t, res.PasswordUpdated)

	stored, err := seeder.CheckAdmin(ctx, DefaultAdminEmail)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(stored, "rotated"))
}

func TestEnsureAdminPromotesExistingGuest(t *testing.T) {
	seeder, clk := newTestSeeder(t)
	ctx := context.Background()

	guest := domain.User{ID: seeder.node.Generate(), Name: "Front Desk", Email: "desk@example.com", CreatedAt: clk.Now()}
	require.NoError(t, seeder.repo.InsertUser(ctx, seeder.db, &guest))

	_, err := seeder.CheckAdmin(ctx, "desk@example.com")
	assert.ErrorIs(t, err, ErrAdminNotFound)

	res, err := seeder.EnsureAdmin(ctx, AdminParams{Email: "desk@example.com", Password: "pw", ResetPassword: true})
	require.NoError(t, err)
	assert.False(t, res.Created)

	stored, err := seeder.CheckAdmin(ctx, "desk@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Front Desk", stored.Name)
}

func TestEnsureAdminValidation(t *testing.T) {
	seeder, _ := newTestSeeder(t)
	_, err := seeder.EnsureAdmin(context.Background(), AdminParams{Email: "", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidAdmin)
	_, err = seeder.EnsureAdmin(context.Background(), AdminParams{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidAdmin)
}

func TestSeedDemoProducesCleanReport(t *testing.T) {
	seeder, clk := newTestSeeder(t)
	ctx := context.Background()

	res, err := seeder.SeedDemo(ctx, DemoOptions{Bookings: 40, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, len(demoGuests), res.Users)
	assert.Equal(t, len(demoRooms), res.Rooms)
	assert.Equal(t, 40, res.Bookings)

	repo := repository.Provide()
	users, err := repo.ListUsers(ctx, seeder.db)
	require.NoError(t, err)
	rooms, err := repo.ListRooms(ctx, seeder.db)
	require.NoError(t, err)
	bookings, err := repo.ListBookings(ctx, seeder.db)
	require.NoError(t, err)

	report, diag := engine.Run(domain.RawSnapshot{Users: users, Rooms: rooms, Bookings: bookings}, clk.Now(), config.DefaultReportConfig())
	assert.Zero(t, diag.Skipped())
	assert.Zero(t, diag.DanglingUserRefs+diag.DanglingRoomRefs)
	assert.Equal(t, 40, report.TotalBookings)
	assert.Equal(t, len(demoGuests), report.TotalUsers)
	assert.NotNil(t, report.TopPerformingRoom)

	for _, room := range rooms {
		assert.NotEmpty(t, room.Slug)
	}

	_, err = seeder.SeedDemo(ctx, DemoOptions{Bookings: 5})
	assert.ErrorIs(t, err, ErrAlreadySeeded)
}

func TestDemoBookingTotals(t *testing.T) {
	seeder, clk := newTestSeeder(t)
	rng := newDeterministicRand(3)
	room := domain.Room{ID: 1, Price: decimalFromInt(100)}

	for i := 0; i < 50; i++ {
		b := demoBooking(seeder.node, rng, 2, room, clk.Now())
		assert.True(t, b.CheckoutDate.After(b.CheckinDate))
		assert.Equal(t, b.NumberOfDays, int(b.CheckoutDate.Sub(b.CheckinDate).Hours()/24))
		assert.False(t, b.CreatedAt.After(clk.Now()))
		assert.False(t, b.TotalPrice.IsNegative())
		assert.True(t, b.TotalPrice.LessThanOrEqual(decimalFromInt(int64(100*b.NumberOfDays))))
	}
}
