package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	reportdomain "github.com/smallbiznis/hotelops/internal/report/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type demoRoom struct {
	name  string
	kind  string
	price int64
}

var demoRooms = []demoRoom{
	{"Harbor Basic", "Basic", 85},
	{"Palm Twin", "Basic", 95},
	{"Garden View Room", "Deluxe", 140},
	{"City Deluxe", "Deluxe", 160},
	{"Mountain Loft", "Luxury", 240},
	{"Ocean Suite", "Suite", 320},
	{"Sunset Villa", "Suite", 410},
	{"Skyline Penthouse", "Luxury", 650},
}

var demoGuests = []string{
	"Ayu Lestari", "Budi Santoso", "Chen Wei", "Dara Okafor", "Elena Petrova",
	"Farid Rahman", "Grace Kim", "Hugo Martin", "Isabel Costa", "Jonas Berg",
	"Kirana Putri", "Liam Walsh",
}

var demoComments = []string{
	"Great view and quiet nights.",
	"Clean room, friendly staff.",
	"Breakfast could be better.",
	"Would stay again.",
	"Bed was too soft.",
	"",
}

type DemoOptions struct {
	Bookings int
	// Seed makes the generated data reproducible.
	Seed uint64
}

type DemoResult struct {
	Users    int
	Rooms    int
	Bookings int
}

// SeedDemo inserts demo rooms, guests and bookings spread around the
// current date. It refuses to run when bookings already exist.
func (s *Seeder) SeedDemo(ctx context.Context, opts DemoOptions) (DemoResult, error) {
	if opts.Bookings <= 0 {
		opts.Bookings = 60
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	now := s.clock.Now().UTC()

	var result DemoResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&reportdomain.Booking{}).Count(&existing).Error; err != nil {
			return wrapSeedErr("count bookings", err)
		}
		if existing > 0 {
			return ErrAlreadySeeded
		}

		users, err := s.seedGuests(ctx, tx, now)
		if err != nil {
			return err
		}
		rooms, err := s.seedRooms(ctx, tx, rng, users, now)
		if err != nil {
			return err
		}
		bookings, err := s.seedBookings(ctx, tx, rng, users, rooms, opts.Bookings, now)
		if err != nil {
			return err
		}

		result = DemoResult{Users: len(users), Rooms: len(rooms), Bookings: bookings}
		return nil
	})
	if err != nil {
		return DemoResult{}, err
	}

	s.log.Info("demo data seeded",
		zap.Int("users", result.Users),
		zap.Int("rooms", result.Rooms),
		zap.Int("bookings", result.Bookings),
	)
	return result, nil
}

func (s *Seeder) seedGuests(ctx context.Context, tx *gorm.DB, now time.Time) ([]reportdomain.User, error) {
	users := make([]reportdomain.User, 0, len(demoGuests))
	for i, name := range demoGuests {
		user := reportdomain.User{
			ID:        s.node.Generate(),
			Name:      name,
			Email:     fmt.Sprintf("%s@example.com", slug.Make(name)),
			CreatedAt: now.AddDate(0, -(len(demoGuests) - i), 0),
		}
		if err := s.repo.InsertUser(ctx, tx, &user); err != nil {
			return nil, wrapSeedErr("insert guest", err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedRooms(ctx context.Context, tx *gorm.DB, rng *rand.Rand, users []reportdomain.User, now time.Time) ([]reportdomain.Room, error) {
	rooms := make([]reportdomain.Room, 0, len(demoRooms))
	for _, def := range demoRooms {
		room := reportdomain.Room{
			ID:        s.node.Generate(),
			Name:      def.name,
			Slug:      slug.Make(def.name),
			Type:      def.kind,
			Price:     decimal.NewFromInt(def.price),
			Reviews:   demoReviews(rng, users, now),
			CreatedAt: now.AddDate(-1, 0, 0),
		}
		if err := s.repo.InsertRoom(ctx, tx, &room); err != nil {
			return nil, wrapSeedErr("insert room", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func demoReviews(rng *rand.Rand, users []reportdomain.User, now time.Time) datatypes.JSONSlice[reportdomain.Review] {
	count := rng.IntN(4)
	reviews := make(datatypes.JSONSlice[reportdomain.Review], 0, count)
	for i := 0; i < count; i++ {
		reviews = append(reviews, reportdomain.Review{
			UserID:    users[rng.IntN(len(users))].ID,
			Rating:    float64(2 + rng.IntN(4)),
			Comment:   demoComments[rng.IntN(len(demoComments))],
			CreatedAt: now.AddDate(0, 0, -rng.IntN(120)),
		})
	}
	return reviews
}

// seedBookings spreads check-ins from five months back to a month ahead so
// every window list has candidates.
func (s *Seeder) seedBookings(ctx context.Context, tx *gorm.DB, rng *rand.Rand, users []reportdomain.User, rooms []reportdomain.Room, count int, now time.Time) (int, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		room := rooms[rng.IntN(len(rooms))]
		booking := demoBooking(s.node, rng, users[rng.IntN(len(users))].ID, room, today)
		if err := s.repo.InsertBooking(ctx, tx, &booking); err != nil {
			return i, wrapSeedErr("insert booking", err)
		}
	}
	return count, nil
}

func demoBooking(node *snowflake.Node, rng *rand.Rand, userID snowflake.ID, room reportdomain.Room, today time.Time) reportdomain.Booking {
	checkin := today.AddDate(0, 0, rng.IntN(180)-150)
	nights := 1 + rng.IntN(10)
	checkout := checkin.AddDate(0, 0, nights)
	leadDays := rng.IntN(60)
	createdAt := checkin.AddDate(0, 0, -leadDays).Add(time.Duration(rng.IntN(24)) * time.Hour)
	if createdAt.After(today) {
		createdAt = today
	}

	discount := decimal.Zero
	if rng.IntN(4) == 0 {
		discount = decimal.NewFromInt(int64(5 * (1 + rng.IntN(4))))
	}
	total := room.Price.
		Mul(decimal.NewFromInt(int64(nights))).
		Mul(decimal.NewFromInt(100).Sub(discount)).
		Div(decimal.NewFromInt(100)).
		Round(2)

	return reportdomain.Booking{
		ID:              node.Generate(),
		UserID:          userID,
		RoomID:          room.ID,
		CheckinDate:     checkin,
		CheckoutDate:    checkout,
		NumberOfDays:    nights,
		TotalPrice:      total,
		DiscountPercent: discount,
		CreatedAt:       createdAt,
	}
}
