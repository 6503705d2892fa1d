package engine

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/report/domain"
)

// Join attaches guest and room identity to every booking, in booking order.
// Dangling references keep the booking with placeholder labels.
func Join(snapshot domain.Snapshot, cfg config.ReportConfig) []domain.JoinedBooking {
	users := make(map[snowflake.ID]domain.User, len(snapshot.Users))
	for _, user := range snapshot.Users {
		users[user.ID] = user
	}
	rooms := make(map[snowflake.ID]domain.Room, len(snapshot.Rooms))
	for _, room := range snapshot.Rooms {
		rooms[room.ID] = room
	}

	joined := make([]domain.JoinedBooking, 0, len(snapshot.Bookings))
	for _, booking := range snapshot.Bookings {
		jb := domain.JoinedBooking{
			Booking:  booking,
			UserName: cfg.UnknownGuestLabel,
			RoomName: cfg.UnknownRoomLabel,
		}
		if user, ok := users[booking.UserID]; ok {
			jb.UserName = user.Name
			jb.UserResolved = true
		}
		if room, ok := rooms[booking.RoomID]; ok {
			jb.RoomName = room.Name
			jb.RoomType = roomTypeLabel(room, cfg)
			jb.RoomPrice = room.Price
			jb.RoomResolved = true
		}
		joined = append(joined, jb)
	}
	return joined
}

// RecordDangling counts unresolved references into diag.
func RecordDangling(joined []domain.JoinedBooking, diag *domain.Diagnostics) {
	for _, jb := range joined {
		if !jb.UserResolved {
			diag.DanglingUserRefs++
			diag.AddIssue(domain.EntityBooking, jb.ID, fmt.Sprintf("%s: user %s", domain.ErrReferenceMismatch, jb.UserID))
		}
		if !jb.RoomResolved {
			diag.DanglingRoomRefs++
			diag.AddIssue(domain.EntityBooking, jb.ID, fmt.Sprintf("%s: room %s", domain.ErrReferenceMismatch, jb.RoomID))
		}
	}
}

func roomTypeLabel(room domain.Room, cfg config.ReportConfig) string {
	if room.Type == "" {
		return cfg.UncategorizedLabel
	}
	return room.Type
}
