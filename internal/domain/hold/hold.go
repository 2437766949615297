// Package hold models short-lived provisional reservations owned by a session.
package hold

import (
	"strings"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
)

// DefaultTTL is how long a hold lives without being consolidated.
const DefaultTTL = 15 * time.Minute

// Hold is a provisional reservation of one room for one stay. A hold past
// its ExpiresAt no longer exists, whether or not it was swept yet.
type Hold struct {
	ID         uuid.UUID      `json:"id"`
	SessionID  string         `json:"-"`
	RoomID     string         `json:"room_id"`
	Stay       stay.Range     `json:"stay"`
	Guests     booking.Roster `json:"guests"`
	AccessCode string         `json:"-"`
	// BulkGroup links the holds of one whole-property request.
	BulkGroup *uuid.UUID `json:"bulk_group,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// New creates a hold starting at now.
func New(sessionID, roomID string, s stay.Range, guests booking.Roster, code string, now time.Time, ttl time.Duration) *Hold {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now = now.UTC()
	return &Hold{
		ID:         uuid.New(),
		SessionID:  sessionID,
		RoomID:     roomID,
		Stay:       s,
		Guests:     append(booking.Roster(nil), guests...),
		AccessCode: strings.TrimSpace(code),
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// IsLive reports whether the hold still exists at now.
func (h *Hold) IsLive(now time.Time) bool {
	return now.Before(h.ExpiresAt)
}

// IsBulk reports whether the hold is part of a whole-property request.
func (h *Hold) IsBulk() bool {
	return h.BulkGroup != nil
}

// OwnedBy reports whether sessionID owns the hold.
func (h *Hold) OwnedBy(sessionID string) bool {
	return h.SessionID == sessionID
}

// Live filters holds down to those alive at now.
func Live(holds []*Hold, now time.Time) []*Hold {
	out := make([]*Hold, 0, len(holds))
	for _, h := range holds {
		if h.IsLive(now) {
			out = append(out, h)
		}
	}
	return out
}
