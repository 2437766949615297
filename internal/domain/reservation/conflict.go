package reservation

import (
	"context"
	"fmt"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
)

// ConflictResolver decides whether a room can take a stay.
//
// Bookings and holds are compared as half-open ranges, so a checkout day may
// be another stay's check-in day. Blocks include both of their end dates.
// The requesting session's own holds never conflict.
type ConflictResolver struct {
	clock *ClockPolicy
}

// NewConflictResolver creates a new ConflictResolver.
func NewConflictResolver(clock *ClockPolicy) *ConflictResolver {
	return &ConflictResolver{clock: clock}
}

// Reason returns the conflict reason for the room, or "" when the stay fits.
// When several reasons apply: blocked, then occupied, then held-by-other.
func (c *ConflictResolver) Reason(ctx context.Context, r Reader, roomID string, s stay.Range, sessionID string) (domain.Reason, error) {
	blocks, err := r.BlocksForRoom(ctx, roomID, s)
	if err != nil {
		return "", fmt.Errorf("failed to load blocks for room %s: %w", roomID, err)
	}
	for _, b := range blocks {
		if b.AppliesTo(roomID) && s.IntersectsClosed(b.Start, b.End) {
			return domain.ReasonBlocked, nil
		}
	}

	entries, err := r.EntriesForRoom(ctx, roomID, s)
	if err != nil {
		return "", fmt.Errorf("failed to load bookings for room %s: %w", roomID, err)
	}
	for _, e := range entries {
		if e.RoomID == roomID && e.Stay.Overlaps(s) {
			return domain.ReasonOccupied, nil
		}
	}

	holds, err := r.HoldsForRoom(ctx, roomID, s)
	if err != nil {
		return "", fmt.Errorf("failed to load holds for room %s: %w", roomID, err)
	}
	now := c.clock.Now()
	for _, h := range holds {
		if h.RoomID != roomID || h.OwnedBy(sessionID) || !h.IsLive(now) {
			continue
		}
		if h.Stay.Overlaps(s) {
			return domain.ReasonHeldByOther, nil
		}
	}
	return "", nil
}

// Check returns nil when the room can take the stay and a conflict error
// otherwise.
func (c *ConflictResolver) Check(ctx context.Context, r Reader, roomID string, s stay.Range, sessionID string) error {
	reason, err := c.Reason(ctx, r, roomID, s, sessionID)
	if err != nil {
		return err
	}
	if reason != "" {
		return domain.NewConflictError(roomID, reason)
	}
	return nil
}

// CheckRooms checks every room. Any conflict rejects the whole request and
// the error lists one reason per failing room.
func (c *ConflictResolver) CheckRooms(ctx context.Context, r Reader, roomIDs []string, s stay.Range, sessionID string) error {
	var rejected []domain.RoomRejection
	for _, roomID := range roomIDs {
		reason, err := c.Reason(ctx, r, roomID, s, sessionID)
		if err != nil {
			return err
		}
		if reason != "" {
			rejected = append(rejected, domain.RoomRejection{RoomID: roomID, Reason: reason})
		}
	}
	if len(rejected) > 0 {
		return domain.NewRoomsConflictError(rejected)
	}
	return nil
}
