// Package reservation is the availability and consistency core: it decides
// what is free, takes provisional holds, gates restricted seasons and turns a
// session's holds into one booking.
package reservation

import (
	"context"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
)

// Reader gives read access to the authoritative state of one room.
//
// The window methods may return more than asked for: anything whose dates
// touch [window.Start, window.End] inclusive. Callers filter precisely.
// HoldsForRoom and SessionHolds return expired holds too.
type Reader interface {
	EntriesForRoom(ctx context.Context, roomID string, window stay.Range) ([]booking.Entry, error)
	BlocksForRoom(ctx context.Context, roomID string, window stay.Range) ([]property.Block, error)
	HoldsForRoom(ctx context.Context, roomID string, window stay.Range) ([]*hold.Hold, error)
	SessionHolds(ctx context.Context, sessionID string) ([]*hold.Hold, error)
}

// Tx is a Reader that can also write. Writes become visible to other
// sessions only when the enclosing Write returns nil.
type Tx interface {
	Reader
	SaveHold(ctx context.Context, h *hold.Hold) error
	DeleteHold(ctx context.Context, id uuid.UUID) error
	SaveBooking(ctx context.Context, b *booking.Booking) error
}

// Store is the authoritative store handle injected into every component.
type Store interface {
	// Read runs fn against a consistent view.
	Read(ctx context.Context, fn func(Reader) error) error

	// Write runs fn with serializable read-then-write access to roomIDs.
	// Nothing fn wrote is kept if fn returns an error.
	Write(ctx context.Context, roomIDs []string, fn func(Tx) error) error

	// DeleteExpiredHolds removes holds that expired at or before now.
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error)
}
