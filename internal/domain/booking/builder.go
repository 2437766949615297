package booking

import (
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
)

// Builder accumulates a session's selections and materializes them as one
// Booking in a single Build call.
type Builder struct {
	entries       []Entry
	guests        Roster
	rooms         map[string]bool
	total         int64
	wholeProperty bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{rooms: make(map[string]bool)}
}

// AddRoom adds one priced room with its own stay and roster.
func (b *Builder) AddRoom(room property.Room, s stay.Range, guests Roster, price int64) error {
	if b.rooms[room.ID] {
		return domain.NewValidationError("room " + room.ID + " is selected more than once")
	}
	if guests.Count() > room.Capacity {
		return domain.NewCapacityError(room.ID, guests.Count(), room.Capacity)
	}
	b.rooms[room.ID] = true
	b.entries = append(b.entries, Entry{RoomID: room.ID, Stay: s, Guests: guests, Price: price})
	b.guests = append(b.guests, guests...)
	b.total += price
	return nil
}

// AddWholeProperty adds every room for one stay, priced as a single bulk amount.
func (b *Builder) AddWholeProperty(rooms []property.Room, s stay.Range, guests Roster, price int64) error {
	if len(b.entries) > 0 {
		return domain.NewValidationError("a whole-property stay cannot be combined with single rooms")
	}
	for _, room := range rooms {
		b.rooms[room.ID] = true
		b.entries = append(b.entries, Entry{RoomID: room.ID, Stay: s})
	}
	b.guests = append(b.guests, guests...)
	b.total = price
	b.wholeProperty = true
	return nil
}

// Build creates the Booking.
func (b *Builder) Build(contact Contact, currency string, now time.Time) (*Booking, error) {
	return NewBooking(b.entries, b.guests, contact, b.total, currency, b.wholeProperty, now)
}
