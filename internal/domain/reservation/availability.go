package reservation

import (
	"context"
	"fmt"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
)

// Status is the state of one room on one date, as seen by one session.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusBlocked   Status = "blocked"
	StatusHeldSelf  Status = "held-self"
	StatusHeldOther Status = "held-other"
	// StatusBoundary marks a checkout day: free to check in, but the
	// previous night belongs to someone.
	StatusBoundary Status = "boundary"
)

// rank orders statuses; higher wins when several apply to one date.
var rank = map[Status]int{
	StatusAvailable: 0,
	StatusBoundary:  1,
	StatusHeldSelf:  2,
	StatusHeldOther: 3,
	StatusBooked:    4,
	StatusBlocked:   5,
}

// Bookable reports whether a stay may begin on a date with this status.
func (s Status) Bookable() bool {
	return s == StatusAvailable || s == StatusBoundary
}

// DayStatus is one cell of a room calendar.
type DayStatus struct {
	Date   stay.Date `json:"date"`
	Status Status    `json:"status"`
}

// AvailabilityIndex answers availability queries. It keeps no state of its
// own: every answer is recomputed from the store.
type AvailabilityIndex struct {
	store   Store
	catalog *property.Catalog
	clock   *ClockPolicy
}

// NewAvailabilityIndex creates a new AvailabilityIndex.
func NewAvailabilityIndex(store Store, catalog *property.Catalog, clock *ClockPolicy) *AvailabilityIndex {
	return &AvailabilityIndex{store: store, catalog: catalog, clock: clock}
}

// Status returns the status of one room on one date.
func (a *AvailabilityIndex) Status(ctx context.Context, roomID string, date stay.Date, sessionID string) (Status, error) {
	days, err := a.Calendar(ctx, roomID, stay.Range{Start: date, End: date.AddDays(1)}, sessionID)
	if err != nil {
		return "", err
	}
	return days[0].Status, nil
}

// Calendar returns the status of every date in window, in order.
func (a *AvailabilityIndex) Calendar(ctx context.Context, roomID string, window stay.Range, sessionID string) ([]DayStatus, error) {
	if err := window.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if _, ok := a.catalog.Room(roomID); !ok {
		return nil, domain.NewNotFoundError("room", roomID)
	}

	var days []DayStatus
	err := a.store.Read(ctx, func(r Reader) error {
		var err error
		days, err = a.calendar(ctx, r, roomID, window, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// PropertyCalendar returns a calendar for every room in the catalog, read
// from one consistent view.
func (a *AvailabilityIndex) PropertyCalendar(ctx context.Context, window stay.Range, sessionID string) (map[string][]DayStatus, error) {
	if err := window.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	out := make(map[string][]DayStatus, len(a.catalog.Rooms))
	err := a.store.Read(ctx, func(r Reader) error {
		for _, roomID := range a.catalog.RoomIDs() {
			days, err := a.calendar(ctx, r, roomID, window, sessionID)
			if err != nil {
				return err
			}
			out[roomID] = days
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AvailabilityIndex) calendar(ctx context.Context, r Reader, roomID string, window stay.Range, sessionID string) ([]DayStatus, error) {
	entries, err := r.EntriesForRoom(ctx, roomID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for room %s: %w", roomID, err)
	}
	blocks, err := r.BlocksForRoom(ctx, roomID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocks for room %s: %w", roomID, err)
	}
	holds, err := r.HoldsForRoom(ctx, roomID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load holds for room %s: %w", roomID, err)
	}
	holds = hold.Live(holds, a.clock.Now())

	dates := window.Dates()
	days := make([]DayStatus, len(dates))
	for i, d := range dates {
		days[i] = DayStatus{Date: d, Status: statusOn(d, roomID, sessionID, entries, blocks, holds)}
	}
	return days, nil
}

func statusOn(d stay.Date, roomID, sessionID string, entries []booking.Entry, blocks []property.Block, holds []*hold.Hold) Status {
	status := StatusAvailable
	raise := func(s Status) {
		if rank[s] > rank[status] {
			status = s
		}
	}

	for _, b := range blocks {
		if b.AppliesTo(roomID) && b.Covers(d) {
			return StatusBlocked
		}
	}
	for _, e := range entries {
		if e.RoomID != roomID {
			continue
		}
		switch {
		case e.Stay.Contains(d):
			raise(StatusBooked)
		case e.Stay.End.Equal(d):
			raise(StatusBoundary)
		}
	}
	for _, h := range holds {
		if h.RoomID != roomID {
			continue
		}
		switch {
		case h.Stay.Contains(d) && h.OwnedBy(sessionID):
			raise(StatusHeldSelf)
		case h.Stay.Contains(d):
			raise(StatusHeldOther)
		case h.Stay.End.Equal(d):
			raise(StatusBoundary)
		}
	}
	return status
}
