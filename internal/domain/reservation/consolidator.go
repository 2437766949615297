package reservation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
)

// BookingConsolidator turns a session's holds into one booking.
//
// A finalize attempt moves from draft (the session's holds, expired ones not
// yet swept included) through validating (every hold re-checked under the
// room locks) to either committed (booking saved, holds deleted) or rejected
// (nothing written).
type BookingConsolidator struct {
	store       Store
	catalog     *property.Catalog
	resolver    *ConflictResolver
	gate        *SeasonGate
	pricing     booking.PricingStrategy
	bulkBaseFee int64
	clock       *ClockPolicy
}

// NewBookingConsolidator creates a new BookingConsolidator.
func NewBookingConsolidator(
	store Store,
	catalog *property.Catalog,
	resolver *ConflictResolver,
	gate *SeasonGate,
	pricing booking.PricingStrategy,
	bulkBaseFee int64,
	clock *ClockPolicy,
) *BookingConsolidator {
	return &BookingConsolidator{
		store:       store,
		catalog:     catalog,
		resolver:    resolver,
		gate:        gate,
		pricing:     pricing,
		bulkBaseFee: bulkBaseFee,
		clock:       clock,
	}
}

// Finalize validates and commits the session's holds as one booking.
// On rejection the returned error is a consistency error naming every
// failing room, and the holds are left as they were.
func (c *BookingConsolidator) Finalize(ctx context.Context, sessionID string, contact booking.Contact) (*booking.Booking, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session is required")
	}
	if err := booking.ValidateContact(contact); err != nil {
		return nil, err
	}

	var draft []*hold.Hold
	err := c.store.Read(ctx, func(r Reader) error {
		holds, err := r.SessionHolds(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session holds: %w", err)
		}
		live, lapsed := selection(holds, c.clock.Now())
		draft = append(live, lapsed...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(draft) == 0 {
		return nil, domain.NewValidationError("the session has no holds to book")
	}
	roomIDs := roomSet(draft)

	var created *booking.Booking
	err = c.store.Write(ctx, roomIDs, func(tx Tx) error {
		now := c.clock.Now()
		all, err := tx.SessionHolds(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session holds: %w", err)
		}
		holds, lapsed := selection(all, now)
		if !sameRooms(roomSet(holds, lapsed), roomIDs) {
			return domain.NewValidationError("the session's holds changed during checkout; please retry")
		}

		bulk, err := bulkSelection(holds)
		if err != nil {
			return err
		}

		rejected, err := c.validate(ctx, tx, sessionID, holds, bulk)
		if err != nil {
			return err
		}
		for _, h := range lapsed {
			reason, err := c.resolver.Reason(ctx, tx, h.RoomID, h.Stay, sessionID)
			if err != nil {
				return err
			}
			if reason == "" {
				reason = domain.ReasonHoldExpired
			}
			rejected = append(rejected, domain.RoomRejection{RoomID: h.RoomID, Reason: reason})
		}
		if len(rejected) > 0 {
			return domain.NewConsistencyError(rejected)
		}

		b, err := c.build(holds, bulk, contact)
		if err != nil {
			return err
		}
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		for _, h := range holds {
			if err := tx.DeleteHold(ctx, h.ID); err != nil {
				return err
			}
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// validate re-runs the conflict, season and capacity checks for every hold.
func (c *BookingConsolidator) validate(ctx context.Context, tx Tx, sessionID string, holds []*hold.Hold, bulk bool) ([]domain.RoomRejection, error) {
	rt := RequestSingleRoom
	if bulk {
		rt = RequestBulk
	}
	now := c.clock.Now()

	var rejected []domain.RoomRejection
	for _, h := range holds {
		reason, err := c.resolver.Reason(ctx, tx, h.RoomID, h.Stay, sessionID)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			if d := c.gate.Evaluate(h.Stay, rt, h.AccessCode, now); !d.Allowed() {
				reason = d.Reason
			}
		}
		if reason == "" && !bulk {
			room, ok := c.catalog.Room(h.RoomID)
			if !ok {
				return nil, domain.NewNotFoundError("room", h.RoomID)
			}
			if h.Guests.Count() > room.Capacity {
				reason = domain.ReasonCapacityExceeded
			}
		}
		if reason != "" {
			rejected = append(rejected, domain.RoomRejection{RoomID: h.RoomID, Reason: reason})
		}
	}
	return rejected, nil
}

func (c *BookingConsolidator) build(holds []*hold.Hold, bulk bool, contact booking.Contact) (*booking.Booking, error) {
	builder := booking.NewBuilder()

	if bulk {
		if len(holds) != len(c.catalog.Rooms) {
			return nil, domain.NewValidationError("the whole-property selection no longer covers every room")
		}
		h := holds[0]
		price, err := c.pricing.PriceBulk(h.Stay.Nights(), h.Guests, c.bulkBaseFee, c.catalog.BulkRates)
		if err != nil {
			return nil, err
		}
		if err := builder.AddWholeProperty(c.catalog.Rooms, h.Stay, h.Guests, price); err != nil {
			return nil, err
		}
	} else {
		for _, h := range holds {
			room, ok := c.catalog.Room(h.RoomID)
			if !ok {
				return nil, domain.NewNotFoundError("room", h.RoomID)
			}
			price, err := c.pricing.Price(h.Stay.Nights(), h.Guests, room.Rates)
			if err != nil {
				return nil, err
			}
			if err := builder.AddRoom(room, h.Stay, h.Guests, price); err != nil {
				return nil, err
			}
		}
	}

	return builder.Build(contact, c.catalog.Currency, c.clock.Now())
}

// selection splits the session's holds into live holds and lapsed ones:
// expired holds not yet swept on rooms the session no longer holds. Lapsed
// holds are part of the checkout selection and are always rejected.
func selection(holds []*hold.Hold, now time.Time) (live, lapsed []*hold.Hold) {
	covered := make(map[string]bool, len(holds))
	for _, h := range holds {
		if h.IsLive(now) {
			live = append(live, h)
			covered[h.RoomID] = true
		}
	}
	for _, h := range holds {
		if !h.IsLive(now) && !covered[h.RoomID] {
			lapsed = append(lapsed, h)
			covered[h.RoomID] = true
		}
	}
	return live, lapsed
}

// bulkSelection reports whether the holds form one whole-property group.
// Mixing bulk and single-room holds is rejected.
func bulkSelection(holds []*hold.Hold) (bool, error) {
	var (
		bulk  int
		group *hold.Hold
	)
	for _, h := range holds {
		if !h.IsBulk() {
			continue
		}
		if group == nil {
			group = h
		} else if *h.BulkGroup != *group.BulkGroup {
			return false, domain.NewValidationError("the session holds more than one whole-property group")
		}
		bulk++
	}
	switch bulk {
	case 0:
		return false, nil
	case len(holds):
		return true, nil
	}
	return false, domain.NewValidationError("whole-property and single-room holds cannot be booked together")
}

func roomSet(groups ...[]*hold.Hold) []string {
	var ids []string
	for _, holds := range groups {
		for _, h := range holds {
			ids = append(ids, h.RoomID)
		}
	}
	sort.Strings(ids)
	return ids
}

func sameRooms(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
