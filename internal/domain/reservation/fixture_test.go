package reservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/Kilat-Lodge/service-reservation/internal/repository"
	"github.com/stretchr/testify/require"
)

var (
	// Two weeks after the cutoff of the 2025/26 winter season.
	afterCutoff = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	// Two weeks before it.
	beforeCutoff = time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC)

	rates = property.RateCard{
		property.TierInternal: {Base: 298, Adult: 49, Child: 24},
		property.TierExternal: {Base: 499, Adult: 99, Child: 49},
	}
	bulkRates = property.RateCard{
		property.TierInternal: {Adult: 39, Child: 19},
		property.TierExternal: {Adult: 79, Child: 39},
	}

	winter = property.Season{
		Name:  "winter-holidays",
		Start: stay.MustParseDate("2025-12-20"),
		End:   stay.MustParseDate("2026-01-06"),
		Codes: []string{"SNOW26"},
		Year:  2026,
	}

	contact = booking.Contact{Name: "Grace Hopper", Email: "grace@example.com"}
)

type fixture struct {
	ctx          context.Context
	clock        *reservation.FakeClock
	policy       *reservation.ClockPolicy
	store        *repository.MemoryStore
	catalog      *property.Catalog
	index        *reservation.AvailabilityIndex
	resolver     *reservation.ConflictResolver
	gate         *reservation.SeasonGate
	holds        *reservation.HoldStore
	consolidator *reservation.BookingConsolidator
}

func newFixture(t *testing.T, now time.Time, ttl time.Duration) *fixture {
	t.Helper()

	catalog, err := property.NewCatalog("EUR", []property.Room{
		{ID: "alder", Name: "Alder", Capacity: 4, Rates: rates},
		{ID: "birch", Name: "Birch", Capacity: 2, Rates: rates},
	}, bulkRates, []property.Season{winter})
	require.NoError(t, err)

	clock := reservation.NewFakeClock(now)
	policy := reservation.NewClockPolicy(clock, reservation.DefaultCutoffRule, time.UTC)
	store := repository.NewMemoryStore()
	resolver := reservation.NewConflictResolver(policy)
	gate := reservation.NewSeasonGate(catalog.Seasons, policy)
	limits := booking.GuestLimits{Floor: 2, Ceiling: 6}
	pricing := booking.NewStandardPricingStrategy(booking.BaseTierCheapest, limits)

	return &fixture{
		ctx:          context.Background(),
		clock:        clock,
		policy:       policy,
		store:        store,
		catalog:      catalog,
		index:        reservation.NewAvailabilityIndex(store, catalog, policy),
		resolver:     resolver,
		gate:         gate,
		holds:        reservation.NewHoldStore(store, catalog, resolver, policy, reservation.HoldPolicy{TTL: ttl, Bulk: limits}, nil),
		consolidator: reservation.NewBookingConsolidator(store, catalog, resolver, gate, pricing, 900, policy),
	}
}

// retain rebuilds the hold store so expired holds are kept for d before a
// sweep deletes them.
func (f *fixture) retain(ttl, d time.Duration) {
	f.holds = reservation.NewHoldStore(f.store, f.catalog, f.resolver, f.policy, reservation.HoldPolicy{
		TTL:       ttl,
		Retention: d,
		Bulk:      booking.GuestLimits{Floor: 2, Ceiling: 6},
	}, nil)
}

func stayOf(start, end string) stay.Range {
	return stay.Range{Start: stay.MustParseDate(start), End: stay.MustParseDate(end)}
}

func adults(n int, tier property.Tier) booking.Roster {
	r := make(booking.Roster, n)
	for i := range r {
		r[i] = booking.Guest{AgeClass: booking.AgeAdult, Tier: tier}
	}
	return r
}

// book commits a confirmed booking of one room through a session's hold.
func (f *fixture) book(t *testing.T, roomID string, s stay.Range) *booking.Booking {
	t.Helper()
	session := "booker-" + roomID + "-" + s.Start.String()
	_, err := f.holds.Create(f.ctx, session, roomID, s, adults(1, property.TierInternal), "")
	require.NoError(t, err)
	b, err := f.consolidator.Finalize(f.ctx, session, contact)
	require.NoError(t, err)
	return b
}

func (f *fixture) block(t *testing.T, roomID string, start, end string) property.Block {
	t.Helper()
	b, err := property.NewBlock(roomID, stay.MustParseDate(start), stay.MustParseDate(end), "maintenance", f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.SaveBlock(f.ctx, b))
	return b
}

func (f *fixture) check(t *testing.T, roomID string, s stay.Range, sessionID string) error {
	t.Helper()
	var result error
	require.NoError(t, f.store.Read(f.ctx, func(r reservation.Reader) error {
		result = f.resolver.Check(f.ctx, r, roomID, s, sessionID)
		return nil
	}))
	return result
}
