package application

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/kafka"
	"github.com/Kilat-Lodge/service-reservation/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	afterCutoff  = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	beforeCutoff = time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC)
)

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	keys   []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _, key string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() kafka.CloudEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type harness struct {
	ctx         context.Context
	clock       *reservation.FakeClock
	store       *repository.MemoryStore
	publisher   *recordingPublisher
	reservation *ReservationService
	bookings    *BookingService
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()

	rates := property.RateCard{
		property.TierInternal: {Base: 298, Adult: 49, Child: 24},
		property.TierExternal: {Base: 499, Adult: 99, Child: 49},
	}
	catalog, err := property.NewCatalog("EUR", []property.Room{
		{ID: "alder", Name: "Alder", Capacity: 4, Rates: rates},
		{ID: "birch", Name: "Birch", Capacity: 2, Rates: rates},
	}, property.RateCard{
		property.TierInternal: {Adult: 39, Child: 19},
		property.TierExternal: {Adult: 79, Child: 39},
	}, []property.Season{{
		Name:  "winter-holidays",
		Start: stay.MustParseDate("2025-12-20"),
		End:   stay.MustParseDate("2026-01-06"),
		Codes: []string{"SNOW26"},
		Year:  2026,
	}})
	require.NoError(t, err)

	clock := reservation.NewFakeClock(now)
	policy := reservation.NewClockPolicy(clock, reservation.DefaultCutoffRule, time.UTC)
	store := repository.NewMemoryStore()
	limits := bookingDomain.GuestLimits{Floor: 2, Ceiling: 6}
	pricing := bookingDomain.NewStandardPricingStrategy(bookingDomain.BaseTierCheapest, limits)
	resolver := reservation.NewConflictResolver(policy)
	gate := reservation.NewSeasonGate(catalog.Seasons, policy)
	publisher := &recordingPublisher{}
	logger := zap.NewNop()

	return &harness{
		ctx:       context.Background(),
		clock:     clock,
		store:     store,
		publisher: publisher,
		reservation: NewReservationService(ReservationDeps{
			Catalog:      catalog,
			Index:        reservation.NewAvailabilityIndex(store, catalog, policy),
			Holds:        reservation.NewHoldStore(store, catalog, resolver, policy, reservation.HoldPolicy{Bulk: limits}, logger),
			Gate:         gate,
			Consolidator: reservation.NewBookingConsolidator(store, catalog, resolver, gate, pricing, 900, policy),
			Pricing:      pricing,
			BulkBaseFee:  900,
			Clock:        policy,
			Producer:     publisher,
		}, logger),
		bookings: NewBookingService(store, store, catalog, policy, publisher, "", logger),
	}
}

func date(s string) stay.Date { return stay.MustParseDate(s) }

func adults(n int) []bookingDomain.Guest {
	out := make([]bookingDomain.Guest, n)
	for i := range out {
		out[i] = bookingDomain.Guest{AgeClass: bookingDomain.AgeAdult, Tier: property.TierInternal}
	}
	return out
}

var testContact = bookingDomain.Contact{Name: "Grace Hopper", Email: "grace@example.com"}

// checkout holds one room for the session and books it.
func (h *harness) checkout(t *testing.T, sessionID, roomID, checkIn, checkOut string) *BookingDTO {
	t.Helper()
	_, err := h.reservation.PlaceHold(h.ctx, sessionID, PlaceHoldRequest{
		RoomID: roomID, CheckIn: date(checkIn), CheckOut: date(checkOut), Guests: adults(2),
	})
	require.NoError(t, err)
	bk, err := h.reservation.Checkout(h.ctx, sessionID, CheckoutRequest{Contact: testContact})
	require.NoError(t, err)
	return bk
}
