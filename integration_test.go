//go:build integration

package main_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/application"
	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/messages"
	"github.com/Kilat-Lodge/service-reservation/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

var testContact = bookingDomain.Contact{Name: "Grace Hopper", Email: "grace@example.com"}

// TestPaymentReceived_MarksBookingPaid books a room on PostgreSQL, waits for
// booking.confirmed on the reservation topic, then publishes payment.received
// and expects the booking to be marked paid.
func TestPaymentReceived_MarksBookingPaid(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupReservationStack(t, infra.DB, infra.KafkaBrokers, testNow)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	_, err := stack.Reservations.PlaceHold(ctx, "s1", application.PlaceHoldRequest{
		RoomID: "alder", CheckIn: date("2025-11-01"), CheckOut: date("2025-11-03"), Guests: adults(2),
	})
	require.NoError(t, err)
	bk, err := stack.Reservations.Checkout(ctx, "s1", application.CheckoutRequest{Contact: testContact})
	require.NoError(t, err)

	ce := consumeOneEvent(t, infra.KafkaBrokers, messages.TopicReservationEvents, messages.BookingConfirmed, 15*time.Second)
	var confirmed messages.BookingConfirmedEvent
	require.NoError(t, ce.ParseData(&confirmed))
	assert.Equal(t, bk.ID, confirmed.BookingID)
	assert.Equal(t, int64(792), confirmed.TotalPrice)

	publishTestEvent(t, infra.KafkaBrokers, messages.TopicPaymentEvents, "service-payment",
		messages.PaymentReceived, bk.ID.String(), messages.PaymentReceivedEvent{
			BookingID:  bk.ID,
			PaymentID:  "pay_int_1",
			Amount:     bk.TotalPrice,
			Currency:   "EUR",
			OccurredAt: time.Now().UTC(),
		})

	model := waitForPaid(t, infra.DB, bk.ID, 15*time.Second)
	assert.NotNil(t, model.PaidAt)
	assert.Equal(t, bk.Version+1, model.Version)

	ce = consumeOneEvent(t, infra.KafkaBrokers, messages.TopicReservationEvents, messages.BookingPaid, 15*time.Second)
	var paid messages.BookingPaidEvent
	require.NoError(t, ce.ParseData(&paid))
	assert.Equal(t, bk.ID, paid.BookingID)
}

// TestConcurrentHolds_SingleWinner races many sessions for the same room and
// nights on PostgreSQL. Exactly one hold may survive.
func TestConcurrentHolds_SingleWinner(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	stack := setupReservationStack(t, db, nil, testNow)

	const sessions = 20
	var (
		wg        sync.WaitGroup
		winners   atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := stack.Reservations.PlaceHold(context.Background(), fmt.Sprintf("session-%d", i), application.PlaceHoldRequest{
				RoomID: "birch", CheckIn: date("2025-11-07"), CheckOut: date("2025-11-09"), Guests: adults(2),
			})
			switch {
			case err == nil:
				winners.Add(1)
			case domain.IsKind(err, domain.KindConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(sessions-1), conflicts.Load())

	var count int64
	require.NoError(t, db.Model(&repository.HoldModel{}).Where("room_id = ?", "birch").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// TestCheckoutAndCancel_OnPostgres covers the booking lifecycle against the
// GORM store: availability reflects the booking, cancellation frees the
// nights, and expired holds are swept.
func TestCheckoutAndCancel_OnPostgres(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	stack := setupReservationStack(t, db, nil, testNow)
	ctx := context.Background()

	bulk, err := stack.Reservations.PlaceBulkHold(ctx, "group", application.PlaceBulkHoldRequest{
		CheckIn: date("2025-11-14"), CheckOut: date("2025-11-16"), Guests: adults(4),
	})
	require.NoError(t, err)
	require.Len(t, bulk, 2)
	whole, err := stack.Reservations.Checkout(ctx, "group", application.CheckoutRequest{Contact: testContact})
	require.NoError(t, err)
	assert.True(t, whole.WholeProperty)
	assert.Equal(t, int64(2*(900+4*39)), whole.TotalPrice)

	cal, err := stack.Reservations.PropertyAvailability(ctx, "viewer", date("2025-11-14"), date("2025-11-16"))
	require.NoError(t, err)
	for _, room := range cal.Rooms {
		assert.Equal(t, reservation.StatusBooked, room.Days[0].Status, room.RoomID)
		assert.Equal(t, reservation.StatusBooked, room.Days[1].Status, room.RoomID)
		assert.Equal(t, reservation.StatusBoundary, room.Days[2].Status, room.RoomID)
	}

	_, err = stack.Reservations.PlaceHold(ctx, "late", application.PlaceHoldRequest{
		RoomID: "alder", CheckIn: date("2025-11-15"), CheckOut: date("2025-11-17"), Guests: adults(1),
	})
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonOccupied, de.Reason)

	_, err = stack.Bookings.CancelByToken(ctx, whole.ManageToken, "plans changed")
	require.NoError(t, err)

	_, err = stack.Reservations.PlaceHold(ctx, "late", application.PlaceHoldRequest{
		RoomID: "alder", CheckIn: date("2025-11-15"), CheckOut: date("2025-11-17"), Guests: adults(1),
	})
	require.NoError(t, err, "cancelled nights are bookable again")

	stats, err := stack.Bookings.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["cancelled"])

	stack.Clock.Advance(16 * time.Minute)
	swept, err := stack.Holds.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}
