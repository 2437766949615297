package reservation_test

import (
	"testing"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statuses(days []reservation.DayStatus) map[string]reservation.Status {
	out := make(map[string]reservation.Status, len(days))
	for _, d := range days {
		out[d.Date.String()] = d.Status
	}
	return out
}

func TestCalendar_EmptyRoomIsAvailable(t *testing.T) {
	f := newFixture(t, afterCutoff, 0)

	days, err := f.index.Calendar(f.ctx, "alder", stayOf("2025-11-01", "2025-11-08"), "s1")
	require.NoError(t, err)
	require.Len(t, days, 7)
	for _, d := range days {
		assert.Equal(t, reservation.StatusAvailable, d.Status, d.Date.String())
	}
}

func TestCalendar_BookingAndCheckoutBoundary(t *testing.T) {
	f := newFixture(t, afterCutoff, 0)
	f.book(t, "alder", stayOf("2025-11-01", "2025-11-03"))

	days, err := f.index.Calendar(f.ctx, "alder", stayOf("2025-10-31", "2025-11-05"), "s1")
	require.NoError(t, err)

	got := statuses(days)
	assert.Equal(t, reservation.StatusAvailable, got["2025-10-31"])
	assert.Equal(t, reservation.StatusBooked, got["2025-11-01"])
	assert.Equal(t, reservation.StatusBooked, got["2025-11-02"])
	assert.Equal(t, reservation.StatusBoundary, got["2025-11-03"])
	assert.True(t, got["2025-11-03"].Bookable())
	assert.Equal(t, reservation.StatusAvailable, got["2025-11-04"])

	other, err := f.index.Status(f.ctx, "birch", stay.MustParseDate("2025-11-01"), "s1")
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusAvailable, other, "bookings only affect their own room")
}

func TestCalendar_BlocksIncludeBothEnds(t *testing.T) {
	f := newFixture(t, afterCutoff, 0)
	f.book(t, "birch", stayOf("2025-11-10", "2025-11-12"))
	f.block(t, "birch", "2025-11-11", "2025-11-13")

	days, err := f.index.Calendar(f.ctx, "birch", stayOf("2025-11-10", "2025-11-15"), "s1")
	require.NoError(t, err)

	got := statuses(days)
	assert.Equal(t, reservation.StatusBooked, got["2025-11-10"])
	assert.Equal(t, reservation.StatusBlocked, got["2025-11-11"], "blocked outranks booked")
	assert.Equal(t, reservation.StatusBlocked, got["2025-11-13"])
	assert.Equal(t, reservation.StatusAvailable, got["2025-11-14"])
}

func TestCalendar_WholePropertyBlock(t *testing.T) {
	f := newFixture(t, afterCutoff, 0)
	f.block(t, property.AllRooms, "2025-11-20", "2025-11-20")

	cal, err := f.index.PropertyCalendar(f.ctx, stayOf("2025-11-19", "2025-11-22"), "s1")
	require.NoError(t, err)
	require.Len(t, cal, 2)
	for roomID, days := range cal {
		got := statuses(days)
		assert.Equal(t, reservation.StatusAvailable, got["2025-11-19"], roomID)
		assert.Equal(t, reservation.StatusBlocked, got["2025-11-20"], roomID)
		assert.Equal(t, reservation.StatusAvailable, got["2025-11-21"], roomID)
	}
}

func TestCalendar_HoldsDependOnViewer(t *testing.T) {
	f := newFixture(t, afterCutoff, 0)
	_, err := f.holds.Create(f.ctx, "owner", "alder", stayOf("2025-11-05", "2025-11-07"), adults(2, property.TierExternal), "")
	require.NoError(t, err)

	mine, err := f.index.Calendar(f.ctx, "alder", stayOf("2025-11-05", "2025-11-08"), "owner")
	require.NoError(t, err)
	theirs, err := f.index.Calendar(f.ctx, "alder", stayOf("2025-11-05", "2025-11-08"), "someone-else")
	require.NoError(t, err)

	assert.Equal(t, reservation.StatusHeldSelf, statuses(mine)["2025-11-05"])
	assert.Equal(t, reservation.StatusHeldOther, statuses(theirs)["2025-11-06"])
	assert.Equal(t, reservation.StatusBoundary, statuses(theirs)["2025-11-07"])

	f.clock.Advance(16 * time.Minute)
	expired, err := f.index.Calendar(f.ctx, "alder", stayOf("2025-11-05", "2025-11-08"), "someone-else")
	require.NoError(t, err)
	for _, d := range expired {
		assert.Equal(t, reservation.StatusAvailable, d.Status, "expired holds are invisible")
	}
}

func TestCalendar_Errors(t *testing.T) {
	f := newFixture(t, afterCutoff, 0)

	_, err := f.index.Calendar(f.ctx, "oak", stayOf("2025-11-01", "2025-11-02"), "s1")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = f.index.Calendar(f.ctx, "alder", stayOf("2025-11-02", "2025-11-01"), "s1")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = f.index.PropertyCalendar(f.ctx, stay.Range{}, "s1")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}
