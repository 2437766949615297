package application

import (
	"time"

	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
)

// --- Requests ---

// PlaceHoldRequest holds one room for one stay.
type PlaceHoldRequest struct {
	RoomID     string                `json:"room_id" binding:"required"`
	CheckIn    stay.Date             `json:"check_in"`
	CheckOut   stay.Date             `json:"check_out"`
	Guests     []bookingDomain.Guest `json:"guests" binding:"required,min=1,dive"`
	AccessCode string                `json:"access_code" binding:"max=128"`
}

// PlaceBulkHoldRequest holds the whole property for one stay.
type PlaceBulkHoldRequest struct {
	CheckIn    stay.Date             `json:"check_in"`
	CheckOut   stay.Date             `json:"check_out"`
	Guests     []bookingDomain.Guest `json:"guests" binding:"required,min=1,dive"`
	AccessCode string                `json:"access_code" binding:"max=128"`
}

// UpdateHoldRequest replaces the stay and guests of a hold.
type UpdateHoldRequest struct {
	CheckIn  stay.Date             `json:"check_in"`
	CheckOut stay.Date             `json:"check_out"`
	Guests   []bookingDomain.Guest `json:"guests" binding:"required,min=1,dive"`
}

// CheckoutRequest finalizes the session's holds.
type CheckoutRequest struct {
	Contact bookingDomain.Contact `json:"contact" binding:"required"`
}

// SeasonCheckRequest asks whether a stay may be requested.
type SeasonCheckRequest struct {
	CheckIn    stay.Date `json:"check_in"`
	CheckOut   stay.Date `json:"check_out"`
	Bulk       bool      `json:"bulk"`
	AccessCode string    `json:"access_code" binding:"max=128"`
}

// QuoteRequest prices a stay without holding it. An empty RoomID prices
// the whole property.
type QuoteRequest struct {
	RoomID   string                `json:"room_id"`
	CheckIn  stay.Date             `json:"check_in"`
	CheckOut stay.Date             `json:"check_out"`
	Guests   []bookingDomain.Guest `json:"guests" binding:"required,min=1,dive"`
}

// CancelRequest cancels a booking.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// MarkPaidRequest records a payment.
type MarkPaidRequest struct {
	Reference string `json:"reference" binding:"max=128"`
}

// CreateBlockRequest closes a room, or every room with "*", for an
// inclusive date interval.
type CreateBlockRequest struct {
	RoomID string    `json:"room_id" binding:"required"`
	Start  stay.Date `json:"start"`
	End    stay.Date `json:"end"`
	Reason string    `json:"reason" binding:"max=500"`
}

// --- Responses ---

// RoomAvailabilityDTO is the calendar of one room.
type RoomAvailabilityDTO struct {
	RoomID string                  `json:"room_id"`
	From   stay.Date               `json:"from"`
	To     stay.Date               `json:"to"`
	Days   []reservation.DayStatus `json:"days"`
}

// PropertyAvailabilityDTO is the calendar of every room.
type PropertyAvailabilityDTO struct {
	From  stay.Date             `json:"from"`
	To    stay.Date             `json:"to"`
	Rooms []RoomAvailabilityDTO `json:"rooms"`
}

// HoldDTO is the response representation of a hold.
type HoldDTO struct {
	ID        uuid.UUID             `json:"id"`
	RoomID    string                `json:"room_id"`
	CheckIn   stay.Date             `json:"check_in"`
	CheckOut  stay.Date             `json:"check_out"`
	Nights    int                   `json:"nights"`
	Guests    []bookingDomain.Guest `json:"guests"`
	BulkGroup *uuid.UUID            `json:"bulk_group,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// SeasonCheckDTO is the season gate verdict.
type SeasonCheckDTO struct {
	Outcome reservation.Outcome `json:"outcome"`
	Reason  string              `json:"reason,omitempty"`
	Season  string              `json:"season,omitempty"`
	Cutoff  *time.Time          `json:"cutoff,omitempty"`
}

// QuoteDTO is a price preview.
type QuoteDTO struct {
	RoomID        string `json:"room_id,omitempty"`
	WholeProperty bool   `json:"whole_property"`
	Nights        int    `json:"nights"`
	GuestCount    int    `json:"guest_count"`
	Total         int64  `json:"total"`
	Currency      string `json:"currency"`
}

// EntryDTO is one room of a booking.
type EntryDTO struct {
	RoomID   string                `json:"room_id"`
	CheckIn  stay.Date             `json:"check_in"`
	CheckOut stay.Date             `json:"check_out"`
	Nights   int                   `json:"nights"`
	Guests   []bookingDomain.Guest `json:"guests,omitempty"`
	Price    int64                 `json:"price"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID             `json:"id"`
	BookingNumber string                `json:"booking_number"`
	Status        string                `json:"status"`
	Entries       []EntryDTO            `json:"entries"`
	Guests        []bookingDomain.Guest `json:"guests"`
	Contact       bookingDomain.Contact `json:"contact"`
	TotalPrice    int64                 `json:"total_price"`
	Currency      string                `json:"currency"`
	Paid          bool                  `json:"paid"`
	WholeProperty bool                  `json:"whole_property"`
	ManageToken   string                `json:"manage_token,omitempty"`
	PaidAt        *time.Time            `json:"paid_at,omitempty"`
	CancelledAt   *time.Time            `json:"cancelled_at,omitempty"`
	CancelNote    string                `json:"cancel_note,omitempty"`
	Version       int64                 `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// BlockDTO is the response representation of a block.
type BlockDTO struct {
	ID        uuid.UUID `json:"id"`
	RoomID    string    `json:"room_id"`
	Start     stay.Date `json:"start"`
	End       stay.Date `json:"end"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Conversion Helpers ---

func toHoldDTO(h *hold.Hold) HoldDTO {
	return HoldDTO{
		ID:        h.ID,
		RoomID:    h.RoomID,
		CheckIn:   h.Stay.Start,
		CheckOut:  h.Stay.End,
		Nights:    h.Stay.Nights(),
		Guests:    h.Guests,
		BulkGroup: h.BulkGroup,
		CreatedAt: h.CreatedAt,
		ExpiresAt: h.ExpiresAt,
	}
}

func toHoldDTOs(holds []*hold.Hold) []HoldDTO {
	out := make([]HoldDTO, len(holds))
	for i, h := range holds {
		out[i] = toHoldDTO(h)
	}
	return out
}

// toBookingDTO converts a booking. The manage token is included only when
// withToken is set, i.e. in the checkout response.
func toBookingDTO(bk *bookingDomain.Booking, withToken bool) BookingDTO {
	entries := bk.Entries()
	entryDTOs := make([]EntryDTO, len(entries))
	for i, e := range entries {
		entryDTOs[i] = EntryDTO{
			RoomID:   e.RoomID,
			CheckIn:  e.Stay.Start,
			CheckOut: e.Stay.End,
			Nights:   e.Stay.Nights(),
			Guests:   e.Guests,
			Price:    e.Price,
		}
	}
	dto := BookingDTO{
		ID:            bk.ID(),
		BookingNumber: bk.BookingNumber(),
		Status:        string(bk.Status()),
		Entries:       entryDTOs,
		Guests:        bk.Guests(),
		Contact:       bk.Contact(),
		TotalPrice:    bk.TotalPrice(),
		Currency:      bk.Currency(),
		Paid:          bk.Paid(),
		WholeProperty: bk.WholeProperty(),
		PaidAt:        bk.PaidAt(),
		CancelledAt:   bk.CancelledAt(),
		CancelNote:    bk.CancelNote(),
		Version:       bk.Version(),
		CreatedAt:     bk.CreatedAt(),
		UpdatedAt:     bk.UpdatedAt(),
	}
	if withToken {
		dto.ManageToken = bk.CapabilityToken()
	}
	return dto
}

func toBlockDTO(b property.Block) BlockDTO {
	return BlockDTO{
		ID:        b.ID,
		RoomID:    b.RoomID,
		Start:     b.Start,
		End:       b.End,
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
}
