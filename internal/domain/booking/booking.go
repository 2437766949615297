package booking

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var validate = validator.New()

// Entry is one room of a booking with its own stay and guests.
type Entry struct {
	RoomID string     `json:"room_id"`
	Stay   stay.Range `json:"stay"`
	Guests Roster     `json:"guests,omitempty"`
	Price  int64      `json:"price"`
}

// Booking is the aggregate root for a confirmed reservation.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	status        BookingStatus
	entries       []Entry
	guests        Roster
	contact       Contact

	totalPrice int64
	currency   string

	capabilityToken string
	paid            bool
	wholeProperty   bool

	paidAt      *time.Time
	cancelledAt *time.Time
	cancelNote  string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "BK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// generateCapabilityToken returns an unguessable URL-safe token.
func generateCapabilityToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate capability token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidateContact checks the contact details of a booking.
func ValidateContact(c Contact) error {
	if err := validate.Struct(c); err != nil {
		return domain.NewValidationError(fmt.Sprintf("invalid contact: %v", err))
	}
	return nil
}

// NewBooking creates a new confirmed Booking. Entries must have a valid stay
// and name each room at most once.
func NewBooking(
	entries []Entry,
	guests Roster,
	contact Contact,
	totalPrice int64,
	currency string,
	wholeProperty bool,
	now time.Time,
) (*Booking, error) {
	if len(entries) == 0 {
		return nil, domain.NewValidationError("a booking needs at least one room")
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.RoomID == "" {
			return nil, domain.NewValidationError("room is required for every entry")
		}
		if seen[e.RoomID] {
			return nil, domain.NewValidationError(fmt.Sprintf("room %s appears more than once", e.RoomID))
		}
		seen[e.RoomID] = true
		if err := e.Stay.Validate(); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("room %s: %v", e.RoomID, err))
		}
	}
	if err := guests.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if err := ValidateContact(contact); err != nil {
		return nil, err
	}
	if totalPrice < 0 {
		return nil, domain.NewValidationError("total price cannot be negative")
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}
	token, err := generateCapabilityToken()
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Booking{
		id:              uuid.New(),
		bookingNumber:   bookingNumber,
		status:          StatusConfirmed,
		entries:         append([]Entry(nil), entries...),
		guests:          append(Roster(nil), guests...),
		contact:         contact,
		totalPrice:      totalPrice,
		currency:        strings.ToUpper(currency),
		capabilityToken: token,
		wholeProperty:   wholeProperty,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	status BookingStatus,
	entries []Entry,
	guests Roster,
	contact Contact,
	totalPrice int64,
	currency string,
	capabilityToken string,
	paid bool,
	wholeProperty bool,
	paidAt *time.Time,
	cancelledAt *time.Time,
	cancelNote string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		bookingNumber:   bookingNumber,
		status:          status,
		entries:         entries,
		guests:          guests,
		contact:         contact,
		totalPrice:      totalPrice,
		currency:        currency,
		capabilityToken: capabilityToken,
		paid:            paid,
		wholeProperty:   wholeProperty,
		paidAt:          paidAt,
		cancelledAt:     cancelledAt,
		cancelNote:      cancelNote,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Entries returns a copy of the booked rooms.
func (b *Booking) Entries() []Entry { return append([]Entry(nil), b.entries...) }

// Guests returns the aggregate guest roster.
func (b *Booking) Guests() Roster { return append(Roster(nil), b.guests...) }

// Contact returns the contact details.
func (b *Booking) Contact() Contact { return b.contact }

// TotalPrice returns the total price in whole currency units.
func (b *Booking) TotalPrice() int64 { return b.totalPrice }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// CapabilityToken returns the self-service token.
func (b *Booking) CapabilityToken() string { return b.capabilityToken }

// Paid reports whether payment was received.
func (b *Booking) Paid() bool { return b.paid }

// WholeProperty reports whether the booking covers every room.
func (b *Booking) WholeProperty() bool { return b.wholeProperty }

// PaidAt returns when payment was recorded.
func (b *Booking) PaidAt() *time.Time { return b.paidAt }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// RoomIDs returns the rooms of the booking in entry order.
func (b *Booking) RoomIDs() []string {
	ids := make([]string, len(b.entries))
	for i, e := range b.entries {
		ids[i] = e.RoomID
	}
	return ids
}

// --- Behavior ---

// MarkPaid records payment. Marking an already paid booking is a no-op.
func (b *Booking) MarkPaid(now time.Time) error {
	if b.status == StatusCancelled {
		return domain.NewValidationError("a cancelled booking cannot be marked paid")
	}
	if b.paid {
		return nil
	}
	now = now.UTC()
	b.paid = true
	b.paidAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to cancelled, releasing its dates.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.status.CanTransitionTo(StatusCancelled) {
		return domain.NewValidationError(fmt.Sprintf("cannot cancel a booking in status %s", b.status))
	}
	now = now.UTC()
	b.status = StatusCancelled
	b.cancelNote = reason
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}
