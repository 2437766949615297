// Package messages defines the event contracts exchanged over Kafka.
package messages

import (
	"time"

	"github.com/google/uuid"
)

// Event source of everything this service publishes.
const Source = "service-reservation"

// Topics.
const (
	TopicReservationEvents = "reservation.events"
	TopicPaymentEvents     = "payment.events"
)

// Published event types.
const (
	HoldPlaced       = "hold.placed"
	HoldReleased     = "hold.released"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingPaid      = "booking.paid"
)

// Consumed event types.
const (
	PaymentReceived = "payment.received"
)

// HoldPlacedEvent is published for each new hold.
type HoldPlacedEvent struct {
	HoldID     uuid.UUID  `json:"hold_id"`
	RoomID     string     `json:"room_id"`
	CheckIn    string     `json:"check_in"`
	CheckOut   string     `json:"check_out"`
	BulkGroup  *uuid.UUID `json:"bulk_group,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// HoldReleasedEvent is published when a session releases holds.
type HoldReleasedEvent struct {
	HoldIDs    []uuid.UUID `json:"hold_ids"`
	RoomIDs    []string    `json:"room_ids"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// BookingConfirmedEvent is published when checkout commits a booking.
type BookingConfirmedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	RoomIDs       []string  `json:"room_ids"`
	WholeProperty bool      `json:"whole_property"`
	GuestCount    int       `json:"guest_count"`
	TotalPrice    int64     `json:"total_price"`
	Currency      string    `json:"currency"`
	ContactEmail  string    `json:"contact_email"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is published when a booking is cancelled.
type BookingCancelledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	RoomIDs       []string  `json:"room_ids"`
	Reason        string    `json:"reason,omitempty"`
	ByOperator    bool      `json:"by_operator"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingPaidEvent is published when a booking is marked paid.
type BookingPaidEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	Reference     string    `json:"reference,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentReceivedEvent is consumed from the payment topic.
type PaymentReceivedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	PaymentID  string    `json:"payment_id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}
