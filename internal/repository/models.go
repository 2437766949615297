package repository

import (
	"encoding/json"
	"fmt"
	"time"

	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey"`
	BookingNumber   string              `gorm:"uniqueIndex;not null;size:20"`
	Status          string              `gorm:"not null;size:30;index"`
	Guests          json.RawMessage     `gorm:"type:jsonb;not null"`
	Contact         json.RawMessage     `gorm:"type:jsonb;not null"`
	TotalPrice      int64               `gorm:"not null"`
	Currency        string              `gorm:"not null;size:3"`
	CapabilityToken string              `gorm:"uniqueIndex;not null;size:64"`
	Paid            bool                `gorm:"not null;default:false"`
	WholeProperty   bool                `gorm:"not null;default:false"`
	PaidAt          *time.Time          `gorm:""`
	CancelledAt     *time.Time          `gorm:""`
	CancelNote      string              `gorm:"size:500"`
	Version         int64               `gorm:"not null;default:1"`
	CreatedAt       time.Time           `gorm:"not null;index"`
	UpdatedAt       time.Time           `gorm:"not null"`
	Entries         []BookingEntryModel `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// BookingEntryModel is one room of a booking.
type BookingEntryModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingID uuid.UUID       `gorm:"type:uuid;not null;index"`
	RoomID    string          `gorm:"not null;size:64;index:idx_entries_room_dates"`
	CheckIn   time.Time       `gorm:"type:date;not null;index:idx_entries_room_dates"`
	CheckOut  time.Time       `gorm:"type:date;not null;index:idx_entries_room_dates"`
	Guests    json.RawMessage `gorm:"type:jsonb"`
	Price     int64           `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingEntryModel) TableName() string {
	return "booking_entries"
}

// HoldModel is the GORM model for the holds table.
type HoldModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID  string          `gorm:"not null;size:128;index"`
	RoomID     string          `gorm:"not null;size:64;index:idx_holds_room_dates"`
	CheckIn    time.Time       `gorm:"type:date;not null;index:idx_holds_room_dates"`
	CheckOut   time.Time       `gorm:"type:date;not null;index:idx_holds_room_dates"`
	Guests     json.RawMessage `gorm:"type:jsonb;not null"`
	AccessCode string          `gorm:"size:128"`
	BulkGroup  *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt  time.Time       `gorm:"not null"`
	ExpiresAt  time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (HoldModel) TableName() string {
	return "holds"
}

// BlockModel is the GORM model for the blocks table.
type BlockModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    string    `gorm:"not null;size:64;index"`
	StartDate time.Time `gorm:"type:date;not null"`
	EndDate   time.Time `gorm:"type:date;not null"`
	Reason    string    `gorm:"size:500"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BlockModel) TableName() string {
	return "blocks"
}

// RoomLockModel is one row per room. Write transactions lock these rows
// to serialize changes to a room.
type RoomLockModel struct {
	RoomID string `gorm:"primaryKey;size:64"`
}

// TableName returns the table name for the GORM model.
func (RoomLockModel) TableName() string {
	return "room_locks"
}

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&BookingModel{},
		&BookingEntryModel{},
		&HoldModel{},
		&BlockModel{},
		&RoomLockModel{},
	}
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	guestsJSON, err := json.Marshal(bk.Guests())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal guests: %w", err)
	}
	contactJSON, err := json.Marshal(bk.Contact())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contact: %w", err)
	}

	entries := bk.Entries()
	entryModels := make([]BookingEntryModel, len(entries))
	for i, e := range entries {
		var entryGuests json.RawMessage
		if len(e.Guests) > 0 {
			data, err := json.Marshal(e.Guests)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal entry guests: %w", err)
			}
			entryGuests = data
		}
		entryModels[i] = BookingEntryModel{
			ID:        uuid.New(),
			BookingID: bk.ID(),
			RoomID:    e.RoomID,
			CheckIn:   e.Stay.Start.Time(),
			CheckOut:  e.Stay.End.Time(),
			Guests:    entryGuests,
			Price:     e.Price,
		}
	}

	return &BookingModel{
		ID:              bk.ID(),
		BookingNumber:   bk.BookingNumber(),
		Status:          string(bk.Status()),
		Guests:          guestsJSON,
		Contact:         contactJSON,
		TotalPrice:      bk.TotalPrice(),
		Currency:        bk.Currency(),
		CapabilityToken: bk.CapabilityToken(),
		Paid:            bk.Paid(),
		WholeProperty:   bk.WholeProperty(),
		PaidAt:          bk.PaidAt(),
		CancelledAt:     bk.CancelledAt(),
		CancelNote:      bk.CancelNote(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
		Entries:         entryModels,
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var guests bookingDomain.Roster
	if err := json.Unmarshal(m.Guests, &guests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guests: %w", err)
	}
	var contact bookingDomain.Contact
	if err := json.Unmarshal(m.Contact, &contact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
	}

	entries := make([]bookingDomain.Entry, len(m.Entries))
	for i := range m.Entries {
		e, err := toDomainEntry(&m.Entries[i])
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		status,
		entries,
		guests,
		contact,
		m.TotalPrice,
		m.Currency,
		m.CapabilityToken,
		m.Paid,
		m.WholeProperty,
		m.PaidAt,
		m.CancelledAt,
		m.CancelNote,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainEntry(m *BookingEntryModel) (bookingDomain.Entry, error) {
	var guests bookingDomain.Roster
	if len(m.Guests) > 0 {
		if err := json.Unmarshal(m.Guests, &guests); err != nil {
			return bookingDomain.Entry{}, fmt.Errorf("failed to unmarshal entry guests: %w", err)
		}
	}
	return bookingDomain.Entry{
		RoomID: m.RoomID,
		Stay:   stay.Range{Start: stay.DateOf(m.CheckIn), End: stay.DateOf(m.CheckOut)},
		Guests: guests,
		Price:  m.Price,
	}, nil
}

func toHoldModel(h *hold.Hold) (*HoldModel, error) {
	guestsJSON, err := json.Marshal(h.Guests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hold guests: %w", err)
	}
	return &HoldModel{
		ID:         h.ID,
		SessionID:  h.SessionID,
		RoomID:     h.RoomID,
		CheckIn:    h.Stay.Start.Time(),
		CheckOut:   h.Stay.End.Time(),
		Guests:     guestsJSON,
		AccessCode: h.AccessCode,
		BulkGroup:  h.BulkGroup,
		CreatedAt:  h.CreatedAt,
		ExpiresAt:  h.ExpiresAt,
	}, nil
}

func toDomainHold(m *HoldModel) (*hold.Hold, error) {
	var guests bookingDomain.Roster
	if err := json.Unmarshal(m.Guests, &guests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hold guests: %w", err)
	}
	return &hold.Hold{
		ID:         m.ID,
		SessionID:  m.SessionID,
		RoomID:     m.RoomID,
		Stay:       stay.Range{Start: stay.DateOf(m.CheckIn), End: stay.DateOf(m.CheckOut)},
		Guests:     guests,
		AccessCode: m.AccessCode,
		BulkGroup:  m.BulkGroup,
		CreatedAt:  m.CreatedAt.UTC(),
		ExpiresAt:  m.ExpiresAt.UTC(),
	}, nil
}

func toBlockModel(b property.Block) *BlockModel {
	return &BlockModel{
		ID:        b.ID,
		RoomID:    b.RoomID,
		StartDate: b.Start.Time(),
		EndDate:   b.End.Time(),
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
}

func toDomainBlock(m *BlockModel) property.Block {
	return property.Block{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Start:     stay.DateOf(m.StartDate),
		End:       stay.DateOf(m.EndDate),
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
