package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	_ reservation.Store               = (*GormStore)(nil)
	_ bookingDomain.BookingRepository = (*GormBookingRepository)(nil)
	_ property.BlockRepository        = (*GormBlockRepository)(nil)
)

// GormStore is the PostgreSQL implementation of reservation.Store.
//
// Write opens a transaction and locks the room_locks rows of the involved
// rooms, in sorted order, before running the callback. Two writers touching
// a common room therefore run one after the other.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// EnsureRooms creates the lock row of every room that does not have one.
func (s *GormStore) EnsureRooms(ctx context.Context, roomIDs []string) error {
	if len(roomIDs) == 0 {
		return nil
	}
	locks := make([]RoomLockModel, len(roomIDs))
	for i, id := range roomIDs {
		locks[i] = RoomLockModel{RoomID: id}
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&locks).Error; err != nil {
		return fmt.Errorf("failed to seed room locks: %w", err)
	}
	return nil
}

// Read runs fn inside a read-only repeatable-read transaction.
func (s *GormStore) Read(ctx context.Context, fn func(reservation.Reader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// Write runs fn inside a transaction holding row locks on roomIDs.
func (s *GormStore) Write(ctx context.Context, roomIDs []string, fn func(reservation.Tx) error) error {
	ids := uniqueSorted(roomIDs)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			var locks []RoomLockModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("room_id IN ?", ids).
				Order("room_id").
				Find(&locks).Error; err != nil {
				return fmt.Errorf("failed to lock rooms: %w", err)
			}
			if len(locks) != len(ids) {
				return fmt.Errorf("failed to lock rooms: %d of %d lock rows present", len(locks), len(ids))
			}
		}
		return fn(&gormTx{db: tx})
	})
}

// DeleteExpiredHolds removes holds that expired at or before now.
func (s *GormStore) DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&HoldModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired holds: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// gormTx implements reservation.Tx on one *gorm.DB transaction.
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) EntriesForRoom(ctx context.Context, roomID string, window stay.Range) ([]bookingDomain.Entry, error) {
	var models []BookingEntryModel
	if err := t.db.WithContext(ctx).
		Model(&BookingEntryModel{}).
		Select("booking_entries.*").
		Joins("JOIN bookings ON bookings.id = booking_entries.booking_id").
		Where("booking_entries.room_id = ? AND bookings.status = ?", roomID, string(bookingDomain.StatusConfirmed)).
		Where("booking_entries.check_in <= ? AND booking_entries.check_out >= ?", window.End.Time(), window.Start.Time()).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query booking entries: %w", err)
	}

	entries := make([]bookingDomain.Entry, 0, len(models))
	for i := range models {
		e, err := toDomainEntry(&models[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (t *gormTx) BlocksForRoom(ctx context.Context, roomID string, window stay.Range) ([]property.Block, error) {
	var models []BlockModel
	if err := t.db.WithContext(ctx).
		Where("room_id IN ?", []string{roomID, property.AllRooms}).
		Where("start_date <= ? AND end_date >= ?", window.End.Time(), window.Start.Time()).
		Order("start_date").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}

	blocks := make([]property.Block, len(models))
	for i := range models {
		blocks[i] = toDomainBlock(&models[i])
	}
	return blocks, nil
}

func (t *gormTx) HoldsForRoom(ctx context.Context, roomID string, window stay.Range) ([]*hold.Hold, error) {
	var models []HoldModel
	if err := t.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Where("check_in <= ? AND check_out >= ?", window.End.Time(), window.Start.Time()).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query holds: %w", err)
	}
	return toDomainHolds(models)
}

func (t *gormTx) SessionHolds(ctx context.Context, sessionID string) ([]*hold.Hold, error) {
	var models []HoldModel
	if err := t.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query session holds: %w", err)
	}
	return toDomainHolds(models)
}

func (t *gormTx) SaveHold(ctx context.Context, h *hold.Hold) error {
	model, err := toHoldModel(h)
	if err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save hold: %w", err)
	}
	return nil
}

func (t *gormTx) DeleteHold(ctx context.Context, id uuid.UUID) error {
	if err := t.db.WithContext(ctx).Where("id = ?", id).Delete(&HoldModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete hold: %w", err)
	}
	return nil
}

func (t *gormTx) SaveBooking(ctx context.Context, b *bookingDomain.Booking) error {
	model, err := toBookingModel(b)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

func toDomainHolds(models []HoldModel) ([]*hold.Hold, error) {
	holds := make([]*hold.Hold, 0, len(models))
	for i := range models {
		h, err := toDomainHold(&models[i])
		if err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
