package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
)

var (
	_ reservation.Store               = (*MemoryStore)(nil)
	_ bookingDomain.BookingRepository = (*MemoryStore)(nil)
	_ property.BlockRepository        = (*MemoryStore)(nil)
)

// MemoryStore keeps all reservation state in process memory behind one
// mutex. Write holds the lock for the whole callback, which serializes every
// check-then-act.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*bookingDomain.Booking
	holds    map[uuid.UUID]*hold.Hold
	blocks   map[uuid.UUID]property.Block
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[uuid.UUID]*bookingDomain.Booking),
		holds:    make(map[uuid.UUID]*hold.Hold),
		blocks:   make(map[uuid.UUID]property.Block),
	}
}

// Read runs fn under a shared lock.
func (s *MemoryStore) Read(ctx context.Context, fn func(reservation.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{store: s})
}

// Write runs fn under the exclusive lock. Changes are staged and applied
// only if fn returns nil.
func (s *MemoryStore) Write(ctx context.Context, _ []string, fn func(reservation.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:        s,
		savedHolds:   make(map[uuid.UUID]*hold.Hold),
		deletedHolds: make(map[uuid.UUID]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id := range tx.deletedHolds {
		delete(s.holds, id)
	}
	for id, h := range tx.savedHolds {
		s.holds[id] = h
	}
	for _, b := range tx.savedBookings {
		s.bookings[b.ID()] = b
	}
	return nil
}

// DeleteExpiredHolds removes holds that expired at or before now.
func (s *MemoryStore) DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, h := range s.holds {
		if !h.IsLive(now) {
			delete(s.holds, id)
			n++
		}
	}
	return n, nil
}

// --- BookingRepository ---

// FindByID retrieves a booking by its unique identifier.
func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("booking", id.String())
	}
	return cloneBooking(b), nil
}

// FindByToken retrieves a booking by its capability token.
func (s *MemoryStore) FindByToken(ctx context.Context, token string) (*bookingDomain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bookings {
		if token != "" && b.CapabilityToken() == token {
			return cloneBooking(b), nil
		}
	}
	return nil, domain.NewNotFoundError("booking", "for token")
}

// ListAll retrieves all bookings, newest first, with pagination.
func (s *MemoryStore) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*bookingDomain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt().Equal(all[j].CreatedAt()) {
			return all[i].BookingNumber() < all[j].BookingNumber()
		}
		return all[i].CreatedAt().After(all[j].CreatedAt())
	})

	total := int64(len(all))
	offset := (page - 1) * limit
	if offset < 0 || offset >= len(all) {
		return []*bookingDomain.Booking{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]*bookingDomain.Booking, 0, end-offset)
	for _, b := range all[offset:end] {
		out = append(out, cloneBooking(b))
	}
	return out, total, nil
}

// CountByStatus returns booking counts grouped by status.
func (s *MemoryStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, b := range s.bookings {
		counts[string(b.Status())]++
	}
	return counts, nil
}

// Update persists a changed booking. The caller increments the version
// first; the stored version must be exactly one behind.
func (s *MemoryStore) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("booking", bk.ID().String())
	}
	if stored.Version() != bk.Version()-1 {
		return domain.NewStaleError("booking")
	}
	s.bookings[bk.ID()] = cloneBooking(bk)
	return nil
}

// --- BlockRepository ---

// ListBlocks returns every block ordered by start date.
func (s *MemoryStore) ListBlocks(ctx context.Context) ([]property.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]property.Block, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, b)
	}
	sortBlocks(out)
	return out, nil
}

// SaveBlock stores a block.
func (s *MemoryStore) SaveBlock(ctx context.Context, block property.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks[block.ID] = block
	return nil
}

// DeleteBlock removes a block.
func (s *MemoryStore) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[id]; !ok {
		return domain.NewNotFoundError("block", id.String())
	}
	delete(s.blocks, id)
	return nil
}

// memTx reads committed state overlaid with the transaction's own writes.
type memTx struct {
	store         *MemoryStore
	savedHolds    map[uuid.UUID]*hold.Hold
	deletedHolds  map[uuid.UUID]bool
	savedBookings []*bookingDomain.Booking
}

func (t *memTx) EntriesForRoom(ctx context.Context, roomID string, window stay.Range) ([]bookingDomain.Entry, error) {
	var out []bookingDomain.Entry
	collect := func(b *bookingDomain.Booking) {
		if !b.Status().HoldsDates() {
			return
		}
		for _, e := range b.Entries() {
			if e.RoomID == roomID && touches(e.Stay.Start, e.Stay.End, window) {
				out = append(out, e)
			}
		}
	}
	for _, b := range t.store.bookings {
		collect(b)
	}
	for _, b := range t.savedBookings {
		collect(b)
	}
	return out, nil
}

func (t *memTx) BlocksForRoom(ctx context.Context, roomID string, window stay.Range) ([]property.Block, error) {
	var out []property.Block
	for _, b := range t.store.blocks {
		if b.AppliesTo(roomID) && touches(b.Start, b.End, window) {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out, nil
}

func (t *memTx) HoldsForRoom(ctx context.Context, roomID string, window stay.Range) ([]*hold.Hold, error) {
	return t.holds(func(h *hold.Hold) bool {
		return h.RoomID == roomID && touches(h.Stay.Start, h.Stay.End, window)
	}), nil
}

func (t *memTx) SessionHolds(ctx context.Context, sessionID string) ([]*hold.Hold, error) {
	return t.holds(func(h *hold.Hold) bool { return h.OwnedBy(sessionID) }), nil
}

func (t *memTx) SaveHold(ctx context.Context, h *hold.Hold) error {
	c := cloneHold(h)
	delete(t.deletedHolds, c.ID)
	t.savedHolds[c.ID] = c
	return nil
}

func (t *memTx) DeleteHold(ctx context.Context, id uuid.UUID) error {
	delete(t.savedHolds, id)
	t.deletedHolds[id] = true
	return nil
}

func (t *memTx) SaveBooking(ctx context.Context, b *bookingDomain.Booking) error {
	t.savedBookings = append(t.savedBookings, cloneBooking(b))
	return nil
}

func (t *memTx) holds(match func(*hold.Hold) bool) []*hold.Hold {
	var out []*hold.Hold
	for id, h := range t.store.holds {
		if t.deletedHolds[id] {
			continue
		}
		if _, staged := t.savedHolds[id]; staged {
			continue
		}
		if match(h) {
			out = append(out, cloneHold(h))
		}
	}
	for _, h := range t.savedHolds {
		if match(h) {
			out = append(out, cloneHold(h))
		}
	}
	return out
}

// touches reports whether [start, end] meets the window, both ends included.
func touches(start, end stay.Date, window stay.Range) bool {
	return !start.After(window.End) && !end.Before(window.Start)
}

func sortBlocks(blocks []property.Block) {
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Start.Equal(blocks[j].Start) {
			return blocks[i].ID.String() < blocks[j].ID.String()
		}
		return blocks[i].Start.Before(blocks[j].Start)
	})
}

func cloneHold(h *hold.Hold) *hold.Hold {
	c := *h
	c.Guests = append(bookingDomain.Roster(nil), h.Guests...)
	if h.BulkGroup != nil {
		g := *h.BulkGroup
		c.BulkGroup = &g
	}
	return &c
}

func cloneBooking(b *bookingDomain.Booking) *bookingDomain.Booking {
	return bookingDomain.ReconstructBooking(
		b.ID(),
		b.BookingNumber(),
		b.Status(),
		b.Entries(),
		b.Guests(),
		b.Contact(),
		b.TotalPrice(),
		b.Currency(),
		b.CapabilityToken(),
		b.Paid(),
		b.WholeProperty(),
		b.PaidAt(),
		b.CancelledAt(),
		b.CancelNote(),
		b.Version(),
		b.CreatedAt(),
		b.UpdatedAt(),
	)
}
