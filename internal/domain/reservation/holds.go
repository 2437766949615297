package reservation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HoldPolicy configures hold lifetime and whole-property guest limits.
// Retention keeps expired holds for that long before Sweep deletes them, so
// checkout can still name a room whose hold lapsed.
type HoldPolicy struct {
	TTL       time.Duration
	Retention time.Duration
	Bulk      booking.GuestLimits
}

// HoldStore manages provisional holds. Every check-then-write runs inside
// one store Write so two sessions can never hold the same night.
type HoldStore struct {
	store    Store
	catalog  *property.Catalog
	resolver *ConflictResolver
	clock    *ClockPolicy
	policy   HoldPolicy
	logger   *zap.Logger
}

// NewHoldStore creates a new HoldStore.
func NewHoldStore(store Store, catalog *property.Catalog, resolver *ConflictResolver, clock *ClockPolicy, policy HoldPolicy, logger *zap.Logger) *HoldStore {
	if policy.TTL <= 0 {
		policy.TTL = hold.DefaultTTL
	}
	if policy.Retention < 0 {
		policy.Retention = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoldStore{
		store:    store,
		catalog:  catalog,
		resolver: resolver,
		clock:    clock,
		policy:   policy,
		logger:   logger,
	}
}

// TTL returns the hold lifetime.
func (s *HoldStore) TTL() time.Duration { return s.policy.TTL }

// Create places a hold on one room.
func (s *HoldStore) Create(ctx context.Context, sessionID, roomID string, st stay.Range, guests booking.Roster, code string) (*hold.Hold, error) {
	room, err := s.validateSingle(sessionID, roomID, st, guests)
	if err != nil {
		return nil, err
	}

	var created *hold.Hold
	err = s.store.Write(ctx, []string{room.ID}, func(tx Tx) error {
		now := s.clock.Now()
		own, err := s.sessionHolds(ctx, tx, sessionID, now)
		if err != nil {
			return err
		}
		for _, h := range own {
			if h.IsBulk() {
				return domain.NewValidationError("the session holds the whole property; release it before holding single rooms")
			}
			if h.RoomID == room.ID {
				return domain.NewValidationError(fmt.Sprintf("room %s is already held by this session; update hold %s instead", room.ID, h.ID))
			}
		}

		if err := s.resolver.Check(ctx, tx, room.ID, st, sessionID); err != nil {
			return err
		}

		created = hold.New(sessionID, room.ID, st, guests, code, now, s.policy.TTL)
		return tx.SaveHold(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("hold placed",
		zap.String("hold_id", created.ID.String()),
		zap.String("room_id", created.RoomID),
		zap.String("stay", created.Stay.String()),
	)
	return created, nil
}

// CreateBulk holds every room of the property for one stay. The holds share
// a bulk group and each carries the whole roster.
func (s *HoldStore) CreateBulk(ctx context.Context, sessionID string, st stay.Range, guests booking.Roster, code string) ([]*hold.Hold, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session is required")
	}
	if err := s.validateStay(st); err != nil {
		return nil, err
	}
	if err := guests.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if err := s.policy.Bulk.Check(guests.Count()); err != nil {
		return nil, err
	}
	if len(s.catalog.Rooms) == 0 {
		return nil, domain.NewValidationError("the property has no rooms")
	}

	roomIDs := s.catalog.RoomIDs()
	var created []*hold.Hold
	err := s.store.Write(ctx, roomIDs, func(tx Tx) error {
		now := s.clock.Now()
		own, err := s.sessionHolds(ctx, tx, sessionID, now)
		if err != nil {
			return err
		}
		if len(own) > 0 {
			return domain.NewValidationError("release the session's existing holds before holding the whole property")
		}

		if err := s.resolver.CheckRooms(ctx, tx, roomIDs, st, sessionID); err != nil {
			return err
		}

		group := uuid.New()
		created = make([]*hold.Hold, 0, len(roomIDs))
		for _, roomID := range roomIDs {
			h := hold.New(sessionID, roomID, st, guests, code, now, s.policy.TTL)
			g := group
			h.BulkGroup = &g
			if err := tx.SaveHold(ctx, h); err != nil {
				return err
			}
			created = append(created, h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("bulk hold placed",
		zap.String("bulk_group", created[0].BulkGroup.String()),
		zap.Int("rooms", len(created)),
		zap.String("stay", st.String()),
	)
	return created, nil
}

// Update changes the stay and roster of a single-room hold. The old hold is
// replaced in one transaction and survives if the new stay is rejected.
func (s *HoldStore) Update(ctx context.Context, sessionID string, holdID uuid.UUID, st stay.Range, guests booking.Roster) (*hold.Hold, error) {
	current, err := s.find(ctx, sessionID, holdID)
	if err != nil {
		return nil, err
	}
	if current.IsBulk() {
		return nil, domain.NewValidationError("whole-property holds cannot be updated room by room; release and hold again")
	}
	room, err := s.validateSingle(sessionID, current.RoomID, st, guests)
	if err != nil {
		return nil, err
	}

	var updated *hold.Hold
	err = s.store.Write(ctx, []string{room.ID}, func(tx Tx) error {
		now := s.clock.Now()
		own, err := s.sessionHolds(ctx, tx, sessionID, now)
		if err != nil {
			return err
		}
		old := findHold(own, holdID)
		if old == nil {
			return domain.NewNotFoundError("hold", holdID.String())
		}
		if err := tx.DeleteHold(ctx, old.ID); err != nil {
			return err
		}
		if err := s.resolver.Check(ctx, tx, room.ID, st, sessionID); err != nil {
			return err
		}

		updated = hold.New(sessionID, room.ID, st, guests, old.AccessCode, now, s.policy.TTL)
		updated.ID = old.ID
		return tx.SaveHold(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete releases a hold. Releasing one hold of a bulk group releases the
// whole group. Expired holds not yet swept can be released too. Holds of
// other sessions are reported as not found.
func (s *HoldStore) Delete(ctx context.Context, sessionID string, holdID uuid.UUID) ([]*hold.Hold, error) {
	target, err := s.findAny(ctx, sessionID, holdID)
	if err != nil {
		return nil, err
	}

	roomIDs := []string{target.RoomID}
	if target.IsBulk() {
		roomIDs = s.catalog.RoomIDs()
	}

	var released []*hold.Hold
	err = s.store.Write(ctx, roomIDs, func(tx Tx) error {
		own, err := tx.SessionHolds(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session holds: %w", err)
		}
		h := findHold(own, holdID)
		if h == nil {
			return domain.NewNotFoundError("hold", holdID.String())
		}
		for _, o := range own {
			if o.ID == h.ID || (h.IsBulk() && o.IsBulk() && *o.BulkGroup == *h.BulkGroup) {
				if err := tx.DeleteHold(ctx, o.ID); err != nil {
					return err
				}
				released = append(released, o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// List returns the session's live holds, oldest first.
func (s *HoldStore) List(ctx context.Context, sessionID string) ([]*hold.Hold, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session is required")
	}
	var holds []*hold.Hold
	err := s.store.Read(ctx, func(r Reader) error {
		var err error
		holds, err = s.sessionHolds(ctx, r, sessionID, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(holds, func(i, j int) bool {
		if holds[i].CreatedAt.Equal(holds[j].CreatedAt) {
			return holds[i].RoomID < holds[j].RoomID
		}
		return holds[i].CreatedAt.Before(holds[j].CreatedAt)
	})
	return holds, nil
}

// Sweep deletes holds that expired more than the retention period ago.
// Expired holds never block a room, so sweeping only reclaims storage.
func (s *HoldStore) Sweep(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredHolds(ctx, s.clock.Now().Add(-s.policy.Retention))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired holds: %w", err)
	}
	return n, nil
}

// Run sweeps expired holds every interval until ctx is cancelled.
func (s *HoldStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("hold sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired holds swept", zap.Int("count", n))
			}
		}
	}
}

func (s *HoldStore) validateSingle(sessionID, roomID string, st stay.Range, guests booking.Roster) (property.Room, error) {
	if sessionID == "" {
		return property.Room{}, domain.NewValidationError("session is required")
	}
	room, ok := s.catalog.Room(roomID)
	if !ok {
		return property.Room{}, domain.NewNotFoundError("room", roomID)
	}
	if err := s.validateStay(st); err != nil {
		return property.Room{}, err
	}
	if err := guests.Validate(); err != nil {
		return property.Room{}, domain.NewValidationError(err.Error())
	}
	if guests.Count() > room.Capacity {
		return property.Room{}, domain.NewCapacityError(room.ID, guests.Count(), room.Capacity)
	}
	return room, nil
}

// validateStay rejects malformed stays and check-ins before today.
func (s *HoldStore) validateStay(st stay.Range) error {
	if err := st.Validate(); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return checkNotPast(st, s.clock)
}

// checkNotPast rejects a stay whose check-in is before the property's today.
func checkNotPast(st stay.Range, clock *ClockPolicy) error {
	if today := clock.Today(); st.Start.Before(today) {
		return domain.NewValidationError(fmt.Sprintf("check-in %s is in the past (today is %s)", st.Start, today))
	}
	return nil
}

// find locates a live hold owned by the session.
func (s *HoldStore) find(ctx context.Context, sessionID string, holdID uuid.UUID) (*hold.Hold, error) {
	return s.lookup(ctx, sessionID, holdID, true)
}

// findAny locates a hold owned by the session, expired or not.
func (s *HoldStore) findAny(ctx context.Context, sessionID string, holdID uuid.UUID) (*hold.Hold, error) {
	return s.lookup(ctx, sessionID, holdID, false)
}

func (s *HoldStore) lookup(ctx context.Context, sessionID string, holdID uuid.UUID, liveOnly bool) (*hold.Hold, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session is required")
	}
	var found *hold.Hold
	err := s.store.Read(ctx, func(r Reader) error {
		own, err := r.SessionHolds(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session holds: %w", err)
		}
		if liveOnly {
			own = hold.Live(own, s.clock.Now())
		}
		found = findHold(own, holdID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domain.NewNotFoundError("hold", holdID.String())
	}
	return found, nil
}

func (s *HoldStore) sessionHolds(ctx context.Context, r Reader, sessionID string, now time.Time) ([]*hold.Hold, error) {
	holds, err := r.SessionHolds(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session holds: %w", err)
	}
	return hold.Live(holds, now), nil
}

func findHold(holds []*hold.Hold, id uuid.UUID) *hold.Hold {
	for _, h := range holds {
		if h.ID == id {
			return h
		}
	}
	return nil
}
