// Package property describes the lodging property: rooms, rate cards,
// administrative blocks and restricted seasons. None of it is mutated by the
// reservation core.
package property

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/google/uuid"
)

// Tier is a guest rate classification.
type Tier string

const (
	TierInternal Tier = "internal"
	TierExternal Tier = "external"
)

// IsValid returns true if the tier is recognized.
func (t Tier) IsValid() bool {
	switch t {
	case TierInternal, TierExternal:
		return true
	}
	return false
}

// Rates are the per-night amounts of one tier.
type Rates struct {
	Base  int64 `json:"base" yaml:"base"`
	Adult int64 `json:"adult" yaml:"adult"`
	Child int64 `json:"child" yaml:"child"`
}

// RateCard maps each tier to its rates.
type RateCard map[Tier]Rates

// Room is a bookable unit.
type Room struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Rates    RateCard `json:"rates"`
}

// AllRooms is the block wildcard matching every room.
const AllRooms = "*"

// Block is an administrative closure of a room, or of every room, over an
// inclusive date interval.
type Block struct {
	ID        uuid.UUID `json:"id"`
	RoomID    string    `json:"room_id"`
	Start     stay.Date `json:"start"`
	End       stay.Date `json:"end"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBlock validates and builds a Block.
func NewBlock(roomID string, start, end stay.Date, reason string, now time.Time) (Block, error) {
	if roomID == "" {
		return Block{}, fmt.Errorf("room is required (use %q for every room)", AllRooms)
	}
	if start.IsZero() || end.IsZero() {
		return Block{}, fmt.Errorf("block start and end are required")
	}
	if end.Before(start) {
		return Block{}, fmt.Errorf("block end %s is before start %s", end, start)
	}
	return Block{
		ID:        uuid.New(),
		RoomID:    roomID,
		Start:     start,
		End:       end,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: now.UTC(),
	}, nil
}

// AppliesTo reports whether the block closes roomID.
func (b Block) AppliesTo(roomID string) bool {
	return b.RoomID == AllRooms || b.RoomID == roomID
}

// Covers reports whether d lies within the block, both ends included.
func (b Block) Covers(d stay.Date) bool {
	return !d.Before(b.Start) && !d.After(b.End)
}

// BlockRepository persists administrative blocks.
type BlockRepository interface {
	ListBlocks(ctx context.Context) ([]Block, error)
	SaveBlock(ctx context.Context, block Block) error
	DeleteBlock(ctx context.Context, id uuid.UUID) error
}

// Season is a restricted period, both ends included, opened early only to
// holders of one of its access codes.
type Season struct {
	Name  string    `json:"name"`
	Start stay.Date `json:"start"`
	End   stay.Date `json:"end"`
	Codes []string  `json:"-"`
	// Year is the year the cutoff rule is anchored to. Zero means the year of End.
	Year int `json:"year"`
}

// AnchorYear returns the year the cutoff rule is applied to.
func (s Season) AnchorYear() int {
	if s.Year != 0 {
		return s.Year
	}
	return s.End.Year()
}

// Intersects reports whether any night of r falls inside the season.
func (s Season) Intersects(r stay.Range) bool {
	return r.IntersectsClosed(s.Start, s.End)
}

// AcceptsCode reports whether code is one of the season's codes.
// Comparison ignores case and surrounding space.
func (s Season) AcceptsCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, c := range s.Codes {
		if strings.EqualFold(strings.TrimSpace(c), code) {
			return true
		}
	}
	return false
}

// Catalog is the static property configuration.
type Catalog struct {
	Currency  string
	Rooms     []Room
	BulkRates RateCard
	Seasons   []Season

	byID map[string]Room
}

// NewCatalog indexes rooms by ID and rejects duplicates.
func NewCatalog(currency string, rooms []Room, bulkRates RateCard, seasons []Season) (*Catalog, error) {
	byID := make(map[string]Room, len(rooms))
	for _, r := range rooms {
		if r.ID == "" || r.ID == AllRooms {
			return nil, fmt.Errorf("invalid room id %q", r.ID)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate room id %q", r.ID)
		}
		if r.Capacity <= 0 {
			return nil, fmt.Errorf("room %s: capacity must be positive", r.ID)
		}
		byID[r.ID] = r
	}
	sorted := make([]Room, len(rooms))
	copy(sorted, rooms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Catalog{
		Currency:  currency,
		Rooms:     sorted,
		BulkRates: bulkRates,
		Seasons:   seasons,
		byID:      byID,
	}, nil
}

// Room looks up a room by ID.
func (c *Catalog) Room(id string) (Room, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// RoomIDs returns every room ID in sorted order.
func (c *Catalog) RoomIDs() []string {
	ids := make([]string, len(c.Rooms))
	for i, r := range c.Rooms {
		ids[i] = r.ID
	}
	return ids
}
