package reservation

import (
	"sync"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
)

// Clock supplies the current time. Production code uses RealClock; tests
// use FakeClock for deterministic time control.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now returns time.Now.
func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is a settable Clock. Safe for concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a FakeClock frozen at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the frozen time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// CutoffRule places the yearly cutoff relative to a season's anchor year:
// the cutoff is Month/Day of AnchorYear+YearOffset.
type CutoffRule struct {
	Month      time.Month
	Day        int
	YearOffset int
}

// DefaultCutoffRule is October 1 of the year before the season's anchor year.
var DefaultCutoffRule = CutoffRule{Month: time.October, Day: 1, YearOffset: -1}

// ClockPolicy is the single source of "now" and of cutoff dates.
type ClockPolicy struct {
	clock Clock
	rule  CutoffRule
	loc   *time.Location
}

// NewClockPolicy builds a ClockPolicy. A nil loc means UTC.
func NewClockPolicy(clock Clock, rule CutoffRule, loc *time.Location) *ClockPolicy {
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if rule.Month == 0 || rule.Day == 0 {
		rule = DefaultCutoffRule
	}
	return &ClockPolicy{clock: clock, rule: rule, loc: loc}
}

// Now returns the current instant in the property's location.
func (p *ClockPolicy) Now() time.Time {
	return p.clock.Now().In(p.loc)
}

// Today returns the current calendar date at the property.
func (p *ClockPolicy) Today() stay.Date {
	return stay.DateOf(p.Now())
}

// CutoffFor returns the instant at which the season's access-code
// requirement relaxes for single rooms and bulk requests close.
func (p *ClockPolicy) CutoffFor(s property.Season) time.Time {
	year := s.AnchorYear() + p.rule.YearOffset
	return time.Date(year, p.rule.Month, p.rule.Day, 0, 0, 0, 0, p.loc)
}

// BeforeCutoff reports whether now is strictly before the season's cutoff.
func (p *ClockPolicy) BeforeCutoff(s property.Season, now time.Time) bool {
	return now.Before(p.CutoffFor(s))
}
