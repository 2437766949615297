package stay

import (
	"errors"
	"fmt"
)

// Range is a stay from check-in Start up to, but excluding, checkout End.
// Each date in [Start, End) is one occupied night.
type Range struct {
	Start Date `json:"check_in"`
	End   Date `json:"check_out"`
}

// NewRange builds and validates a Range.
func NewRange(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate checks that both ends are set and Start < End.
func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("check-in and check-out dates are required")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("check-out %s must be after check-in %s", r.End, r.Start)
	}
	return nil
}

// Nights returns the number of nights in the stay.
func (r Range) Nights() int {
	return r.Start.DaysUntil(r.End)
}

// Contains reports whether the night of d belongs to the stay.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

// Overlaps reports whether two stays share a night. Back-to-back stays,
// where one checks out on the day the other checks in, do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// IntersectsClosed reports whether any night of the stay falls inside the
// inclusive interval [from, to].
func (r Range) IntersectsClosed(from, to Date) bool {
	return !r.Start.After(to) && from.Before(r.End)
}

// Dates returns every night of the stay in order.
func (r Range) Dates() []Date {
	n := r.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]Date, 0, n)
	for d := r.Start; d.Before(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}
