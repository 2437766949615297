package booking

import (
	"fmt"

	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
)

// AgeClass is the pricing age bracket of a guest.
type AgeClass string

const (
	AgeAdult   AgeClass = "adult"
	AgeChild   AgeClass = "child"
	AgeToddler AgeClass = "toddler"
)

// IsValid returns true if the age class is recognized.
func (a AgeClass) IsValid() bool {
	switch a {
	case AgeAdult, AgeChild, AgeToddler:
		return true
	}
	return false
}

// Guest is one person staying, with their own rate tier.
type Guest struct {
	Name     string        `json:"name,omitempty"`
	AgeClass AgeClass      `json:"age_class"`
	Tier     property.Tier `json:"tier"`
}

// Roster is the list of guests of a room or of a whole booking.
type Roster []Guest

// Validate checks that the roster is non-empty and every guest is well formed.
func (r Roster) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("at least one guest is required")
	}
	for i, g := range r {
		if !g.AgeClass.IsValid() {
			return fmt.Errorf("guest %d: invalid age class %q", i+1, g.AgeClass)
		}
		if !g.Tier.IsValid() {
			return fmt.Errorf("guest %d: invalid tier %q", i+1, g.Tier)
		}
	}
	return nil
}

// Count returns the number of guests, toddlers included.
func (r Roster) Count() int { return len(r) }

// Counts returns the number of adults, children and toddlers.
func (r Roster) Counts() (adults, children, toddlers int) {
	for _, g := range r {
		switch g.AgeClass {
		case AgeAdult:
			adults++
		case AgeChild:
			children++
		case AgeToddler:
			toddlers++
		}
	}
	return adults, children, toddlers
}

// Tiers returns the distinct tiers present, in first-seen order.
func (r Roster) Tiers() []property.Tier {
	seen := make(map[property.Tier]bool)
	var out []property.Tier
	for _, g := range r {
		if !seen[g.Tier] {
			seen[g.Tier] = true
			out = append(out, g.Tier)
		}
	}
	return out
}

// payingTiers returns the distinct tiers of adults and children.
func (r Roster) payingTiers() []property.Tier {
	paying := make(Roster, 0, len(r))
	for _, g := range r {
		if g.AgeClass != AgeToddler {
			paying = append(paying, g)
		}
	}
	return paying.Tiers()
}

// Contact is who to reach about a booking.
type Contact struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Notes string `json:"notes,omitempty" validate:"max=1000"`
}
