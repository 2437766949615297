package booking

import (
	"fmt"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
)

// PricingStrategy defines the interface for calculating stay prices.
type PricingStrategy interface {
	// Price returns the price of one room for the given nights and roster.
	Price(nights int, roster Roster, rates property.RateCard) (int64, error)

	// PriceBulk returns the price of a whole-property stay.
	PriceBulk(nights int, roster Roster, baseFee int64, rates property.RateCard) (int64, error)
}

// BaseTierPolicy selects which tier's base fee a room pays when its roster
// mixes tiers. The base fee is charged once per room and night, never per guest.
type BaseTierPolicy string

const (
	// BaseTierCheapest charges the lowest base fee among the tiers present.
	BaseTierCheapest BaseTierPolicy = "cheapest"
	// BaseTierInternal always charges the internal tier's base fee.
	BaseTierInternal BaseTierPolicy = "internal"
	// BaseTierExternal always charges the external tier's base fee.
	BaseTierExternal BaseTierPolicy = "external"
)

// IsValid returns true if the policy is recognized.
func (p BaseTierPolicy) IsValid() bool {
	switch p {
	case BaseTierCheapest, BaseTierInternal, BaseTierExternal:
		return true
	}
	return false
}

// GuestLimits bounds the guest count of a whole-property request.
type GuestLimits struct {
	Floor   int
	Ceiling int
}

// Check returns a validation error when count is outside [Floor, Ceiling].
func (l GuestLimits) Check(count int) error {
	if l.Floor > 0 && count < l.Floor {
		return domain.NewValidationError(fmt.Sprintf("whole-property stays need at least %d guests, got %d", l.Floor, count))
	}
	if l.Ceiling > 0 && count > l.Ceiling {
		return domain.NewValidationError(fmt.Sprintf("whole-property stays allow at most %d guests, got %d", l.Ceiling, count))
	}
	return nil
}

// StandardPricingStrategy implements nightly per-guest pricing.
type StandardPricingStrategy struct {
	baseTier BaseTierPolicy
	bulk     GuestLimits
}

// NewStandardPricingStrategy creates a new StandardPricingStrategy.
func NewStandardPricingStrategy(baseTier BaseTierPolicy, bulk GuestLimits) *StandardPricingStrategy {
	if !baseTier.IsValid() {
		baseTier = BaseTierCheapest
	}
	return &StandardPricingStrategy{baseTier: baseTier, bulk: bulk}
}

// Price computes a room price.
//
// Pricing formula, per night:
//   - one room base fee, picked by the base tier policy
//   - each adult's surcharge at their own tier
//   - each child's surcharge at their own tier
//   - toddlers are free
func (s *StandardPricingStrategy) Price(nights int, roster Roster, rates property.RateCard) (int64, error) {
	if nights <= 0 {
		return 0, domain.NewValidationError("a stay needs at least one night")
	}
	if err := roster.Validate(); err != nil {
		return 0, domain.NewValidationError(err.Error())
	}

	base, err := s.roomBase(roster, rates)
	if err != nil {
		return 0, err
	}
	guests, err := guestSurcharges(roster, rates)
	if err != nil {
		return 0, err
	}
	return int64(nights) * (base + guests), nil
}

// PriceBulk computes a whole-property price: per night one flat base fee
// plus every guest's surcharge. The guest count must lie within the bulk
// limits; it is never clamped here.
func (s *StandardPricingStrategy) PriceBulk(nights int, roster Roster, baseFee int64, rates property.RateCard) (int64, error) {
	if nights <= 0 {
		return 0, domain.NewValidationError("a stay needs at least one night")
	}
	if err := roster.Validate(); err != nil {
		return 0, domain.NewValidationError(err.Error())
	}
	if err := s.bulk.Check(roster.Count()); err != nil {
		return 0, err
	}
	if baseFee < 0 {
		return 0, domain.NewValidationError("bulk base fee cannot be negative")
	}

	guests, err := guestSurcharges(roster, rates)
	if err != nil {
		return 0, err
	}
	return int64(nights) * (baseFee + guests), nil
}

func (s *StandardPricingStrategy) roomBase(roster Roster, rates property.RateCard) (int64, error) {
	switch s.baseTier {
	case BaseTierInternal, BaseTierExternal:
		r, ok := rates[property.Tier(s.baseTier)]
		if !ok {
			return 0, domain.NewValidationError(fmt.Sprintf("no %s rates configured", s.baseTier))
		}
		return r.Base, nil
	}

	// Toddlers never influence the price, including the choice of base tier.
	tiers := roster.payingTiers()
	if len(tiers) == 0 {
		tiers = roster.Tiers()
	}

	var (
		base  int64
		found bool
	)
	for _, tier := range tiers {
		r, ok := rates[tier]
		if !ok {
			return 0, domain.NewValidationError(fmt.Sprintf("no %s rates configured", tier))
		}
		if !found || r.Base < base {
			base = r.Base
			found = true
		}
	}
	return base, nil
}

func guestSurcharges(roster Roster, rates property.RateCard) (int64, error) {
	var total int64
	for _, g := range roster {
		if g.AgeClass == AgeToddler {
			continue
		}
		r, ok := rates[g.Tier]
		if !ok {
			return 0, domain.NewValidationError(fmt.Sprintf("no %s rates configured", g.Tier))
		}
		switch g.AgeClass {
		case AgeAdult:
			total += r.Adult
		case AgeChild:
			total += r.Child
		}
	}
	return total, nil
}
