package pricing

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

// DiscountType names what makes a quote request eligible for a DiscountRule.
type DiscountType string

const (
	DiscountLoyalty  DiscountType = "LOYALTY"
	DiscountPromo    DiscountType = "PROMO"
	DiscountVolume   DiscountType = "VOLUME"
	DiscountSeasonal DiscountType = "SEASONAL"
)

// ErrInvalidDiscountRule is returned when a discount rule cannot be registered.
var ErrInvalidDiscountRule = errors.New("invalid discount rule")

// DiscountRule is a percentage off the subtotal.
//
// A LOYALTY rule applies to customers of its loyalty tier, a PROMO rule to requests naming its code,
// a VOLUME rule to rentals of at least MinRentalDays started days and a SEASONAL rule to every rental
// starting inside its validity window. Zero ValidFrom or ValidUntil leave that side open.
type DiscountRule struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Type          DiscountType `json:"type"`
	Percentage    float64      `json:"percentage"`
	PromoCode     string       `json:"promoCode,omitempty"`
	LoyaltyTier   string       `json:"loyaltyTier,omitempty"`
	MinRentalDays int          `json:"minRentalDays,omitempty"`
	ValidFrom     time.Time    `json:"validFrom"`
	ValidUntil    time.Time    `json:"validUntil"`
	Inactive      bool         `json:"inactive,omitempty"`
	Stackable     bool         `json:"stackable"`
	Priority      int          `json:"priority"`
}

func (r DiscountRule) validate() error {
	if r.Percentage < 0 || r.Percentage > 1 {
		return errors.Join(ErrInvalidDiscountRule, fmt.Errorf("rule %q percentage %v outside [0, 1]", r.Name, r.Percentage))
	}

	if !r.ValidFrom.IsZero() && !r.ValidUntil.IsZero() && r.ValidUntil.Before(r.ValidFrom) {
		return errors.Join(ErrInvalidDiscountRule, fmt.Errorf("rule %q ends before it starts", r.Name))
	}

	switch r.Type {
	case DiscountPromo:
		if normalizeCode(r.PromoCode) == "" {
			return errors.Join(ErrInvalidDiscountRule, fmt.Errorf("promo rule %q has no code", r.Name))
		}
	case DiscountLoyalty:
		if strings.TrimSpace(r.LoyaltyTier) == "" {
			return errors.Join(ErrInvalidDiscountRule, fmt.Errorf("loyalty rule %q has no tier", r.Name))
		}
	case DiscountVolume:
		if r.MinRentalDays <= 0 {
			return errors.Join(ErrInvalidDiscountRule, fmt.Errorf("volume rule %q needs a positive minimum of days", r.Name))
		}
	case DiscountSeasonal:
	default:
		return errors.Join(ErrInvalidDiscountRule, fmt.Errorf("rule %q has unknown type %q", r.Name, r.Type))
	}

	return nil
}

// activeAt reports whether the rule is switched on and t lies inside its validity window, bounds included.
func (r DiscountRule) activeAt(t time.Time) bool {
	if r.Inactive {
		return false
	}

	if !r.ValidFrom.IsZero() && t.Before(r.ValidFrom) {
		return false
	}

	return r.ValidUntil.IsZero() || !t.After(r.ValidUntil)
}

// eligible reports whether req qualifies for the rule. tier is the loyalty tier of req's customer.
func (r DiscountRule) eligible(req QuoteRequest, tier string) bool {
	if !r.activeAt(req.Window.Start()) {
		return false
	}

	switch r.Type {
	case DiscountPromo:
		return req.PromoCode != "" && normalizeCode(req.PromoCode) == normalizeCode(r.PromoCode)
	case DiscountLoyalty:
		return tier != "" && strings.EqualFold(tier, r.LoyaltyTier)
	case DiscountVolume:
		return rentalDays(req.Window) >= r.MinRentalDays
	case DiscountSeasonal:
		return true
	default:
		return false
	}
}

// ApplyDiscounts turns the eligible rules into discount lines on subtotal.
//
// When every rule is stackable, all of them apply in priority order, each computed on the
// undiscounted subtotal. A single non-stackable rule switches to best-single mode: only the rule
// with the highest percentage applies, the lower priority value winning a tie. Zero-percent rules
// never produce a line.
func ApplyDiscounts(rules []DiscountRule, subtotal booking.Money) []booking.DiscountLine {
	if len(rules) == 0 {
		return nil
	}

	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b DiscountRule) int { return cmp.Compare(a.Priority, b.Priority) })

	if slices.ContainsFunc(sorted, func(r DiscountRule) bool { return !r.Stackable }) {
		best := slices.MinFunc(sorted, func(a, b DiscountRule) int {
			if c := cmp.Compare(b.Percentage, a.Percentage); c != 0 {
				return c
			}

			return cmp.Compare(a.Priority, b.Priority)
		})

		if best.Percentage == 0 {
			return nil
		}

		return []booking.DiscountLine{discountLine(best, subtotal)}
	}

	lines := make([]booking.DiscountLine, 0, len(sorted))
	for _, rule := range sorted {
		if rule.Percentage > 0 {
			lines = append(lines, discountLine(rule, subtotal))
		}
	}

	return lines
}

// TotalDiscount sums the amounts of lines. The total never exceeds the subtotal.
func TotalDiscount(lines []booking.DiscountLine, subtotal booking.Money) booking.Money {
	total := booking.Money{Currency: subtotal.Currency}
	for _, line := range lines {
		total.AmountCents += line.Amount.AmountCents
	}

	total.AmountCents = min(total.AmountCents, subtotal.AmountCents)

	return total
}

func discountLine(rule DiscountRule, subtotal booking.Money) booking.DiscountLine {
	return booking.DiscountLine{
		RuleID:     rule.ID,
		Name:       rule.Name,
		Percentage: rule.Percentage,
		Amount: booking.Money{
			AmountCents: roundCents(float64(subtotal.AmountCents) * rule.Percentage),
			Currency:    subtotal.Currency,
		},
	}
}

// rentalDays counts started days of w.
func rentalDays(w booking.TimeRange) int {
	return int(math.Ceil(w.Duration().Hours() / 24))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
