package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/Facupelli/equipment-rental/booking"
)

var (
	// ErrNoRateCard is returned when no rate card exists for an equipment type and no default is set.
	ErrNoRateCard = errors.New("no rate card for equipment type")

	// ErrInvalidRateCard is returned when a rate card has negative rates or a tax rate outside [0, 1].
	ErrInvalidRateCard = errors.New("invalid rate card")

	// ErrUnknownPromoCode is returned when a quote request names a promo code that does not exist.
	ErrUnknownPromoCode = errors.New("unknown promo code")
)

// RateCard is the pricing rule of one equipment type. Amounts are per unit.
type RateCard struct {
	EquipmentTypeID uuid.UUID     `json:"equipmentTypeId"`
	HourlyRate      booking.Money `json:"hourlyRate"`
	DailyRate       booking.Money `json:"dailyRate"`
	MinimumCharge   booking.Money `json:"minimumCharge"`
	TaxRate         float64       `json:"taxRate"`
}

func (r RateCard) validate() error {
	if r.HourlyRate.AmountCents < 0 || r.DailyRate.AmountCents < 0 || r.MinimumCharge.AmountCents < 0 {
		return errors.Join(ErrInvalidRateCard, errors.New("rates must not be negative"))
	}

	if r.TaxRate < 0 || r.TaxRate > 1 {
		return errors.Join(ErrInvalidRateCard, fmt.Errorf("tax rate %v outside [0, 1]", r.TaxRate))
	}

	currency := r.DailyRate.Currency
	for _, m := range []booking.Money{r.HourlyRate, r.MinimumCharge} {
		if m.Currency != "" && currency != "" && m.Currency != currency {
			return errors.Join(ErrInvalidRateCard, booking.ErrCurrencyMismatch)
		}
	}

	return nil
}

// QuoteRequest carries the inputs of calculateQuote.
type QuoteRequest struct {
	EquipmentTypeID uuid.UUID
	Window          booking.TimeRange
	CustomerID      uuid.UUID
	PromoCode       string
	Quantity        int
}

// Calculator prices requests from rate cards. It is safe for concurrent use.
type Calculator struct {
	mu           sync.RWMutex
	cards        map[uuid.UUID]RateCard
	defaultCard  *RateCard
	rules        []DiscountRule
	loyaltyTiers map[uuid.UUID]string
	now          func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator) error

// WithRateCard registers the rate card of one equipment type.
func WithRateCard(card RateCard) Option {
	return func(c *Calculator) error {
		if err := card.validate(); err != nil {
			return err
		}

		c.cards[card.EquipmentTypeID] = card

		return nil
	}
}

// WithDefaultRateCard sets the card used for equipment types without their own card.
func WithDefaultRateCard(card RateCard) Option {
	return func(c *Calculator) error {
		if err := card.validate(); err != nil {
			return err
		}

		c.defaultCard = &card

		return nil
	}
}

// WithDiscountRule registers a discount rule. A rule without an ID gets a random one.
func WithDiscountRule(rule DiscountRule) Option {
	return func(c *Calculator) error {
		if err := rule.validate(); err != nil {
			return err
		}

		if rule.ID == uuid.Nil {
			rule.ID = uuid.New()
		}

		c.rules = append(c.rules, rule)

		return nil
	}
}

// WithPromoCode registers an always valid, stackable PROMO rule of the given percentage in [0, 1].
func WithPromoCode(code string, discount float64) Option {
	return WithDiscountRule(DiscountRule{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("promo:"+normalizeCode(code))),
		Name:       normalizeCode(code),
		Type:       DiscountPromo,
		Percentage: discount,
		PromoCode:  code,
		Stackable:  true,
	})
}

// WithLoyaltyTier sets the loyalty tier LOYALTY rules match the customer against.
func WithLoyaltyTier(customerID uuid.UUID, tier string) Option {
	return func(c *Calculator) error {
		c.loyaltyTiers[customerID] = strings.TrimSpace(tier)
		return nil
	}
}

// WithClock sets the clock stamped into CalculatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) error {
		c.now = now
		return nil
	}
}

// NewCalculator creates a Calculator.
func NewCalculator(options ...Option) (*Calculator, error) {
	c := &Calculator{
		cards:        make(map[uuid.UUID]RateCard),
		loyaltyTiers: make(map[uuid.UUID]string),
		now:          time.Now,
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// rateCardFile is the JSON layout read by LoadRateCards.
type rateCardFile struct {
	Default       *RateCard            `json:"default"`
	Cards         []RateCard           `json:"cards"`
	PromoCodes    map[string]float64   `json:"promoCodes"`
	DiscountRules []DiscountRule       `json:"discountRules"`
	LoyaltyTiers  map[uuid.UUID]string `json:"loyaltyTiers"`
}

// LoadRateCards reads rate cards, promo codes, discount rules and customer loyalty tiers
// from a JSON file and returns them as options.
func LoadRateCards(path string) ([]Option, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rate cards: %w", err)
	}

	var file rateCardFile
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &file); err != nil {
		return nil, errors.Join(ErrInvalidRateCard, err)
	}

	options := make([]Option, 0, len(file.Cards)+len(file.PromoCodes)+len(file.DiscountRules)+len(file.LoyaltyTiers)+1)
	if file.Default != nil {
		options = append(options, WithDefaultRateCard(*file.Default))
	}

	for _, card := range file.Cards {
		options = append(options, WithRateCard(card))
	}

	for code, discount := range file.PromoCodes {
		options = append(options, WithPromoCode(code, discount))
	}

	for _, rule := range file.DiscountRules {
		options = append(options, WithDiscountRule(rule))
	}

	for customerID, tier := range file.LoyaltyTiers {
		options = append(options, WithLoyaltyTier(customerID, tier))
	}

	return options, nil
}

// CalculateQuote prices req. The per-unit subtotal is the cheaper of hourly and daily billing,
// never below the minimum charge; it is multiplied by the quantity, discounted by the rules
// eligible at the rental start (see ApplyDiscounts), then taxed.
func (c *Calculator) CalculateQuote(_ context.Context, req QuoteRequest) (booking.Quote, error) {
	if req.Quantity <= 0 {
		return booking.Quote{}, booking.ErrNonPositiveQuantity
	}

	if req.Window.IsZero() {
		return booking.Quote{}, booking.ErrInvalidTimeRange
	}

	c.mu.RLock()
	card, ok := c.cards[req.EquipmentTypeID]
	if !ok && c.defaultCard != nil {
		card, ok = *c.defaultCard, true
	}

	tier := c.loyaltyTiers[req.CustomerID]
	promoKnown := false
	eligible := make([]DiscountRule, 0, len(c.rules))
	for _, rule := range c.rules {
		if rule.Type == DiscountPromo && normalizeCode(rule.PromoCode) == normalizeCode(req.PromoCode) {
			promoKnown = true
		}

		if rule.eligible(req, tier) {
			eligible = append(eligible, rule)
		}
	}
	c.mu.RUnlock()

	if !ok {
		return booking.Quote{}, errors.Join(ErrNoRateCard, fmt.Errorf("equipment type %s", req.EquipmentTypeID))
	}

	if strings.TrimSpace(req.PromoCode) != "" && !promoKnown {
		return booking.Quote{}, errors.Join(ErrUnknownPromoCode, fmt.Errorf("code %q", req.PromoCode))
	}

	currency := card.DailyRate.Currency
	if currency == "" {
		currency = booking.DefaultCurrency
	}

	// started days are billed in full
	hours := req.Window.Duration().Hours()
	hourly := roundCents(float64(card.HourlyRate.AmountCents) * hours)
	daily := roundCents(float64(card.DailyRate.AmountCents) * math.Ceil(hours/24))

	perUnit, baseRate, unit := hourly, card.HourlyRate.AmountCents, "hour"
	if daily < hourly {
		perUnit, baseRate, unit = daily, card.DailyRate.AmountCents, "day"
	}

	perUnit = max(perUnit, card.MinimumCharge.AmountCents)

	subtotal := booking.Money{AmountCents: perUnit * int64(req.Quantity), Currency: currency}
	lines := ApplyDiscounts(eligible, subtotal)
	discount := TotalDiscount(lines, subtotal).AmountCents
	tax := roundCents(float64(subtotal.AmountCents-discount) * card.TaxRate)

	return booking.Quote{
		EquipmentTypeID: req.EquipmentTypeID,
		StartTime:       req.Window.Start(),
		EndTime:         req.Window.End(),
		Quantity:        req.Quantity,
		BaseRate:        booking.Money{AmountCents: baseRate, Currency: currency},
		RateUnit:        unit,
		Subtotal:        subtotal,
		Discounts:       lines,
		TotalDiscount:   booking.Money{AmountCents: discount, Currency: currency},
		TaxAmount:       booking.Money{AmountCents: tax, Currency: currency},
		Total:           booking.Money{AmountCents: subtotal.AmountCents - discount + tax, Currency: currency},
		PromoCode:       req.PromoCode,
		CalculatedAt:    c.now().UTC(),
	}, nil
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
