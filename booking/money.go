package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency is used when a Money value is built without an explicit currency.
const DefaultCurrency = "USD"

// Money is an amount in minor units (cents) of one currency.
type Money struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// Cents builds a Money value in DefaultCurrency.
func Cents(amount int64) Money {
	return Money{AmountCents: amount, Currency: DefaultCurrency}
}

// Add sums two values of the same currency. A zero value adopts the other's currency.
func (m Money) Add(other Money) (Money, error) {
	switch {
	case m.Currency == "":
		return Money{AmountCents: m.AmountCents + other.AmountCents, Currency: other.Currency}, nil
	case other.Currency == "" || other.Currency == m.Currency:
		return Money{AmountCents: m.AmountCents + other.AmountCents, Currency: m.Currency}, nil
	default:
		return Money{}, errors.Join(ErrCurrencyMismatch, fmt.Errorf("%s vs %s", m.Currency, other.Currency))
	}
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.AmountCents/100, abs(m.AmountCents%100), m.Currency)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}

// Quote is the price the pricing collaborator computed for one line item.
// The booking pipeline stores it alongside the item and only reads Total.
type Quote struct {
	EquipmentTypeID uuid.UUID      `json:"equipmentTypeId"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         time.Time      `json:"endTime"`
	Quantity        int            `json:"quantity"`
	BaseRate        Money          `json:"baseRate"`
	RateUnit        string         `json:"rateUnit"`
	Subtotal        Money          `json:"subtotal"`
	Discounts       []DiscountLine `json:"discounts,omitempty"`
	TotalDiscount   Money          `json:"totalDiscount"`
	TaxAmount       Money          `json:"taxAmount"`
	Total           Money          `json:"total"`
	PromoCode       string         `json:"promoCode,omitempty"`
	CalculatedAt    time.Time      `json:"calculatedAt"`
}

// DiscountLine is one discount rule applied to a quote's subtotal.
type DiscountLine struct {
	RuleID     uuid.UUID `json:"ruleId"`
	Name       string    `json:"name"`
	Percentage float64   `json:"percentage"`
	Amount     Money     `json:"amount"`
}
