package pricing_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/pricing"
)

var start = time.Date(2030, time.March, 1, 8, 0, 0, 0, time.UTC)

func card(typeID uuid.UUID) pricing.RateCard {
	return pricing.RateCard{
		EquipmentTypeID: typeID,
		HourlyRate:      booking.Cents(1000),
		DailyRate:       booking.Cents(20000),
		MinimumCharge:   booking.Cents(5000),
		TaxRate:         0.1,
	}
}

func Test_CalculateQuote_HourlyWinsForShortRentals(t *testing.T) {
	typeID := uuid.New()
	calculator, err := pricing.NewCalculator(pricing.WithRateCard(card(typeID)))
	require.NoError(t, err)

	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		Window:          booking.MustTimeRange(start, start.Add(6*time.Hour)),
		Quantity:        1,
	})

	require.NoError(t, err)
	assert.Equal(t, "hour", quote.RateUnit)
	assert.Equal(t, int64(6000), quote.Subtotal.AmountCents)
	assert.Equal(t, int64(600), quote.TaxAmount.AmountCents)
	assert.Equal(t, int64(6600), quote.Total.AmountCents)
}

func Test_CalculateQuote_DailyWinsForLongRentalsAndScalesWithQuantity(t *testing.T) {
	typeID := uuid.New()
	calculator, err := pricing.NewCalculator(pricing.WithRateCard(card(typeID)))
	require.NoError(t, err)

	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		Window:          booking.MustTimeRange(start, start.Add(48*time.Hour)),
		Quantity:        2,
	})

	require.NoError(t, err)
	assert.Equal(t, "day", quote.RateUnit)
	assert.Equal(t, int64(80000), quote.Subtotal.AmountCents)
	assert.Equal(t, int64(88000), quote.Total.AmountCents)
}

func Test_CalculateQuote_MinimumChargeAndPromoCode(t *testing.T) {
	typeID := uuid.New()
	calculator, err := pricing.NewCalculator(
		pricing.WithRateCard(card(typeID)),
		pricing.WithPromoCode("spring10", 0.1),
	)
	require.NoError(t, err)

	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		Window:          booking.MustTimeRange(start, start.Add(2*time.Hour)),
		Quantity:        1,
		PromoCode:       "SPRING10",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5000), quote.Subtotal.AmountCents)
	assert.Equal(t, int64(500), quote.TotalDiscount.AmountCents)
	assert.Equal(t, int64(450), quote.TaxAmount.AmountCents)
	assert.Equal(t, int64(4950), quote.Total.AmountCents)
}

func Test_CalculateQuote_Errors(t *testing.T) {
	calculator, err := pricing.NewCalculator()
	require.NoError(t, err)
	window := booking.MustTimeRange(start, start.Add(time.Hour))

	_, err = calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{EquipmentTypeID: uuid.New(), Window: window, Quantity: 1})
	assert.ErrorIs(t, err, pricing.ErrNoRateCard)

	_, err = calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{EquipmentTypeID: uuid.New(), Window: window, Quantity: 0})
	assert.ErrorIs(t, err, booking.ErrNonPositiveQuantity)

	withDefault, err := pricing.NewCalculator(pricing.WithDefaultRateCard(card(uuid.Nil)))
	require.NoError(t, err)

	_, err = withDefault.CalculateQuote(context.Background(), pricing.QuoteRequest{EquipmentTypeID: uuid.New(), Window: window, Quantity: 1, PromoCode: "nope"})
	assert.ErrorIs(t, err, pricing.ErrUnknownPromoCode)
}

func Test_NewCalculator_RejectsInvalidRateCard(t *testing.T) {
	invalid := card(uuid.New())
	invalid.TaxRate = 1.5

	_, err := pricing.NewCalculator(pricing.WithRateCard(invalid))

	assert.ErrorIs(t, err, pricing.ErrInvalidRateCard)
}

func Test_LoadRateCards_ReadsJSONFile(t *testing.T) {
	typeID := uuid.New()
	path := filepath.Join(t.TempDir(), "rates.json")
	content := `{
		"default": {"hourlyRate": {"amountCents": 500, "currency": "USD"}, "dailyRate": {"amountCents": 8000, "currency": "USD"}},
		"cards": [{"equipmentTypeId": "` + typeID.String() + `", "hourlyRate": {"amountCents": 1000, "currency": "USD"}, "dailyRate": {"amountCents": 20000, "currency": "USD"}, "taxRate": 0.2}],
		"promoCodes": {"WELCOME": 0.5}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	options, err := pricing.LoadRateCards(path)
	require.NoError(t, err)
	calculator, err := pricing.NewCalculator(options...)
	require.NoError(t, err)

	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		Window:          booking.MustTimeRange(start, start.Add(time.Hour)),
		Quantity:        1,
		PromoCode:       "welcome",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.Subtotal.AmountCents)
	assert.Equal(t, int64(500), quote.TotalDiscount.AmountCents)
	assert.Equal(t, int64(600), quote.Total.AmountCents)
}

func Test_CalculateQuote_StackableRulesAddUpOnTheUndiscountedSubtotal(t *testing.T) {
	// arrange
	typeID := uuid.New()
	customerID := uuid.New()
	calculator, err := pricing.NewCalculator(
		pricing.WithRateCard(card(typeID)),
		pricing.WithLoyaltyTier(customerID, "gold"),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Seasonal", Type: pricing.DiscountSeasonal, Percentage: 0.05, Stackable: true, Priority: 20,
		}),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Gold", Type: pricing.DiscountLoyalty, LoyaltyTier: "GOLD", Percentage: 0.1, Stackable: true, Priority: 10,
		}),
	)
	require.NoError(t, err)

	// act
	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		CustomerID:      customerID,
		Window:          booking.MustTimeRange(start, start.Add(24*time.Hour)),
		Quantity:        1,
	})

	// assert
	require.NoError(t, err)
	require.Len(t, quote.Discounts, 2)
	assert.Equal(t, "Gold", quote.Discounts[0].Name, "lower priority value comes first")
	assert.Equal(t, int64(2000), quote.Discounts[0].Amount.AmountCents)
	assert.Equal(t, int64(1000), quote.Discounts[1].Amount.AmountCents, "5% of the full subtotal, not of the rest")
	assert.Equal(t, int64(3000), quote.TotalDiscount.AmountCents)
	assert.Equal(t, int64(18700), quote.Total.AmountCents)
}

func Test_CalculateQuote_NonStackableRuleAppliesOnlyTheBestDiscount(t *testing.T) {
	// arrange
	typeID := uuid.New()
	calculator, err := pricing.NewCalculator(
		pricing.WithRateCard(card(typeID)),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Week", Type: pricing.DiscountVolume, MinRentalDays: 7, Percentage: 0.15, Stackable: false, Priority: 20,
		}),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Launch", Type: pricing.DiscountPromo, PromoCode: "launch", Percentage: 0.2, Stackable: true, Priority: 10,
		}),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Tie", Type: pricing.DiscountSeasonal, Percentage: 0.2, Stackable: true, Priority: 30,
		}),
	)
	require.NoError(t, err)

	// act
	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		Window:          booking.MustTimeRange(start, start.Add(7*24*time.Hour)),
		Quantity:        1,
		PromoCode:       "Launch",
	})

	// assert
	require.NoError(t, err)
	require.Len(t, quote.Discounts, 1)
	assert.Equal(t, "Launch", quote.Discounts[0].Name, "highest percentage wins, priority breaks the tie")
	assert.Equal(t, int64(28000), quote.TotalDiscount.AmountCents)
}

func Test_CalculateQuote_RulesOutsideTheirValidityDoNotApply(t *testing.T) {
	// arrange
	typeID := uuid.New()
	calculator, err := pricing.NewCalculator(
		pricing.WithRateCard(card(typeID)),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Winter", Type: pricing.DiscountSeasonal, Percentage: 0.3, Stackable: true,
			ValidFrom: start.AddDate(0, -3, 0), ValidUntil: start.Add(-time.Second),
		}),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Paused", Type: pricing.DiscountSeasonal, Percentage: 0.3, Stackable: true, Inactive: true,
		}),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Spring", Type: pricing.DiscountSeasonal, Percentage: 0.1, Stackable: true, ValidFrom: start,
		}),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Week", Type: pricing.DiscountVolume, MinRentalDays: 7, Percentage: 0.5, Stackable: true,
		}),
	)
	require.NoError(t, err)

	// act
	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		Window:          booking.MustTimeRange(start, start.Add(2*24*time.Hour)),
		Quantity:        1,
	})

	// assert
	require.NoError(t, err)
	require.Len(t, quote.Discounts, 1)
	assert.Equal(t, "Spring", quote.Discounts[0].Name)
	assert.Equal(t, int64(4000), quote.TotalDiscount.AmountCents)
}

func Test_CalculateQuote_LoyaltyRuleNeedsTheCustomersTier(t *testing.T) {
	typeID := uuid.New()
	calculator, err := pricing.NewCalculator(
		pricing.WithRateCard(card(typeID)),
		pricing.WithLoyaltyTier(uuid.New(), "gold"),
		pricing.WithDiscountRule(pricing.DiscountRule{
			Name: "Gold", Type: pricing.DiscountLoyalty, LoyaltyTier: "gold", Percentage: 0.1, Stackable: true,
		}),
	)
	require.NoError(t, err)

	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		CustomerID:      uuid.New(),
		Window:          booking.MustTimeRange(start, start.Add(24*time.Hour)),
		Quantity:        1,
	})

	require.NoError(t, err)
	assert.Empty(t, quote.Discounts)
	assert.Zero(t, quote.TotalDiscount.AmountCents)
}

func Test_NewCalculator_RejectsInvalidDiscountRule(t *testing.T) {
	for name, rule := range map[string]pricing.DiscountRule{
		"percentage above one": {Name: "big", Type: pricing.DiscountSeasonal, Percentage: 1.2},
		"promo without code":   {Name: "promo", Type: pricing.DiscountPromo, Percentage: 0.1},
		"loyalty without tier": {Name: "loyal", Type: pricing.DiscountLoyalty, Percentage: 0.1},
		"volume without days":  {Name: "volume", Type: pricing.DiscountVolume, Percentage: 0.1},
		"unknown type":         {Name: "other", Type: "REFERRAL", Percentage: 0.1},
		"ends before start":    {Name: "late", Type: pricing.DiscountSeasonal, ValidFrom: start, ValidUntil: start.Add(-time.Hour)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := pricing.NewCalculator(pricing.WithDiscountRule(rule))

			assert.ErrorIs(t, err, pricing.ErrInvalidDiscountRule)
		})
	}
}

func Test_LoadRateCards_ReadsDiscountRulesAndLoyaltyTiers(t *testing.T) {
	// arrange
	typeID := uuid.New()
	customerID := uuid.New()
	path := filepath.Join(t.TempDir(), "rates.json")
	content := `{
		"cards": [{"equipmentTypeId": "` + typeID.String() + `", "hourlyRate": {"amountCents": 1000, "currency": "USD"}, "dailyRate": {"amountCents": 20000, "currency": "USD"}}],
		"discountRules": [
			{"name": "Silver", "type": "LOYALTY", "loyaltyTier": "silver", "percentage": 0.1, "stackable": true, "priority": 1},
			{"name": "Summer", "type": "SEASONAL", "percentage": 0.05, "stackable": true, "priority": 2, "validFrom": "2030-01-01T00:00:00Z", "validUntil": "2030-12-31T23:59:59Z"}
		],
		"loyaltyTiers": {"` + customerID.String() + `": "silver"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// act
	options, err := pricing.LoadRateCards(path)
	require.NoError(t, err)
	calculator, err := pricing.NewCalculator(options...)
	require.NoError(t, err)

	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: typeID,
		CustomerID:      customerID,
		Window:          booking.MustTimeRange(start, start.Add(24*time.Hour)),
		Quantity:        1,
	})

	// assert
	require.NoError(t, err)
	require.Len(t, quote.Discounts, 2)
	assert.Equal(t, "Silver", quote.Discounts[0].Name)
	assert.Equal(t, int64(3000), quote.TotalDiscount.AmountCents)
	assert.Equal(t, int64(17000), quote.Total.AmountCents)
}
