package config_test

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
	"github.com/Facupelli/equipment-rental/shell/config"
)

func Test_NewCalculator_LoadsRateCardFile(t *testing.T) {
	// arrange
	path := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"default": {"hourlyRate": {"amountCents": 250, "currency": "USD"}, "dailyRate": {"amountCents": 2000, "currency": "USD"}},
		"promoCodes": {"SPRING10": 0.1}
	}`), 0o600))
	start := time.Date(2031, 3, 1, 10, 0, 0, 0, time.UTC)

	// act
	calculator, err := config.NewCalculator(config.Config{RateCardsPath: path})
	require.NoError(t, err)
	quote, err := calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: uuid.New(),
		Window:          booking.MustTimeRange(start, start.Add(2*time.Hour)),
		Quantity:        1,
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(500), quote.Subtotal.AmountCents)
}

func Test_NewCalculator_WithoutFileKnowsNoRates(t *testing.T) {
	// arrange
	calculator, err := config.NewCalculator(config.Config{})
	require.NoError(t, err)
	start := time.Date(2031, 3, 1, 10, 0, 0, 0, time.UTC)

	// act
	_, err = calculator.CalculateQuote(context.Background(), pricing.QuoteRequest{
		EquipmentTypeID: uuid.New(),
		Window:          booking.MustTimeRange(start, start.Add(time.Hour)),
		Quantity:        1,
	})

	// assert
	require.ErrorIs(t, err, pricing.ErrNoRateCard)
}
