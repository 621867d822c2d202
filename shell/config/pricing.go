package config

import (
	"github.com/Facupelli/equipment-rental/pricing"
)

// NewCalculator builds the pricing calculator from the rate card file in cfg.RateCardsPath.
// Without a file the calculator knows no rate cards and every quote fails with pricing.ErrNoRateCard.
func NewCalculator(cfg Config) (*pricing.Calculator, error) {
	if cfg.RateCardsPath == "" {
		return pricing.NewCalculator()
	}

	options, err := pricing.LoadRateCards(cfg.RateCardsPath)
	if err != nil {
		return nil, err
	}

	return pricing.NewCalculator(options...)
}
