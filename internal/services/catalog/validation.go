package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tavola-system/internal/core"
	"tavola-system/internal/database/models"
	"tavola-system/internal/services/billing"
)

func validateMenuItem(input MenuItemInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: menu item name is required", core.ErrInvalidConfiguration)
	}
	price, err := decimal.NewFromString(input.Price)
	if err != nil {
		return fmt.Errorf("%w: invalid price %q", core.ErrInvalidConfiguration, input.Price)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: negative price %q", core.ErrInvalidConfiguration, input.Price)
	}
	return nil
}

func validateConfig(cfg models.RestaurantConfig) error {
	return billing.ValidateConfig(cfg)
}
