package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tavola-system/internal/core"
	"tavola-system/internal/database/models"
)

// Charges is the per-order billing breakdown. Amounts stay exact decimals
// through every accumulation; rounding happens only at presentation.
type Charges struct {
	MeteredTotal   decimal.Decimal
	CoverCharge    decimal.Decimal
	FlatRateCharge decimal.Decimal
}

// SessionTotals aggregates every order of one session for settlement or a
// live running total.
type SessionTotals struct {
	MeteredTotal   decimal.Decimal
	CoverCharge    decimal.Decimal
	FlatRateCharge decimal.Decimal
	Total          decimal.Decimal
}

// ComputeCharges prices one order's lines under the restaurant's regime.
// While flat-rate is enabled only lines flagged excluded-from-flat-rate are
// metered; otherwise every line is. Cover and flat-rate charges are per
// person and zero when the party count is zero.
func ComputeCharges(lines []models.OrderLine, cfg models.RestaurantConfig, partyCount int) (Charges, error) {
	flatEnabled := cfg.FlatRate != nil && cfg.FlatRate.Enabled

	metered := decimal.Zero
	for i, line := range lines {
		if flatEnabled && !line.ExcludedFromFlatRate {
			continue
		}
		price, err := parseAmount(line.UnitPrice)
		if err != nil {
			return Charges{}, fmt.Errorf("line %d unit price: %w", i, err)
		}
		metered = metered.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	cover := decimal.Zero
	if cfg.CoverChargePerPerson != nil && partyCount > 0 {
		perPerson, err := parseAmount(*cfg.CoverChargePerPerson)
		if err != nil {
			return Charges{}, fmt.Errorf("cover charge: %w", err)
		}
		cover = perPerson.Mul(decimal.NewFromInt(int64(partyCount)))
	}

	flat := decimal.Zero
	if flatEnabled && partyCount > 0 {
		perPerson, err := parseAmount(cfg.FlatRate.PricePerPerson)
		if err != nil {
			return Charges{}, fmt.Errorf("flat rate price: %w", err)
		}
		flat = perPerson.Mul(decimal.NewFromInt(int64(partyCount)))
	}

	return Charges{MeteredTotal: metered, CoverCharge: cover, FlatRateCharge: flat}, nil
}

// SumOrders folds the stored per-order amounts into session totals. Cover
// and flat-rate charges live on at most one order (the session's first), so
// a plain sum charges them once.
func SumOrders(orders []models.Order) (SessionTotals, error) {
	totals := SessionTotals{
		MeteredTotal:   decimal.Zero,
		CoverCharge:    decimal.Zero,
		FlatRateCharge: decimal.Zero,
	}
	for _, o := range orders {
		amount, err := parseAmount(o.Total)
		if err != nil {
			return SessionTotals{}, fmt.Errorf("order %s total: %w", o.ID, err)
		}
		totals.MeteredTotal = totals.MeteredTotal.Add(amount)

		if o.CoverCharge != nil {
			cover, err := parseAmount(*o.CoverCharge)
			if err != nil {
				return SessionTotals{}, fmt.Errorf("order %s cover charge: %w", o.ID, err)
			}
			totals.CoverCharge = totals.CoverCharge.Add(cover)
		}
		if o.FlatRateCharge != nil {
			flat, err := parseAmount(*o.FlatRateCharge)
			if err != nil {
				return SessionTotals{}, fmt.Errorf("order %s flat rate charge: %w", o.ID, err)
			}
			totals.FlatRateCharge = totals.FlatRateCharge.Add(flat)
		}
	}
	totals.Total = totals.MeteredTotal.Add(totals.CoverCharge).Add(totals.FlatRateCharge)
	return totals, nil
}

// ValidateConfig rejects pricing configurations the calculator cannot
// honor: negative amounts, or a flat-rate plan without a usable order cap.
func ValidateConfig(cfg models.RestaurantConfig) error {
	if cfg.CoverChargePerPerson != nil {
		if _, err := parseAmount(*cfg.CoverChargePerPerson); err != nil {
			return fmt.Errorf("%w: cover charge: %v", core.ErrInvalidConfiguration, err)
		}
	}
	if cfg.FlatRate != nil && cfg.FlatRate.Enabled {
		if _, err := parseAmount(cfg.FlatRate.PricePerPerson); err != nil {
			return fmt.Errorf("%w: flat rate price: %v", core.ErrInvalidConfiguration, err)
		}
		if cfg.FlatRate.MaxOrdersPerSession < 1 {
			return fmt.Errorf("%w: max orders per session must be at least 1", core.ErrInvalidConfiguration)
		}
	}
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}
