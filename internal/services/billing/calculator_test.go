package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tavola-system/internal/core"
	"tavola-system/internal/database/models"
)

func strPtr(s string) *string {
	return &s
}

func TestComputeChargesMeteredWithCover(t *testing.T) {
	// coverChargePerPerson = 2.50, flat rate disabled, party of 4,
	// 2 x 10.00 -> metered 20.00, cover 10.00.
	cfg := models.RestaurantConfig{
		RestaurantID:         "r1",
		CoverChargePerPerson: strPtr("2.50"),
	}
	lines := []models.OrderLine{
		{MenuItemID: "m1", ItemName: "Carbonara", UnitPrice: "10.00", Quantity: 2},
	}

	charges, err := ComputeCharges(lines, cfg, 4)
	require.NoError(t, err)

	assert.True(t, charges.MeteredTotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, charges.CoverCharge.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, charges.FlatRateCharge.IsZero())
}

func TestComputeChargesFlatRateWithExcludedItem(t *testing.T) {
	// Flat rate 25.00/person, party of 2; only the excluded item is metered:
	// 2 x 5.00 = 10.00, flat rate charge 50.00.
	cfg := models.RestaurantConfig{
		RestaurantID: "r1",
		FlatRate: &models.FlatRatePlan{
			Enabled:             true,
			PricePerPerson:      "25.00",
			MaxOrdersPerSession: 5,
		},
	}
	lines := []models.OrderLine{
		{MenuItemID: "m1", ItemName: "Wagyu", UnitPrice: "5.00", Quantity: 2, ExcludedFromFlatRate: true},
		{MenuItemID: "m2", ItemName: "Rice", UnitPrice: "3.00", Quantity: 4},
	}

	charges, err := ComputeCharges(lines, cfg, 2)
	require.NoError(t, err)

	assert.True(t, charges.MeteredTotal.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, charges.CoverCharge.IsZero())
	assert.True(t, charges.FlatRateCharge.Equal(decimal.RequireFromString("50.00")))
}

func TestComputeChargesZeroParty(t *testing.T) {
	cfg := models.RestaurantConfig{
		RestaurantID:         "r1",
		CoverChargePerPerson: strPtr("2.50"),
		FlatRate: &models.FlatRatePlan{
			Enabled:             true,
			PricePerPerson:      "25.00",
			MaxOrdersPerSession: 3,
		},
	}

	charges, err := ComputeCharges(nil, cfg, 0)
	require.NoError(t, err)

	assert.True(t, charges.MeteredTotal.IsZero())
	assert.True(t, charges.CoverCharge.IsZero())
	assert.True(t, charges.FlatRateCharge.IsZero())
}

func TestComputeChargesRejectsBadAmounts(t *testing.T) {
	cfg := models.RestaurantConfig{RestaurantID: "r1"}

	_, err := ComputeCharges([]models.OrderLine{
		{MenuItemID: "m1", UnitPrice: "not-a-number", Quantity: 1},
	}, cfg, 2)
	assert.Error(t, err)

	_, err = ComputeCharges([]models.OrderLine{
		{MenuItemID: "m1", UnitPrice: "-1.00", Quantity: 1},
	}, cfg, 2)
	assert.Error(t, err)
}

func TestComputeChargesNoRoundingDuringAccumulation(t *testing.T) {
	cfg := models.RestaurantConfig{RestaurantID: "r1"}
	lines := []models.OrderLine{
		{MenuItemID: "m1", UnitPrice: "0.105", Quantity: 3},
		{MenuItemID: "m2", UnitPrice: "0.105", Quantity: 3},
	}

	charges, err := ComputeCharges(lines, cfg, 0)
	require.NoError(t, err)

	// 6 x 0.105 = 0.63 exactly; per-line rounding would have drifted.
	assert.True(t, charges.MeteredTotal.Equal(decimal.RequireFromString("0.63")))
}

func TestSumOrdersChargesSessionExtrasOnce(t *testing.T) {
	cover := "10.00"
	flat := "50.00"
	orders := []models.Order{
		{ID: "o1", Total: "20.00", CoverCharge: &cover, FlatRateCharge: &flat},
		{ID: "o2", Total: "5.50"},
		{ID: "o3", Total: "0"},
	}

	totals, err := SumOrders(orders)
	require.NoError(t, err)

	assert.True(t, totals.MeteredTotal.Equal(decimal.RequireFromString("25.50")))
	assert.True(t, totals.CoverCharge.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, totals.FlatRateCharge.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("85.50")))
}

func TestValidateConfig(t *testing.T) {
	valid := models.RestaurantConfig{
		RestaurantID:         "r1",
		CoverChargePerPerson: strPtr("0"),
		FlatRate: &models.FlatRatePlan{
			Enabled:             true,
			PricePerPerson:      "19.90",
			MaxOrdersPerSession: 1,
		},
	}
	assert.NoError(t, ValidateConfig(valid))

	negCover := valid
	negCover.CoverChargePerPerson = strPtr("-2.50")
	assert.ErrorIs(t, ValidateConfig(negCover), core.ErrInvalidConfiguration)

	badQuota := models.RestaurantConfig{
		RestaurantID: "r1",
		FlatRate: &models.FlatRatePlan{
			Enabled:             true,
			PricePerPerson:      "19.90",
			MaxOrdersPerSession: 0,
		},
	}
	assert.ErrorIs(t, ValidateConfig(badQuota), core.ErrInvalidConfiguration)

	// Disabled plans are not validated against the quota rule.
	disabled := models.RestaurantConfig{
		RestaurantID: "r1",
		FlatRate:     &models.FlatRatePlan{Enabled: false},
	}
	assert.NoError(t, ValidateConfig(disabled))
}
