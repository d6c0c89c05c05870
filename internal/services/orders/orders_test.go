package orders_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tavola-system/internal/core"
	"tavola-system/internal/database"
	"tavola-system/internal/database/models"
	"tavola-system/internal/services/catalog"
	"tavola-system/internal/services/orders"
	"tavola-system/internal/services/tables"
	"tavola-system/internal/store"
)

const restaurantID = "r1"

type fixture struct {
	tables  *tables.Service
	orders  *orders.Service
	catalog *catalog.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateStoreDB(db))

	st := store.NewGormStore(db)
	tablesSvc := tables.NewService(st, nil)
	return fixture{
		tables:  tablesSvc,
		orders:  orders.NewService(st, tablesSvc, nil),
		catalog: catalog.NewService(st, nil),
	}
}

func (f fixture) setConfig(t *testing.T, cfg models.RestaurantConfig) {
	t.Helper()
	cfg.RestaurantID = restaurantID
	_, err := f.catalog.UpdateConfig(context.Background(), cfg)
	require.NoError(t, err)
}

func (f fixture) openTable(t *testing.T, partyCount int) models.Table {
	t.Helper()
	ctx := context.Background()
	table, err := f.tables.CreateTable(ctx, restaurantID, "T1")
	require.NoError(t, err)
	opened, err := f.tables.OpenSession(ctx, restaurantID, table.ID, partyCount)
	require.NoError(t, err)
	return opened
}

func (f fixture) addMenuItem(t *testing.T, name, price string, excluded bool) models.MenuItem {
	t.Helper()
	item, err := f.catalog.CreateMenuItem(context.Background(), restaurantID, catalog.MenuItemInput{
		Name:                 name,
		Price:                price,
		IsActive:             true,
		ExcludedFromFlatRate: excluded,
	})
	require.NoError(t, err)
	return item
}

func strPtr(s string) *string { return &s }

func TestSubmitOrderMeteredWithCover(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setConfig(t, models.RestaurantConfig{CoverChargePerPerson: strPtr("2.50")})
	item := f.addMenuItem(t, "Carbonara", "10.00", false)
	table := f.openTable(t, 4)

	order, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderWaiting, order.Status)
	assert.Equal(t, "20", order.Total)
	require.NotNil(t, order.CoverCharge)
	assert.Equal(t, "10", *order.CoverCharge)
	assert.Nil(t, order.FlatRateCharge)

	totals, err := f.orders.RunningTotal(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", totals.Total.StringFixed(2))
}

func TestSubmitOrderFlatRateExcludedItem(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setConfig(t, models.RestaurantConfig{
		FlatRate: &models.FlatRatePlan{Enabled: true, PricePerPerson: "25.00", MaxOrdersPerSession: 5},
	})
	excluded := f.addMenuItem(t, "Wagyu", "5.00", true)
	included := f.addMenuItem(t, "Rice", "3.00", false)
	table := f.openTable(t, 2)

	order, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: excluded.ID, Quantity: 2},
		{MenuItemID: included.ID, Quantity: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, "10", order.Total)
	require.NotNil(t, order.FlatRateCharge)
	assert.Equal(t, "50", *order.FlatRateCharge)

	totals, err := f.orders.RunningTotal(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	assert.Equal(t, "60.00", totals.Total.StringFixed(2))
}

func TestSessionChargesAttachToFirstOrderOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setConfig(t, models.RestaurantConfig{CoverChargePerPerson: strPtr("2.00")})
	item := f.addMenuItem(t, "Bruschetta", "4.00", false)
	table := f.openTable(t, 3)

	first, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, first.CoverCharge)

	second, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Nil(t, second.CoverCharge)
	assert.Nil(t, second.FlatRateCharge)

	totals, err := f.orders.RunningTotal(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	// 4.00 + 4.00 metered, 6.00 cover charged once.
	assert.Equal(t, "14.00", totals.Total.StringFixed(2))
}

func TestQuotaAllowsExactlyMaxOrders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setConfig(t, models.RestaurantConfig{
		FlatRate: &models.FlatRatePlan{Enabled: true, PricePerPerson: "20.00", MaxOrdersPerSession: 2},
	})
	item := f.addMenuItem(t, "Gyoza", "0.00", false)
	table := f.openTable(t, 2)

	for i := 0; i < 2; i++ {
		_, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
			{MenuItemID: item.ID, Quantity: 1},
		})
		require.NoError(t, err, "order %d should fit the quota", i+1)
	}

	_, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)

	got, err := f.tables.GetTable(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RemainingOrderQuota)
	assert.Equal(t, 0, *got.RemainingOrderQuota)
}

func TestQuotaNotDecrementedOnFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setConfig(t, models.RestaurantConfig{
		FlatRate: &models.FlatRatePlan{Enabled: true, PricePerPerson: "20.00", MaxOrdersPerSession: 2},
	})
	table := f.openTable(t, 2)

	_, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: "no-such-item", Quantity: 1},
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := f.tables.GetTable(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RemainingOrderQuota)
	assert.Equal(t, 2, *got.RemainingOrderQuota)
}

func TestSubmitOrderValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	item := f.addMenuItem(t, "Olives", "2.00", false)
	table := f.openTable(t, 2)

	_, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, nil)
	assert.ErrorIs(t, err, core.ErrEmptyOrder)

	_, err = f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 0},
	})
	assert.ErrorIs(t, err, core.ErrEmptyOrder)

	_, err = f.orders.SubmitOrder(ctx, restaurantID, "no-such-table", []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSubmitOrderRequiresOpenSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	item := f.addMenuItem(t, "Olives", "2.00", false)
	table, err := f.tables.CreateTable(ctx, restaurantID, "T2")
	require.NoError(t, err)

	_, err = f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestSubmitOrderRejectsInactiveItem(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	item := f.addMenuItem(t, "Special", "12.00", false)
	_, err := f.catalog.UpdateMenuItem(ctx, restaurantID, item.ID, catalog.MenuItemInput{
		Name: "Special", Price: "12.00", IsActive: false,
	})
	require.NoError(t, err)
	table := f.openTable(t, 2)

	_, err = f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAdvanceIsMonotonicAndTerminal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	item := f.addMenuItem(t, "Ramen", "9.00", false)
	table := f.openTable(t, 1)

	order, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	require.NoError(t, err)

	want := []models.OrderStatus{models.OrderPreparing, models.OrderServed, models.OrderCompleted}
	for _, status := range want {
		advanced, err := f.orders.Advance(ctx, restaurantID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, status, advanced.Status)
	}

	// Terminal: advancing a completed order changes nothing.
	final, err := f.orders.Advance(ctx, restaurantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, final.Status)

	_, err = f.orders.Advance(ctx, restaurantID, "no-such-order")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAdvanceDrivesTableState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	item := f.addMenuItem(t, "Udon", "7.00", false)
	table := f.openTable(t, 2)

	order, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = f.orders.Advance(ctx, restaurantID, order.ID) // preparing
	require.NoError(t, err)
	_, err = f.orders.Advance(ctx, restaurantID, order.ID) // served
	require.NoError(t, err)

	got, err := f.tables.GetTable(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableOrderReady, got.Status)

	_, err = f.orders.Advance(ctx, restaurantID, order.ID) // completed
	require.NoError(t, err)

	got, err = f.tables.GetTable(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableEating, got.Status)
}

func TestLineCompletionIsIndependentOfStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	item := f.addMenuItem(t, "Edamame", "3.00", false)
	table := f.openTable(t, 2)

	order, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 2},
	})
	require.NoError(t, err)

	// Completing every unit of every line must not advance the order.
	for i := 0; i < 2; i++ {
		order, err = f.orders.MarkLineComplete(ctx, restaurantID, order.ID, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, order.Lines[0].CompletedQuantity)
	assert.Equal(t, models.OrderWaiting, order.Status)

	// Clamped at the ordered quantity.
	order, err = f.orders.MarkLineComplete(ctx, restaurantID, order.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, order.Lines[0].CompletedQuantity)

	order, err = f.orders.UnmarkLineComplete(ctx, restaurantID, order.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, order.Lines[0].CompletedQuantity)

	_, err = f.orders.MarkLineComplete(ctx, restaurantID, order.ID, 5)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLineCompletionRejectedOnCompletedOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	item := f.addMenuItem(t, "Edamame", "3.00", false)
	table := f.openTable(t, 2)

	order, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
		{MenuItemID: item.ID, Quantity: 1},
	})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.orders.Advance(ctx, restaurantID, order.ID)
		require.NoError(t, err)
	}

	_, err = f.orders.MarkLineComplete(ctx, restaurantID, order.ID, 0)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestRepeatedSubmitsExhaustQuota(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setConfig(t, models.RestaurantConfig{
		FlatRate: &models.FlatRatePlan{Enabled: true, PricePerPerson: "20.00", MaxOrdersPerSession: 5},
	})
	item := f.addMenuItem(t, "Gyoza", "1.00", false)
	table := f.openTable(t, 2)

	// Every submit goes through the same read-modify-write path; the
	// quota must count down without lost updates.
	var failures int
	for i := 0; i < 8; i++ {
		_, err := f.orders.SubmitOrder(ctx, restaurantID, table.ID, []orders.LineInput{
			{MenuItemID: item.ID, Quantity: 1},
		})
		if err != nil {
			require.ErrorIs(t, err, core.ErrQuotaExceeded, fmt.Sprintf("submit %d", i))
			failures++
		}
	}
	assert.Equal(t, 3, failures)

	live, err := f.orders.ListByTable(ctx, restaurantID, table.ID)
	require.NoError(t, err)
	assert.Len(t, live, 5)
}
