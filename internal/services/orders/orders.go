package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tavola-system/internal/core"
	"tavola-system/internal/database/models"
	"tavola-system/internal/services/billing"
	"tavola-system/internal/services/events"
	"tavola-system/internal/services/tables"
	"tavola-system/internal/store"
)

// Service owns order lifecycle: waiting → preparing → served → completed,
// with completed terminal. Reaching served or completed notifies the table
// state machine. Line fulfillment is tracked independently of order status:
// finishing every line does not advance the order, the kitchen signals
// readiness explicitly.
type Service struct {
	store  store.Store
	tables *tables.Service
	events events.Publisher
}

func NewService(st store.Store, tablesSvc *tables.Service, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: st, tables: tablesSvc, events: pub}
}

type LineInput struct {
	MenuItemID string  `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	Notes      *string `json:"notes,omitempty"`
}

// SubmitOrder places an order against the table's open session. Under a
// flat-rate plan the remaining quota is checked first and decremented only
// when the order is accepted, in the same store write that appends it.
// Cover and flat-rate charges attach to the session's first order only.
func (s *Service) SubmitOrder(ctx context.Context, restaurantID, tableID string, lines []LineInput) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, fmt.Errorf("%w: table %s", core.ErrEmptyOrder, tableID)
	}
	for i, line := range lines {
		if line.Quantity < 1 {
			return models.Order{}, fmt.Errorf("%w: line %d has quantity %d", core.ErrEmptyOrder, i, line.Quantity)
		}
	}

	cfg, _, err := store.GetJSON[models.RestaurantConfig](ctx, s.store, store.RestaurantConfigKey(restaurantID))
	if err != nil {
		return models.Order{}, err
	}
	snapshot, err := s.snapshotLines(ctx, restaurantID, lines)
	if err != nil {
		return models.Order{}, err
	}

	flatEnabled := cfg.FlatRate != nil && cfg.FlatRate.Enabled
	orderID := uuid.NewString()
	orderedAt := time.Now()

	keys := []string{store.TABLES_KEY, store.OrdersKey(restaurantID)}
	var placed models.Order
	err = s.store.WriteMulti(ctx, keys, func(current map[string][]byte) (map[string][]byte, error) {
		var tabs []models.Table
		var live []models.Order
		if err := store.DecodeAll(current, map[string]interface{}{
			store.TABLES_KEY:              &tabs,
			store.OrdersKey(restaurantID): &live,
		}); err != nil {
			return nil, err
		}

		idx := tableIndex(tabs, restaurantID, tableID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: table %s", core.ErrNotFound, tableID)
		}
		t := tabs[idx]
		if t.Status == models.TableAvailable || t.Status == models.TableCleaning {
			return nil, fmt.Errorf("%w: submit order on %s table %s", core.ErrInvalidTransition, t.Status, tableID)
		}
		if flatEnabled && t.RemainingOrderQuota != nil && *t.RemainingOrderQuota <= 0 {
			return nil, fmt.Errorf("%w: table %s", core.ErrQuotaExceeded, tableID)
		}

		partyCount := 0
		if t.PartyCount != nil {
			partyCount = *t.PartyCount
		}
		charges, err := billing.ComputeCharges(snapshot, cfg, partyCount)
		if err != nil {
			return nil, err
		}

		first := true
		for _, o := range live {
			if o.TableID == tableID {
				first = false
				break
			}
		}

		order := models.Order{
			ID:           orderID,
			TableID:      tableID,
			RestaurantID: restaurantID,
			OrderedAt:    orderedAt,
			Status:       models.OrderWaiting,
			Lines:        snapshot,
			Total:        charges.MeteredTotal.String(),
		}
		if first {
			if cfg.CoverChargePerPerson != nil {
				cover := charges.CoverCharge.String()
				order.CoverCharge = &cover
			}
			if flatEnabled {
				flat := charges.FlatRateCharge.String()
				order.FlatRateCharge = &flat
			}
		}

		if flatEnabled && t.RemainingOrderQuota != nil {
			quota := *t.RemainingOrderQuota - 1
			t.RemainingOrderQuota = &quota
		}
		t.UpdatedAt = orderedAt
		tabs[idx] = t
		placed = order

		return store.EncodeAll(map[string]interface{}{
			store.TABLES_KEY:              tabs,
			store.OrdersKey(restaurantID): append(live, order),
		})
	})
	if err != nil {
		return models.Order{}, err
	}
	s.events.Publish(ctx, events.EventOrderSubmitted, placed)
	return placed, nil
}

// Advance steps the order's status one stop forward. Advancing a completed
// order is a no-op. Reaching served flips the table to order-ready;
// reaching completed nudges it back to eating.
func (s *Service) Advance(ctx context.Context, restaurantID, orderID string) (models.Order, error) {
	var advanced models.Order
	var changed bool
	err := store.UpdateJSON(ctx, s.store, store.OrdersKey(restaurantID), func(live []models.Order) ([]models.Order, error) {
		idx := orderIndex(live, orderID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: order %s", core.ErrNotFound, orderID)
		}
		o := live[idx]
		next := nextStatus(o.Status)
		changed = next != o.Status
		o.Status = next
		live[idx] = o
		advanced = o
		return live, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	if !changed {
		return advanced, nil
	}

	switch advanced.Status {
	case models.OrderServed:
		if _, err := s.tables.OnOrderServed(ctx, restaurantID, advanced.TableID, advanced.ID); err != nil {
			return models.Order{}, err
		}
	case models.OrderCompleted:
		if _, err := s.tables.NudgeEating(ctx, restaurantID, advanced.TableID); err != nil {
			return models.Order{}, err
		}
	}
	s.events.Publish(ctx, events.EventOrderAdvanced, advanced)
	return advanced, nil
}

// MarkLineComplete records one more prepared unit on a line, capped at the
// ordered quantity. It never touches the order's own status.
func (s *Service) MarkLineComplete(ctx context.Context, restaurantID, orderID string, lineIndex int) (models.Order, error) {
	return s.adjustLine(ctx, restaurantID, orderID, lineIndex, 1)
}

// UnmarkLineComplete takes one prepared unit back, floored at zero.
func (s *Service) UnmarkLineComplete(ctx context.Context, restaurantID, orderID string, lineIndex int) (models.Order, error) {
	return s.adjustLine(ctx, restaurantID, orderID, lineIndex, -1)
}

func (s *Service) adjustLine(ctx context.Context, restaurantID, orderID string, lineIndex, delta int) (models.Order, error) {
	var updated models.Order
	err := store.UpdateJSON(ctx, s.store, store.OrdersKey(restaurantID), func(live []models.Order) ([]models.Order, error) {
		idx := orderIndex(live, orderID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: order %s", core.ErrNotFound, orderID)
		}
		o := live[idx]
		if o.Status == models.OrderCompleted {
			return nil, fmt.Errorf("%w: order %s is completed", core.ErrInvalidTransition, orderID)
		}
		if lineIndex < 0 || lineIndex >= len(o.Lines) {
			return nil, fmt.Errorf("%w: order %s line %d", core.ErrNotFound, orderID, lineIndex)
		}
		line := o.Lines[lineIndex]
		line.CompletedQuantity += delta
		if line.CompletedQuantity > line.Quantity {
			line.CompletedQuantity = line.Quantity
		}
		if line.CompletedQuantity < 0 {
			line.CompletedQuantity = 0
		}
		o.Lines[lineIndex] = line
		live[idx] = o
		updated = o
		return live, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return updated, nil
}

func (s *Service) ListOrders(ctx context.Context, restaurantID string) ([]models.Order, error) {
	live, _, err := store.GetJSON[[]models.Order](ctx, s.store, store.OrdersKey(restaurantID))
	if err != nil {
		return nil, err
	}
	if live == nil {
		live = []models.Order{}
	}
	return live, nil
}

func (s *Service) ListByTable(ctx context.Context, restaurantID, tableID string) ([]models.Order, error) {
	live, err := s.ListOrders(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	mine := make([]models.Order, 0, len(live))
	for _, o := range live {
		if o.TableID == tableID {
			mine = append(mine, o)
		}
	}
	return mine, nil
}

// RunningTotal is the live settlement preview for a table's open session.
func (s *Service) RunningTotal(ctx context.Context, restaurantID, tableID string) (billing.SessionTotals, error) {
	mine, err := s.ListByTable(ctx, restaurantID, tableID)
	if err != nil {
		return billing.SessionTotals{}, err
	}
	return billing.SumOrders(mine)
}

func (s *Service) History(ctx context.Context, restaurantID string) ([]models.OrderHistoryEntry, error) {
	history, _, err := store.GetJSON[[]models.OrderHistoryEntry](ctx, s.store, store.OrderHistoryKey(restaurantID))
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.OrderHistoryEntry{}
	}
	return history, nil
}

func (s *Service) snapshotLines(ctx context.Context, restaurantID string, lines []LineInput) ([]models.OrderLine, error) {
	items, _, err := store.GetJSON[[]models.MenuItem](ctx, s.store, store.MENU_ITEMS_KEY)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.MenuItem, len(items))
	for _, item := range items {
		if item.RestaurantID == restaurantID {
			byID[item.ID] = item
		}
	}

	snapshot := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		item, ok := byID[line.MenuItemID]
		if !ok || !item.IsActive {
			return nil, fmt.Errorf("%w: menu item %s", core.ErrNotFound, line.MenuItemID)
		}
		snapshot = append(snapshot, models.OrderLine{
			MenuItemID:           item.ID,
			ItemName:             item.Name,
			UnitPrice:            item.Price,
			Quantity:             line.Quantity,
			Notes:                line.Notes,
			CompletedQuantity:    0,
			ExcludedFromFlatRate: item.ExcludedFromFlatRate,
		})
	}
	return snapshot, nil
}

func nextStatus(status models.OrderStatus) models.OrderStatus {
	switch status {
	case models.OrderWaiting:
		return models.OrderPreparing
	case models.OrderPreparing:
		return models.OrderServed
	case models.OrderServed:
		return models.OrderCompleted
	default:
		return models.OrderCompleted
	}
}

func orderIndex(live []models.Order, orderID string) int {
	for i, o := range live {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}

func tableIndex(tabs []models.Table, restaurantID, tableID string) int {
	for i, t := range tabs {
		if t.ID == tableID && t.RestaurantID == restaurantID {
			return i
		}
	}
	return -1
}
