package tables

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"tavola-system/internal/core"
	"tavola-system/internal/database/models"
	"tavola-system/internal/services/billing"
	"tavola-system/internal/services/events"
	"tavola-system/internal/store"
)

// Service owns the table session state machine:
//
//	available → waiting-order → order-ready → eating → waiting-bill → cleaning → available
//
// Any in-session state may settle. Every mutation goes through the
// store's optimistic write, so an illegal transition never leaves a
// partial update behind.
type Service struct {
	store  store.Store
	events events.Publisher
}

func NewService(st store.Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: st, events: pub}
}

// Settlement is the result of closing a table: the archived orders and the
// session totals they add up to.
type Settlement struct {
	Table   models.Table
	Entries []models.OrderHistoryEntry
	Totals  billing.SessionTotals
}

func (s *Service) CreateTable(ctx context.Context, restaurantID, name string) (models.Table, error) {
	now := time.Now()
	table := models.Table{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		Name:         name,
		Pin:          newPin(),
		Status:       models.TableAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := store.UpdateJSON(ctx, s.store, store.TABLES_KEY, func(tabs []models.Table) ([]models.Table, error) {
		return append(tabs, table), nil
	})
	if err != nil {
		return models.Table{}, err
	}
	return table, nil
}

func (s *Service) ListTables(ctx context.Context, restaurantID string) ([]models.Table, error) {
	tabs, _, err := store.GetJSON[[]models.Table](ctx, s.store, store.TABLES_KEY)
	if err != nil {
		return nil, err
	}
	owned := make([]models.Table, 0, len(tabs))
	for _, t := range tabs {
		if t.RestaurantID == restaurantID {
			owned = append(owned, t)
		}
	}
	return owned, nil
}

func (s *Service) GetTable(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	tabs, _, err := store.GetJSON[[]models.Table](ctx, s.store, store.TABLES_KEY)
	if err != nil {
		return models.Table{}, err
	}
	idx := findTable(tabs, restaurantID, tableID)
	if idx < 0 {
		return models.Table{}, fmt.Errorf("%w: table %s", core.ErrNotFound, tableID)
	}
	return tabs[idx], nil
}

// VerifyPin checks a customer's table login. Only a table with an open
// session accepts its PIN; the PIN is rotated on every session open.
func (s *Service) VerifyPin(ctx context.Context, restaurantID, tableID, pin string) (models.Table, error) {
	table, err := s.GetTable(ctx, restaurantID, tableID)
	if err != nil {
		return models.Table{}, err
	}
	if table.Status == models.TableAvailable || table.Status == models.TableCleaning {
		return models.Table{}, fmt.Errorf("%w: table %s has no open session", core.ErrInvalidTransition, tableID)
	}
	if table.Pin != pin {
		return models.Table{}, fmt.Errorf("%w: table %s", core.ErrNotFound, tableID)
	}
	return table, nil
}

// OpenSession seats a party at an available table: rotates the PIN, sets
// the party count, seeds the order quota from the flat-rate plan and moves
// the table to waiting-order.
func (s *Service) OpenSession(ctx context.Context, restaurantID, tableID string, partyCount int) (models.Table, error) {
	if partyCount < 1 {
		return models.Table{}, fmt.Errorf("%w: party count must be at least 1", core.ErrInvalidConfiguration)
	}
	cfg, err := s.loadConfig(ctx, restaurantID)
	if err != nil {
		return models.Table{}, err
	}

	pin := newPin()
	var opened models.Table
	err = store.UpdateJSON(ctx, s.store, store.TABLES_KEY, func(tabs []models.Table) ([]models.Table, error) {
		idx := findTable(tabs, restaurantID, tableID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: table %s", core.ErrNotFound, tableID)
		}
		t := tabs[idx]
		if t.Status != models.TableAvailable {
			return nil, fmt.Errorf("%w: open session on %s table %s", core.ErrInvalidTransition, t.Status, tableID)
		}
		pc := partyCount
		t.Pin = pin
		t.Status = models.TableWaitingOrder
		t.PartyCount = &pc
		t.RemainingOrderQuota = nil
		t.ActiveOrderID = nil
		if cfg.FlatRate != nil && cfg.FlatRate.Enabled {
			quota := cfg.FlatRate.MaxOrdersPerSession
			t.RemainingOrderQuota = &quota
		}
		t.UpdatedAt = time.Now()
		tabs[idx] = t
		opened = t
		return tabs, nil
	})
	if err != nil {
		return models.Table{}, err
	}
	s.events.Publish(ctx, events.EventTableOpened, opened)
	return opened, nil
}

// OnOrderServed is raised by the order lifecycle when an order reaches
// served: the table shows order-ready and records which order is waiting
// to be brought out.
func (s *Service) OnOrderServed(ctx context.Context, restaurantID, tableID, orderID string) (models.Table, error) {
	return s.transition(ctx, restaurantID, tableID, func(t *models.Table) error {
		if t.Status == models.TableAvailable || t.Status == models.TableCleaning {
			return fmt.Errorf("%w: order served on %s table %s", core.ErrInvalidTransition, t.Status, tableID)
		}
		id := orderID
		t.Status = models.TableOrderReady
		t.ActiveOrderID = &id
		return nil
	})
}

// AcknowledgeServed is the staff confirmation that the food reached the
// table: order-ready → eating.
func (s *Service) AcknowledgeServed(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	return s.transition(ctx, restaurantID, tableID, func(t *models.Table) error {
		if t.Status != models.TableOrderReady {
			return fmt.Errorf("%w: acknowledge on %s table %s", core.ErrInvalidTransition, t.Status, tableID)
		}
		t.Status = models.TableEating
		t.ActiveOrderID = nil
		return nil
	})
}

// NudgeEating moves a table back to eating after its kitchen work finished.
// Unlike the other transitions it is a no-op outside the states it applies
// to: it is an internal signal, not a staff action.
func (s *Service) NudgeEating(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	return s.transition(ctx, restaurantID, tableID, func(t *models.Table) error {
		if t.Status == models.TableWaitingOrder || t.Status == models.TableOrderReady {
			t.Status = models.TableEating
			t.ActiveOrderID = nil
		}
		return nil
	})
}

// RequestBill flags the table as waiting for its bill: eating → waiting-bill.
func (s *Service) RequestBill(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	t, err := s.transition(ctx, restaurantID, tableID, func(t *models.Table) error {
		if t.Status != models.TableEating {
			return fmt.Errorf("%w: request bill on %s table %s", core.ErrInvalidTransition, t.Status, tableID)
		}
		t.Status = models.TableWaitingBill
		return nil
	})
	if err != nil {
		return models.Table{}, err
	}
	s.events.Publish(ctx, events.EventTableBillRequested, t)
	return t, nil
}

// Settle closes the table: every live order for it is archived as an
// OrderHistoryEntry, the live orders are removed, session fields are
// cleared and the table moves to cleaning, all in one store write, so a
// retried settle can never lose an order or archive it twice. Any
// in-session state may settle; a table without an open session cannot.
func (s *Service) Settle(ctx context.Context, restaurantID, tableID string, customerID *string) (Settlement, error) {
	cfg, err := s.loadConfig(ctx, restaurantID)
	if err != nil {
		return Settlement{}, err
	}
	keys := []string{store.TABLES_KEY, store.OrdersKey(restaurantID), store.OrderHistoryKey(restaurantID)}

	var result Settlement
	err = s.store.WriteMulti(ctx, keys, func(current map[string][]byte) (map[string][]byte, error) {
		var tabs []models.Table
		var orders []models.Order
		var history []models.OrderHistoryEntry
		if err := store.DecodeAll(current, map[string]interface{}{
			store.TABLES_KEY:                    &tabs,
			store.OrdersKey(restaurantID):       &orders,
			store.OrderHistoryKey(restaurantID): &history,
		}); err != nil {
			return nil, err
		}

		idx := findTable(tabs, restaurantID, tableID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: table %s", core.ErrNotFound, tableID)
		}
		t := tabs[idx]
		if t.Status == models.TableAvailable || t.Status == models.TableCleaning {
			return nil, fmt.Errorf("%w: settle on %s table %s", core.ErrInvalidTransition, t.Status, tableID)
		}

		settledAt := time.Now()
		archived := make(map[string]bool, len(history))
		for _, h := range history {
			archived[h.OrderID] = true
		}

		remaining := orders[:0:0]
		var mine []models.Order
		var entries []models.OrderHistoryEntry
		for _, o := range orders {
			if o.TableID != tableID {
				remaining = append(remaining, o)
				continue
			}
			mine = append(mine, o)
			if archived[o.ID] {
				continue
			}
			entries = append(entries, models.OrderHistoryEntry{
				OrderID:        o.ID,
				TableID:        o.TableID,
				RestaurantID:   o.RestaurantID,
				OrderedAt:      o.OrderedAt,
				SettledAt:      settledAt,
				CustomerID:     customerID,
				Lines:          o.Lines,
				Total:          o.Total,
				CoverCharge:    o.CoverCharge,
				FlatRateCharge: o.FlatRateCharge,
			})
		}

		totals, err := billing.SumOrders(mine)
		if err != nil {
			return nil, err
		}

		// Sessions settled before any order carried the per-session charges
		// (typically no order at all) still owe cover and flat-rate amounts.
		hasCover, hasFlat := false, false
		for _, o := range mine {
			hasCover = hasCover || o.CoverCharge != nil
			hasFlat = hasFlat || o.FlatRateCharge != nil
		}
		if !hasCover || !hasFlat {
			partyCount := 0
			if t.PartyCount != nil {
				partyCount = *t.PartyCount
			}
			charges, err := billing.ComputeCharges(nil, cfg, partyCount)
			if err != nil {
				return nil, err
			}
			if !hasCover {
				totals.CoverCharge = totals.CoverCharge.Add(charges.CoverCharge)
			}
			if !hasFlat {
				totals.FlatRateCharge = totals.FlatRateCharge.Add(charges.FlatRateCharge)
			}
			totals.Total = totals.MeteredTotal.Add(totals.CoverCharge).Add(totals.FlatRateCharge)
		}

		t.Status = models.TableCleaning
		t.PartyCount = nil
		t.RemainingOrderQuota = nil
		t.ActiveOrderID = nil
		t.UpdatedAt = settledAt
		tabs[idx] = t

		result = Settlement{Table: t, Entries: entries, Totals: totals}

		return store.EncodeAll(map[string]interface{}{
			store.TABLES_KEY:                    tabs,
			store.OrdersKey(restaurantID):       remaining,
			store.OrderHistoryKey(restaurantID): append(history, entries...),
		})
	})
	if err != nil {
		return Settlement{}, err
	}
	s.events.Publish(ctx, events.EventTableSettled, result.Table)
	return result, nil
}

// MarkReady finishes cleaning: cleaning → available.
func (s *Service) MarkReady(ctx context.Context, restaurantID, tableID string) (models.Table, error) {
	return s.transition(ctx, restaurantID, tableID, func(t *models.Table) error {
		if t.Status != models.TableCleaning {
			return fmt.Errorf("%w: mark ready on %s table %s", core.ErrInvalidTransition, t.Status, tableID)
		}
		t.Status = models.TableAvailable
		return nil
	})
}

func (s *Service) transition(ctx context.Context, restaurantID, tableID string, apply func(*models.Table) error) (models.Table, error) {
	var updated models.Table
	err := store.UpdateJSON(ctx, s.store, store.TABLES_KEY, func(tabs []models.Table) ([]models.Table, error) {
		idx := findTable(tabs, restaurantID, tableID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: table %s", core.ErrNotFound, tableID)
		}
		t := tabs[idx]
		if err := apply(&t); err != nil {
			return nil, err
		}
		t.UpdatedAt = time.Now()
		tabs[idx] = t
		updated = t
		return tabs, nil
	})
	if err != nil {
		return models.Table{}, err
	}
	return updated, nil
}

func (s *Service) loadConfig(ctx context.Context, restaurantID string) (models.RestaurantConfig, error) {
	cfg, _, err := store.GetJSON[models.RestaurantConfig](ctx, s.store, store.RestaurantConfigKey(restaurantID))
	return cfg, err
}

func findTable(tabs []models.Table, restaurantID, tableID string) int {
	for i, t := range tabs {
		if t.ID == tableID && t.RestaurantID == restaurantID {
			return i
		}
	}
	return -1
}

func newPin() string {
	return fmt.Sprintf("%04d", rand.IntN(10000))
}
