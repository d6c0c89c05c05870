package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection keys. Tables and the menu are shared collections filtered by
// restaurant id; orders, reservations, history and config are keyed per
// restaurant.
const (
	TABLES_KEY          = "tables"
	MENU_ITEMS_KEY      = "menuItems"
	MENU_CATEGORIES_KEY = "menuCategories"

	ORDERS_KEY_PREFIX              = "orders:"
	ORDER_HISTORY_KEY_PREFIX       = "orderHistory:"
	RESERVATIONS_KEY_PREFIX        = "reservations:"
	RESERVATION_HISTORY_KEY_PREFIX = "reservationHistory:"
	RESTAURANT_CONFIG_KEY_PREFIX   = "restaurantConfig:"
)

func OrdersKey(restaurantID string) string { return ORDERS_KEY_PREFIX + restaurantID }

func OrderHistoryKey(restaurantID string) string { return ORDER_HISTORY_KEY_PREFIX + restaurantID }

func ReservationsKey(restaurantID string) string { return RESERVATIONS_KEY_PREFIX + restaurantID }

func ReservationHistoryKey(restaurantID string) string {
	return RESERVATION_HISTORY_KEY_PREFIX + restaurantID
}

func RestaurantConfigKey(restaurantID string) string {
	return RESTAURANT_CONFIG_KEY_PREFIX + restaurantID
}

// UpdateFunc receives the current raw value (nil when the key is absent)
// and returns the full replacement value. It must be pure: the store
// re-runs it when a concurrent writer invalidates the read.
type UpdateFunc func(current []byte) ([]byte, error)

// MultiUpdateFunc is the multi-key form used by operations that must move
// data between collections atomically (settle, reservation completion).
// Absent keys map to nil; every returned key is written in one unit.
type MultiUpdateFunc func(current map[string][]byte) (map[string][]byte, error)

type Store interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, update UpdateFunc) error
	WriteMulti(ctx context.Context, keys []string, update MultiUpdateFunc) error
}

// DecodeAll unmarshals the collections touched by a multi-key updater.
// Absent keys (nil raw value) leave the target at its zero value.
func DecodeAll(current map[string][]byte, targets map[string]interface{}) error {
	for key, target := range targets {
		raw := current[key]
		if raw == nil {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return nil
}

// EncodeAll marshals the replacement values for a multi-key write.
func EncodeAll(values map[string]interface{}) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = raw
	}
	return out, nil
}

// GetJSON reads and unmarshals one collection. Absent keys yield the zero
// value and found=false.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	raw, found, err := s.Read(ctx, key)
	if err != nil || !found {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// UpdateJSON wraps Write with JSON codec plumbing so services work with
// typed collections. fn sees the zero value when the key is absent.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(T) (T, error)) error {
	return s.Write(ctx, key, func(current []byte) ([]byte, error) {
		var v T
		if current != nil {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		next, err := fn(v)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		return raw, nil
	})
}
