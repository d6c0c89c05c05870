package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"tavola-system/internal/core"
	"tavola-system/internal/database/models"
	"tavola-system/internal/store"
)

const (
	CATALOG_CACHE_PREFIX     = "catalog:"
	MENU_ITEMS_CACHE_PREFIX  = "catalog:menu-items:"
	CATEGORIES_CACHE_PREFIX  = "catalog:categories:"
	CATALOG_CACHE_TTL_SHORT  = 5 * time.Minute
	CATALOG_CACHE_TTL_MEDIUM = 30 * time.Minute
)

// Service manages the read-mostly reference data the billing calculator
// consumes: menu items, categories and the restaurant's pricing regime.
// Menu reads go through a Redis cache when a client is supplied.
type Service struct {
	store store.Store
	redis *redis.Client
}

func NewService(st store.Store, redisClient *redis.Client) *Service {
	return &Service{store: st, redis: redisClient}
}

type MenuItemInput struct {
	Name                 string `json:"name"`
	Price                string `json:"price"`
	CategoryName         string `json:"category_name"`
	IsActive             bool   `json:"is_active"`
	ExcludedFromFlatRate bool   `json:"excluded_from_flat_rate"`
}

func (s *Service) CreateMenuItem(ctx context.Context, restaurantID string, input MenuItemInput) (models.MenuItem, error) {
	if err := validateMenuItem(input); err != nil {
		return models.MenuItem{}, err
	}
	now := time.Now()
	item := models.MenuItem{
		ID:                   uuid.NewString(),
		RestaurantID:         restaurantID,
		Name:                 input.Name,
		Price:                input.Price,
		CategoryName:         input.CategoryName,
		IsActive:             input.IsActive,
		ExcludedFromFlatRate: input.ExcludedFromFlatRate,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	err := store.UpdateJSON(ctx, s.store, store.MENU_ITEMS_KEY, func(items []models.MenuItem) ([]models.MenuItem, error) {
		return append(items, item), nil
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	s.invalidateMenuCache(ctx, restaurantID)
	return item, nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, restaurantID, itemID string, input MenuItemInput) (models.MenuItem, error) {
	if err := validateMenuItem(input); err != nil {
		return models.MenuItem{}, err
	}
	var updated models.MenuItem
	err := store.UpdateJSON(ctx, s.store, store.MENU_ITEMS_KEY, func(items []models.MenuItem) ([]models.MenuItem, error) {
		for i, item := range items {
			if item.ID != itemID || item.RestaurantID != restaurantID {
				continue
			}
			item.Name = input.Name
			item.Price = input.Price
			item.CategoryName = input.CategoryName
			item.IsActive = input.IsActive
			item.ExcludedFromFlatRate = input.ExcludedFromFlatRate
			item.UpdatedAt = time.Now()
			items[i] = item
			updated = item
			return items, nil
		}
		return nil, fmt.Errorf("%w: menu item %s", core.ErrNotFound, itemID)
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	s.invalidateMenuCache(ctx, restaurantID)
	return updated, nil
}

func (s *Service) ListMenuItems(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	cacheKey := MENU_ITEMS_CACHE_PREFIX + restaurantID
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []models.MenuItem
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	items, _, err := store.GetJSON[[]models.MenuItem](ctx, s.store, store.MENU_ITEMS_KEY)
	if err != nil {
		return nil, err
	}
	owned := make([]models.MenuItem, 0, len(items))
	for _, item := range items {
		if item.RestaurantID == restaurantID {
			owned = append(owned, item)
		}
	}

	if s.redis != nil {
		if raw, err := json.Marshal(owned); err == nil {
			_ = s.redis.Set(ctx, cacheKey, raw, CATALOG_CACHE_TTL_SHORT).Err()
		}
	}
	return owned, nil
}

func (s *Service) GetMenuItem(ctx context.Context, restaurantID, itemID string) (models.MenuItem, error) {
	items, _, err := store.GetJSON[[]models.MenuItem](ctx, s.store, store.MENU_ITEMS_KEY)
	if err != nil {
		return models.MenuItem{}, err
	}
	for _, item := range items {
		if item.ID == itemID && item.RestaurantID == restaurantID {
			return item, nil
		}
	}
	return models.MenuItem{}, fmt.Errorf("%w: menu item %s", core.ErrNotFound, itemID)
}

func (s *Service) CreateCategory(ctx context.Context, restaurantID, name string, sortOrder int) (models.MenuCategory, error) {
	category := models.MenuCategory{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		Name:         name,
		SortOrder:    sortOrder,
	}
	err := store.UpdateJSON(ctx, s.store, store.MENU_CATEGORIES_KEY, func(categories []models.MenuCategory) ([]models.MenuCategory, error) {
		return append(categories, category), nil
	})
	if err != nil {
		return models.MenuCategory{}, err
	}
	s.invalidateMenuCache(ctx, restaurantID)
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context, restaurantID string) ([]models.MenuCategory, error) {
	categories, _, err := store.GetJSON[[]models.MenuCategory](ctx, s.store, store.MENU_CATEGORIES_KEY)
	if err != nil {
		return nil, err
	}
	owned := make([]models.MenuCategory, 0, len(categories))
	for _, c := range categories {
		if c.RestaurantID == restaurantID {
			owned = append(owned, c)
		}
	}
	return owned, nil
}

func (s *Service) GetConfig(ctx context.Context, restaurantID string) (models.RestaurantConfig, error) {
	cfg, found, err := store.GetJSON[models.RestaurantConfig](ctx, s.store, store.RestaurantConfigKey(restaurantID))
	if err != nil {
		return models.RestaurantConfig{}, err
	}
	if !found {
		return models.RestaurantConfig{}, fmt.Errorf("%w: restaurant %s", core.ErrNotFound, restaurantID)
	}
	return cfg, nil
}

// UpdateConfig replaces the pricing configuration after validating it.
// An invalid regime is rejected before anything is written.
func (s *Service) UpdateConfig(ctx context.Context, cfg models.RestaurantConfig) (models.RestaurantConfig, error) {
	if cfg.RestaurantID == "" {
		return models.RestaurantConfig{}, fmt.Errorf("%w: restaurant id is required", core.ErrInvalidConfiguration)
	}
	if err := validateConfig(cfg); err != nil {
		return models.RestaurantConfig{}, err
	}
	cfg.UpdatedAt = time.Now()
	key := store.RestaurantConfigKey(cfg.RestaurantID)
	err := store.UpdateJSON(ctx, s.store, key, func(models.RestaurantConfig) (models.RestaurantConfig, error) {
		return cfg, nil
	})
	if err != nil {
		return models.RestaurantConfig{}, err
	}
	return cfg, nil
}

func (s *Service) invalidateMenuCache(ctx context.Context, restaurantID string) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx,
		MENU_ITEMS_CACHE_PREFIX+restaurantID,
		CATEGORIES_CACHE_PREFIX+restaurantID,
	).Err()
}
