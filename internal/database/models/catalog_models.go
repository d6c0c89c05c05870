package models

import "time"

type MenuItem struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	// Price is a non-negative fixed-precision decimal string, e.g. "12.50".
	Price        string `json:"price"`
	CategoryName string `json:"category_name"`
	IsActive     bool   `json:"is_active"`
	// ExcludedFromFlatRate bills the item individually even while the
	// restaurant's flat-rate plan is enabled.
	ExcludedFromFlatRate bool `json:"excluded_from_flat_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MenuCategory struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	SortOrder    int    `json:"sort_order"`
}

// FlatRatePlan is the "all-you-can-eat" pricing regime: a fixed price per
// person and a cap on how many orders one session may submit.
type FlatRatePlan struct {
	Enabled             bool   `json:"enabled"`
	PricePerPerson      string `json:"price_per_person"`
	MaxOrdersPerSession int    `json:"max_orders_per_session"`
}

// RestaurantConfig holds the pricing regime. Flat-rate and pure metered
// billing are mutually exclusive; the cover charge combines with either.
type RestaurantConfig struct {
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	// StaffCode is the static credential checked at staff login.
	StaffCode            string        `json:"staff_code"`
	CoverChargePerPerson *string       `json:"cover_charge_per_person,omitempty"`
	FlatRate             *FlatRatePlan `json:"flat_rate,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
