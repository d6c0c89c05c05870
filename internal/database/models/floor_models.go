package models

import "time"

type TableStatus string

const (
	TableAvailable    TableStatus = "available"
	TableWaitingOrder TableStatus = "waiting-order"
	TableOrderReady   TableStatus = "order-ready"
	TableEating       TableStatus = "eating"
	TableWaitingBill  TableStatus = "waiting-bill"
	TableCleaning     TableStatus = "cleaning"
)

type OrderStatus string

const (
	OrderWaiting   OrderStatus = "waiting"
	OrderPreparing OrderStatus = "preparing"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
)

// Table carries the per-session fields alongside its fixed identity.
// PartyCount, RemainingOrderQuota and ActiveOrderID are set iff the table
// is mid-session (status not available/cleaning). RemainingOrderQuota is
// only meaningful while the restaurant's flat-rate plan is enabled.
type Table struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurant_id"`
	Name         string      `json:"name"`
	Pin          string      `json:"pin"`
	Status       TableStatus `json:"status"`

	PartyCount          *int    `json:"party_count,omitempty"`
	RemainingOrderQuota *int    `json:"remaining_order_quota,omitempty"`
	ActiveOrderID       *string `json:"active_order_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderLine snapshots the menu item's name, price and flat-rate exclusion
// at submit time, so history stays correct when the menu changes later.
type OrderLine struct {
	MenuItemID           string  `json:"menu_item_id"`
	ItemName             string  `json:"item_name"`
	UnitPrice            string  `json:"unit_price"`
	Quantity             int     `json:"quantity"`
	Notes                *string `json:"notes,omitempty"`
	CompletedQuantity    int     `json:"completed_quantity"`
	ExcludedFromFlatRate bool    `json:"excluded_from_flat_rate"`
}

type Order struct {
	ID           string      `json:"id"`
	TableID      string      `json:"table_id"`
	RestaurantID string      `json:"restaurant_id"`
	OrderedAt    time.Time   `json:"ordered_at"`
	Status       OrderStatus `json:"status"`
	Lines        []OrderLine `json:"lines"`

	// Total is the metered amount for this order only. CoverCharge and
	// FlatRateCharge are attached to the first order of a session and nil
	// on every later one.
	Total          string  `json:"total"`
	CoverCharge    *string `json:"cover_charge,omitempty"`
	FlatRateCharge *string `json:"flat_rate_charge,omitempty"`
}

// OrderHistoryEntry is the denormalized settlement snapshot of an order.
// Produced exactly once when the table is settled; append-only afterwards.
type OrderHistoryEntry struct {
	OrderID        string      `json:"order_id"`
	TableID        string      `json:"table_id"`
	RestaurantID   string      `json:"restaurant_id"`
	OrderedAt      time.Time   `json:"ordered_at"`
	SettledAt      time.Time   `json:"settled_at"`
	CustomerID     *string     `json:"customer_id,omitempty"`
	Lines          []OrderLine `json:"lines"`
	Total          string      `json:"total"`
	CoverCharge    *string     `json:"cover_charge,omitempty"`
	FlatRateCharge *string     `json:"flat_rate_charge,omitempty"`
}

// Reservation occupies a fixed 120-minute slot starting at StartTime on
// Date. Date is "2006-01-02", StartTime is "15:04" local restaurant time.
type Reservation struct {
	ID            string    `json:"id"`
	RestaurantID  string    `json:"restaurant_id"`
	TableID       string    `json:"table_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	PartySize     int       `json:"party_size"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationHistoryEntry struct {
	Reservation
	CompletedAt time.Time `json:"completed_at"`
}
