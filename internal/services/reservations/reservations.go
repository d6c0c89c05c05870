package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tavola-system/internal/core"
	"tavola-system/internal/database/models"
	"tavola-system/internal/services/events"
	"tavola-system/internal/store"
)

// SLOT_MINUTES is the fixed reservation length used for conflict checks.
const SLOT_MINUTES = 120

// Service validates and stores table bookings. Two reservations conflict
// when their half-open [start, start+120) intervals overlap on the same
// table and calendar day; the non-overlap invariant holds after every
// mutation because each mutation re-checks inside the store write.
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

type BookingInput struct {
	TableID       string `json:"table_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	PartySize     int    `json:"party_size"`
}

func (s *Service) Book(ctx context.Context, restaurantID string, input BookingInput) (models.Reservation, error) {
	start, err := parseSlot(input.Date, input.StartTime)
	if err != nil {
		return models.Reservation{}, err
	}

	reservation := models.Reservation{
		ID:            uuid.NewString(),
		RestaurantID:  restaurantID,
		TableID:       input.TableID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Date:          input.Date,
		StartTime:     input.StartTime,
		PartySize:     input.PartySize,
		CreatedAt:     time.Now(),
	}

	key := store.ReservationsKey(restaurantID)
	err = store.UpdateJSON(ctx, s.store, key, func(existing []models.Reservation) ([]models.Reservation, error) {
		if err := checkSlot(existing, input.TableID, input.Date, start, ""); err != nil {
			return nil, err
		}
		return append(existing, reservation), nil
	})
	if err != nil {
		return models.Reservation{}, err
	}
	s.events.Publish(ctx, events.EventReservationBooked, reservation)
	return reservation, nil
}

// Reschedule moves a reservation to a new table, day or start time. The
// same conflict check applies, ignoring the reservation being moved.
func (s *Service) Reschedule(ctx context.Context, restaurantID, reservationID string, input BookingInput) (models.Reservation, error) {
	start, err := parseSlot(input.Date, input.StartTime)
	if err != nil {
		return models.Reservation{}, err
	}

	var moved models.Reservation
	key := store.ReservationsKey(restaurantID)
	err = store.UpdateJSON(ctx, s.store, key, func(existing []models.Reservation) ([]models.Reservation, error) {
		idx := index(existing, reservationID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: reservation %s", core.ErrNotFound, reservationID)
		}
		if err := checkSlot(existing, input.TableID, input.Date, start, reservationID); err != nil {
			return nil, err
		}
		r := existing[idx]
		r.TableID = input.TableID
		r.Date = input.Date
		r.StartTime = input.StartTime
		if input.PartySize > 0 {
			r.PartySize = input.PartySize
		}
		if input.CustomerName != "" {
			r.CustomerName = input.CustomerName
		}
		if input.CustomerPhone != "" {
			r.CustomerPhone = input.CustomerPhone
		}
		existing[idx] = r
		moved = r
		return existing, nil
	})
	if err != nil {
		return models.Reservation{}, err
	}
	return moved, nil
}

func (s *Service) Delete(ctx context.Context, restaurantID, reservationID string) error {
	key := store.ReservationsKey(restaurantID)
	return store.UpdateJSON(ctx, s.store, key, func(existing []models.Reservation) ([]models.Reservation, error) {
		idx := index(existing, reservationID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: reservation %s", core.ErrNotFound, reservationID)
		}
		return append(existing[:idx], existing[idx+1:]...), nil
	})
}

// Complete archives a reservation: removed from the live set and appended
// to history in one write, deduplicated by reservation id.
func (s *Service) Complete(ctx context.Context, restaurantID, reservationID string) (models.ReservationHistoryEntry, error) {
	liveKey := store.ReservationsKey(restaurantID)
	historyKey := store.ReservationHistoryKey(restaurantID)

	var archived models.ReservationHistoryEntry
	err := s.store.WriteMulti(ctx, []string{liveKey, historyKey}, func(current map[string][]byte) (map[string][]byte, error) {
		var live []models.Reservation
		var history []models.ReservationHistoryEntry
		if err := store.DecodeAll(current, map[string]interface{}{
			liveKey:    &live,
			historyKey: &history,
		}); err != nil {
			return nil, err
		}

		idx := index(live, reservationID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: reservation %s", core.ErrNotFound, reservationID)
		}
		archived = models.ReservationHistoryEntry{
			Reservation: live[idx],
			CompletedAt: time.Now(),
		}
		live = append(live[:idx], live[idx+1:]...)

		for _, h := range history {
			if h.ID == reservationID {
				return store.EncodeAll(map[string]interface{}{liveKey: live, historyKey: history})
			}
		}
		return store.EncodeAll(map[string]interface{}{
			liveKey:    live,
			historyKey: append(history, archived),
		})
	})
	if err != nil {
		return models.ReservationHistoryEntry{}, err
	}
	return archived, nil
}

// List returns the live reservations, optionally narrowed to one day.
func (s *Service) List(ctx context.Context, restaurantID, date string) ([]models.Reservation, error) {
	live, _, err := store.GetJSON[[]models.Reservation](ctx, s.store, store.ReservationsKey(restaurantID))
	if err != nil {
		return nil, err
	}
	if date == "" {
		if live == nil {
			live = []models.Reservation{}
		}
		return live, nil
	}
	filtered := make([]models.Reservation, 0, len(live))
	for _, r := range live {
		if r.Date == date {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (s *Service) History(ctx context.Context, restaurantID string) ([]models.ReservationHistoryEntry, error) {
	history, _, err := store.GetJSON[[]models.ReservationHistoryEntry](ctx, s.store, store.ReservationHistoryKey(restaurantID))
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.ReservationHistoryEntry{}
	}
	return history, nil
}

// checkSlot enforces non-overlap: two equal-length half-open intervals
// overlap iff their starts are less than one slot apart.
func checkSlot(existing []models.Reservation, tableID, date string, start int, ignoreID string) error {
	for _, r := range existing {
		if r.ID == ignoreID || r.TableID != tableID || r.Date != date {
			continue
		}
		other, err := minutesSinceMidnight(r.StartTime)
		if err != nil {
			return fmt.Errorf("stored reservation %s: %w", r.ID, err)
		}
		diff := start - other
		if diff < 0 {
			diff = -diff
		}
		if diff < SLOT_MINUTES {
			return fmt.Errorf("%w: table %s on %s at %s", core.ErrSlotConflict, tableID, date, r.StartTime)
		}
	}
	return nil
}

func parseSlot(date, startTime string) (int, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return 0, fmt.Errorf("invalid date %q", date)
	}
	return minutesSinceMidnight(startTime)
}

func minutesSinceMidnight(startTime string) (int, error) {
	t, err := time.Parse("15:04", startTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q", startTime)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func index(existing []models.Reservation, reservationID string) int {
	for i, r := range existing {
		if r.ID == reservationID {
			return i
		}
	}
	return -1
}
