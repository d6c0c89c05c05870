package reservations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tavola-system/internal/core"
	"tavola-system/internal/database"
	"tavola-system/internal/store"
)

const restaurantID = "r1"

func setup(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.MigrateStoreDB(db))
	return NewService(store.NewGormStore(db), nil)
}

func booking(tableID, date, startTime string) BookingInput {
	return BookingInput{
		TableID:      tableID,
		CustomerName: "Rossi",
		Date:         date,
		StartTime:    startTime,
		PartySize:    2,
	}
}

func TestBookAndList(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	r, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)

	_, err = svc.Book(ctx, restaurantID, booking("t1", "2026-09-11", "19:00"))
	require.NoError(t, err)

	all, err := svc.List(ctx, restaurantID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	day, err := svc.List(ctx, restaurantID, "2026-09-10")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, r.ID, day[0].ID)
}

func TestBookRejectsOverlaps(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)

	cases := []string{
		"19:00", // identical
		"20:59", // starts inside the slot
		"17:01", // existing start falls inside the new slot
	}
	for _, startTime := range cases {
		_, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", startTime))
		assert.ErrorIs(t, err, core.ErrSlotConflict, startTime)
	}
}

func TestBookAllowsBackToBackSlots(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)

	// Exactly 120 minutes apart on either side is fine.
	_, err = svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "21:00"))
	assert.NoError(t, err)
	_, err = svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "17:00"))
	assert.NoError(t, err)
}

func TestBookOtherTableOrDayDoesNotConflict(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)

	_, err = svc.Book(ctx, restaurantID, booking("t2", "2026-09-10", "19:00"))
	assert.NoError(t, err)
	_, err = svc.Book(ctx, restaurantID, booking("t1", "2026-09-11", "19:00"))
	assert.NoError(t, err)
}

func TestBookValidatesSlot(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, restaurantID, booking("t1", "10/09/2026", "19:00"))
	assert.Error(t, err)

	_, err = svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "7pm"))
	assert.Error(t, err)
}

func TestRescheduleIgnoresItsOwnSlot(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	r, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)

	// Nudging a reservation within its own slot must not self-conflict.
	moved, err := svc.Reschedule(ctx, restaurantID, r.ID, booking("t1", "2026-09-10", "19:30"))
	require.NoError(t, err)
	assert.Equal(t, "19:30", moved.StartTime)
}

func TestRescheduleConflictsWithOthers(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)
	r, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "21:00"))
	require.NoError(t, err)

	_, err = svc.Reschedule(ctx, restaurantID, r.ID, booking("t1", "2026-09-10", "20:00"))
	assert.ErrorIs(t, err, core.ErrSlotConflict)

	_, err = svc.Reschedule(ctx, restaurantID, "no-such-id", booking("t1", "2026-09-10", "12:00"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	r, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, restaurantID, r.ID))

	all, err := svc.List(ctx, restaurantID, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	// The freed slot is bookable again.
	_, err = svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, restaurantID, r.ID), core.ErrNotFound)
}

func TestCompleteArchives(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	r, err := svc.Book(ctx, restaurantID, booking("t1", "2026-09-10", "19:00"))
	require.NoError(t, err)

	entry, err := svc.Complete(ctx, restaurantID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, entry.ID)
	assert.False(t, entry.CompletedAt.IsZero())

	live, err := svc.List(ctx, restaurantID, "")
	require.NoError(t, err)
	assert.Empty(t, live)

	history, err := svc.History(ctx, restaurantID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, r.ID, history[0].ID)

	_, err = svc.Complete(ctx, restaurantID, r.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMinutesSinceMidnight(t *testing.T) {
	m, err := minutesSinceMidnight("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	m, err = minutesSinceMidnight("23:45")
	require.NoError(t, err)
	assert.Equal(t, 23*60+45, m)

	_, err = minutesSinceMidnight("24:00")
	assert.Error(t, err)
}
