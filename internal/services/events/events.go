package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	EVENTS_CHANNEL = "tavola:events"

	EventTableOpened        = "table.opened"
	EventTableBillRequested = "table.bill_requested"
	EventTableSettled       = "table.settled"
	EventOrderSubmitted     = "order.submitted"
	EventOrderAdvanced      = "order.advanced"
	EventReservationBooked  = "reservation.booked"
)

// Publisher fans session events out to dashboards. Publishing is best
// effort; failures never affect the operation that raised the event.
type Publisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

type envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, event string, payload interface{}) {
	raw, err := json.Marshal(envelope{Event: event, Timestamp: time.Now(), Payload: payload})
	if err != nil {
		return
	}
	_ = p.rdb.Publish(ctx, EVENTS_CHANNEL, raw).Err()
}

// Nop is used by tests and by deployments without Redis.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) {}
