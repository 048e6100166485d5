package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/catalog/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// defaultStreamMaxLen bounds the stream; older entries are trimmed approximately
const defaultStreamMaxLen = 10000

// StreamAdder is the part of the Redis client the stream handler uses
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamHandler forwards media events to a Redis stream so other
// services (CDN purges, search indexing) can react to stored and deleted
// objects.
type RedisStreamHandler struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewRedisStreamHandler creates a handler appending to stream
func NewRedisStreamHandler(client StreamAdder, stream string) *RedisStreamHandler {
	return &RedisStreamHandler{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

// EventTypes returns nil, subscribing the handler to every event
func (h *RedisStreamHandler) EventTypes() []string { return nil }

// Handle appends the JSON-encoded event to the stream
func (h *RedisStreamHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	err = h.client.XAdd(ctx, &redis.XAddArgs{
		Stream: h.stream,
		MaxLen: h.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":     event.EventID().String(),
			"event_type":   event.EventType(),
			"aggregate_id": event.AggregateID().String(),
			"payload":      string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("append %s to stream %s: %w", event.EventType(), h.stream, err)
	}
	return nil
}

var _ shared.EventHandler = (*RedisStreamHandler)(nil)
