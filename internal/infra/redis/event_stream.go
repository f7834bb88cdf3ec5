package redis

import (
	"context"
	"fmt"
	"time"

	"completion-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// EventStream appends events to a Redis stream that the host grading ledger
// consumes. All events of one call go out in a single pipeline, in order.
type EventStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewEventStream(client *redis.Client, stream string, maxLen int64) *EventStream {
	if stream == "" {
		stream = "block:events"
	}
	return &EventStream{client: client, stream: stream, maxLen: maxLen}
}

func (s *EventStream) Publish(ctx context.Context, events ...domain.Event) error {
	pipe := s.client.Pipeline()
	for _, event := range events {
		payload, err := event.Payload()
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event.Type, err)
		}
		args := &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]interface{}{
				"id":         event.ID,
				"type":       string(event.Type),
				"block_id":   event.Key.BlockID,
				"learner_id": event.Key.LearnerID,
				"payload":    string(payload),
				"at":         event.At.UTC().Format(time.RFC3339Nano),
			},
		}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Range reads back stream entries, oldest first.
func (s *EventStream) Range(ctx context.Context, count int64) ([]domain.Event, error) {
	msgs, err := s.client.XRangeN(ctx, s.stream, "-", "+", count).Result()
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(msgs))
	for _, msg := range msgs {
		str := func(k string) string {
			v, _ := msg.Values[k].(string)
			return v
		}
		at, _ := time.Parse(time.RFC3339Nano, str("at"))
		event, err := domain.DecodeEvent(str("id"), domain.EventType(str("type")), domain.BlockKey{
			BlockID:   str("block_id"),
			LearnerID: str("learner_id"),
		}, []byte(str("payload")), at)
		if err != nil {
			return nil, fmt.Errorf("decode stream entry %s: %w", msg.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}
