package postgres

import (
	"context"
	"fmt"

	"completion-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// EventLog appends published events to the grade_events ledger.
type EventLog struct {
	pool *pgxpool.Pool
}

func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

func (l *EventLog) Publish(ctx context.Context, events ...domain.Event) error {
	batch := &pgx.Batch{}
	for _, event := range events {
		payload, err := event.Payload()
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event.Type, err)
		}
		batch.Queue(`
			INSERT INTO grade_events (id, block_id, learner_id, type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
			event.ID, event.Key.BlockID, event.Key.LearnerID, string(event.Type), string(payload), event.At)
	}

	br := l.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}
	return nil
}

// ListEvents returns a learner's events for a block, oldest first.
func (l *EventLog) ListEvents(ctx context.Context, key domain.BlockKey) ([]domain.Event, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id::text, type, payload, created_at FROM grade_events
		WHERE block_id=$1 AND learner_id=$2
		ORDER BY seq`, key.BlockID, key.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			id, typ string
			payload []byte
			event   domain.Event
		)
		if err := rows.Scan(&id, &typ, &payload, &event.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event, err = domain.DecodeEvent(id, domain.EventType(typ), key, payload, event.At)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", id, err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
