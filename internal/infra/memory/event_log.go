package memory

import (
	"context"
	"sync"

	"completion-service/internal/domain"
)

// EventLog records published events in order. It backs demos and tests where
// no external bus is configured.
type EventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Publish(_ context.Context, events ...domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (l *EventLog) Events() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Event, len(l.events))
	copy(out, l.events)
	return out
}
