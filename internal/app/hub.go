package app

import (
	"context"
	"sync"

	"completion-service/internal/domain"
)

// EventPublisher delivers events to the host bus. Implementations must keep order.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// Hub fans events out to in-process subscribers of a block.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan domain.Event]struct{})}
}

// Publish never blocks on slow subscribers.
func (h *Hub) Publish(_ context.Context, events ...domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, event := range events {
		for ch := range h.subscribers[event.Key.BlockID] {
			select {
			case ch <- event:
			default:
				// drop the oldest queued event so the newest one always lands
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- event:
				default:
				}
			}
		}
	}
	return nil
}

// Subscribe returns a channel of events for blockID. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *Hub) Subscribe(blockID string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	h.mu.Lock()
	subs, ok := h.subscribers[blockID]
	if !ok {
		subs = make(map[chan domain.Event]struct{})
		h.subscribers[blockID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[blockID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, blockID)
		}
	}
	return ch, cancel
}

// MultiPublisher publishes to each publisher in turn and stops at the first error.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	for _, p := range m {
		if err := p.Publish(ctx, events...); err != nil {
			return err
		}
	}
	return nil
}
