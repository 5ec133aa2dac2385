// Package hooks implements the fan-out event bus that decouples event
// producers (the session Runner, the QA Loop, the Tool Registry) from
// consumers (the memory store subscriber, the stream.Sink bridge,
// telemetry). Events are delivered synchronously, in registration order,
// and publishing stops at the first subscriber error so a critical
// subscriber (memory persistence) can halt a run.
package hooks

import (
	"context"
	"errors"
	"sync"
)

type (
	// SubscriberFunc adapts an ordinary function to the Subscriber interface.
	SubscriberFunc func(ctx context.Context, event Event) error

	// Bus publishes events to registered subscribers in a fan-out pattern.
	// The bus is thread-safe and supports concurrent Publish, Register, and
	// subscription Close operations.
	Bus interface {
		// Publish delivers event to every currently registered subscriber,
		// in registration order, stopping at the first subscriber error.
		Publish(ctx context.Context, event Event) error
		// Register adds a subscriber and returns a Subscription that can be
		// closed to unregister. Returns an error if sub is nil.
		Register(sub Subscriber) (Subscription, error)
	}

	// Subscriber reacts to published events.
	Subscriber interface {
		HandleEvent(ctx context.Context, event Event) error
	}

	// Subscription represents an active registration on a Bus. Close is
	// idempotent and thread-safe.
	Subscription interface {
		Close() error
	}

	bus struct {
		mu          sync.RWMutex
		subscribers []*subscription
	}

	subscription struct {
		bus  *bus
		sub  Subscriber
		once sync.Once
	}
)

// HandleEvent implements Subscriber by invoking the function.
func (fn SubscriberFunc) HandleEvent(ctx context.Context, event Event) error {
	return fn(ctx, event)
}

// NewBus constructs a new in-memory event bus, ready for immediate use.
func NewBus() Bus {
	return &bus{}
}

// Publish delivers event to every currently registered subscriber. The
// subscriber snapshot is captured before iteration begins, so
// registrations/unregistrations during Publish do not affect this delivery.
func (b *bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s.sub)
	}
	b.mu.RUnlock()
	for _, sub := range subs {
		if err := sub.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a subscriber to the bus.
func (b *bus) Register(sub Subscriber) (Subscription, error) {
	if sub == nil {
		return nil, errors.New("subscriber is required")
	}
	s := &subscription{bus: b, sub: sub}
	b.mu.Lock()
	b.subscribers = append(b.subscribers, s)
	b.mu.Unlock()
	return s, nil
}

// Close removes the subscriber from the bus. Safe to call multiple times.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		for i, existing := range s.bus.subscribers {
			if existing == s {
				s.bus.subscribers = append(s.bus.subscribers[:i:i], s.bus.subscribers[i+1:]...)
				break
			}
		}
		s.bus.mu.Unlock()
	})
	return nil
}
