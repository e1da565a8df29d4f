// Package notification propagates inventory-change signals to every
// context showing inventory-derived state.
//
// No single delivery path is reliable on its own, so three are layered:
// the store's change feed, the in-process listener list, and a
// cross-process broadcast with a polled signal slot as fallback. All of
// them land on the same debounced refresh tick, and every consumer
// re-queries the store on a tick rather than trusting event payloads,
// so duplicate delivery is harmless by construction.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Publisher is an outbound transport for events leaving this context.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Bus struct {
	log        logrus.FieldLogger
	debounce   time.Duration
	publishers []Publisher

	mu        sync.Mutex
	listeners []func()
	pending   *time.Timer
}

func NewBus(log logrus.FieldLogger, debounce time.Duration, publishers ...Publisher) *Bus {
	return &Bus{log: log, debounce: debounce, publishers: publishers}
}

// OnInventoryChanged registers a refresh callback and returns a
// function that unregisters it.
func (b *Bus) OnInventoryChanged(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
	i := len(b.listeners) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if i < len(b.listeners) && b.listeners[i] != nil {
			b.listeners[i] = nil
		}
	}
}

// Notify is the coordinator's entry point: it ticks local listeners and
// fans the event out to every cross-context transport. Transport
// failures are logged and swallowed; by the time Notify runs the order
// has already succeeded.
func (b *Bus) Notify(ctx context.Context, ev Event) {
	b.Trigger()
	for _, p := range b.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			b.log.WithError(err).WithField("event", ev.Type()).Warn("notification delivery failed")
		}
	}
}

// Trigger requests a refresh tick. Any delivery path may call it any
// number of times; calls within the debounce window coalesce into a
// single tick.
func (b *Bus) Trigger() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		return
	}
	b.pending = time.AfterFunc(b.debounce, b.fire)
}

func (b *Bus) fire() {
	b.mu.Lock()
	b.pending = nil
	listeners := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		if fn != nil {
			listeners = append(listeners, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
