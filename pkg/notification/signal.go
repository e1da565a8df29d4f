package notification

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/pkg/localstore"
)

const signalKey = "inventorySignal"

// SignalSlot is the poll-based fallback path: the emitting context
// writes a timestamped flag into a shared key-value slot and every
// other context polls it at a bounded interval. It only matters when
// the push channels are down, so its latency bound is the poll
// interval and signals older than maxAge are discarded rather than
// acted on.
type SignalSlot struct {
	store    *localstore.Store
	log      logrus.FieldLogger
	interval time.Duration
	maxAge   time.Duration

	mu       sync.Mutex
	lastSeen time.Time
}

func NewSignalSlot(store *localstore.Store, log logrus.FieldLogger, interval, maxAge time.Duration) *SignalSlot {
	return &SignalSlot{store: store, log: log, interval: interval, maxAge: maxAge}
}

func (s *SignalSlot) Publish(_ context.Context, ev Event) error {
	env := envelope{Type: ev.Type(), Timestamp: ev.OccurredAt()}
	if op, ok := ev.(OrderPlaced); ok {
		env.ProductIDs = op.ProductIDs
	}
	return s.store.Set(signalKey, env)
}

// Poll watches the slot until ctx is cancelled, ticking the bus when a
// fresh signal appears.
func (s *SignalSlot) Poll(ctx context.Context, bus *Bus) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Check(time.Now()) {
				bus.Trigger()
			}
		}
	}
}

// Check reports whether the slot holds a signal that is both unseen and
// fresh at the given instant.
func (s *SignalSlot) Check(now time.Time) bool {
	var env envelope
	if _, err := s.store.Get(signalKey, &env); err != nil {
		if err != localstore.ErrNotFound {
			s.log.WithError(err).Warn("signal slot read failed")
		}
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !env.Timestamp.After(s.lastSeen) {
		return false
	}
	s.lastSeen = env.Timestamp

	if now.Sub(env.Timestamp) > s.maxAge {
		s.log.WithField("age", now.Sub(env.Timestamp)).Debug("discarding stale inventory signal")
		return false
	}
	return true
}
