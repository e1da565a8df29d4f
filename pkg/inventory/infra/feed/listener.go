// Package feed delivers product row changes pushed by the store.
//
// The products table has a trigger that emits a pg_notify on the
// product_changes channel for every insert or update; this listener
// holds a dedicated connection on LISTEN and reconnects with backoff
// when the connection drops. Delivery is at-least-once and anything
// sent while disconnected is lost, so consumers treat a notification
// as a trigger to re-query, never as data.
package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"storefront/pkg/inventory/domain/model"
)

const channel = "product_changes"

type Listener struct {
	dsn string
	log logrus.FieldLogger
}

func NewListener(dsn string, log logrus.FieldLogger) *Listener {
	return &Listener{dsn: dsn, log: log}
}

func (l *Listener) Subscribe(ctx context.Context, fn func(model.ProductChange)) (model.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel}

	go l.run(ctx, fn)
	return sub, nil
}

func (l *Listener) run(ctx context.Context, fn func(model.ProductChange)) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // keep reconnecting for the lifetime of the subscription

	// Retry returns only when the context is cancelled or listen
	// reports a permanent failure.
	_ = backoff.Retry(func() error {
		return l.listen(ctx, fn)
	}, backoff.WithContext(bo, ctx))
}

func (l *Listener) listen(ctx context.Context, fn func(model.ProductChange)) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		l.log.WithError(err).Warn("change feed connect failed")
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		l.log.WithError(err).Warn("change feed LISTEN failed")
		return err
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			l.log.WithError(err).Warn("change feed connection lost, reconnecting")
			return err
		}

		var change model.ProductChange
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			l.log.WithError(err).WithField("payload", n.Payload).Warn("malformed change notification")
			continue
		}
		fn(change)
	}
}

type subscription struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (s *subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}
