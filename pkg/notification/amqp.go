package notification

import (
	"context"
	"encoding/json"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const exchangeName = "storefront.inventory"

// SetupBroadcast dials the broker and declares the fanout exchange that
// carries inventory signals between contexts.
func SetupBroadcast(url string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection

	err := backoff.Retry(func() (dialErr error) {
		conn, dialErr = amqp.Dial(url)
		return dialErr
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, errors.Wrap(err, "open channel")
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", false, false, false, false, nil); err != nil {
		return nil, nil, errors.Wrap(err, "declare exchange")
	}
	return conn, ch, nil
}

// Broadcaster publishes events to the fanout exchange so every other
// context receives them regardless of which process emitted them.
type Broadcaster struct {
	ch *amqp.Channel
}

func NewBroadcaster(ch *amqp.Channel) *Broadcaster {
	return &Broadcaster{ch: ch}
}

func (b *Broadcaster) Publish(ctx context.Context, ev Event) error {
	env := envelope{Type: ev.Type(), Timestamp: ev.OccurredAt()}
	if op, ok := ev.(OrderPlaced); ok {
		env.ProductIDs = op.ProductIDs
	}
	body, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	return b.ch.PublishWithContext(ctx,
		exchangeName,
		"", // fanout ignores the routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// SubscribeBroadcast binds an exclusive queue to the exchange and ticks
// the bus for every message received. The payload is only decoded for
// logging; the tick is the signal.
func SubscribeBroadcast(ctx context.Context, ch *amqp.Channel, bus *Bus, log logrus.FieldLogger) error {
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return errors.Wrap(err, "declare queue")
	}
	if err := ch.QueueBind(q.Name, "", exchangeName, false, nil); err != nil {
		return errors.Wrap(err, "bind queue")
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "start consume")
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal(d.Body, &env); err != nil {
					log.WithError(err).Warn("malformed broadcast signal")
					continue
				}
				log.WithField("event", env.Type).Debug("broadcast signal received")
				bus.Trigger()
			}
		}
	}()
	return nil
}
