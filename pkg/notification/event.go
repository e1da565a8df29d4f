package notification

import (
	"time"

	"github.com/google/uuid"
)

type Event interface {
	Type() string
	OccurredAt() time.Time
}

type OrderPlaced struct {
	OrderID    uuid.UUID
	ProductIDs []uuid.UUID
	At         time.Time
}

func (e OrderPlaced) Type() string { return "OrderPlaced" }

func (e OrderPlaced) OccurredAt() time.Time { return e.At }

// envelope is the wire form shared by the broadcast transport and the
// polled signal slot. Consumers never act on the payload fields; the
// event only tells them to re-query the store.
type envelope struct {
	Type       string      `json:"type"`
	ProductIDs []uuid.UUID `json:"product_ids,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
