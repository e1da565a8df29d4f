package model

import (
	"time"

	"github.com/google/uuid"
)

type StockChanged struct {
	ProductIDs []uuid.UUID
	At         time.Time
}

func (e StockChanged) Type() string { return "StockChanged" }

func (e StockChanged) OccurredAt() time.Time { return e.At }
