package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront/pkg/inventory/domain/model"
)

var ErrInvalidStockQuantity = errors.New("stock quantity must be a positive number")

// InsufficientStockError names the product that could not be reserved so
// the storefront can surface it verbatim.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q", e.ProductName)
}

func (e *InsufficientStockError) Unwrap() error { return model.ErrInsufficientStock }

// ReservationLine is one product/quantity pair to reserve. Lines are
// processed in the order given; there is no fairness across concurrent
// callers beyond the store's own atomicity.
type ReservationLine struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int
}

type LedgerService interface {
	// Reserve decrements stock for every line, all-or-nothing from the
	// caller's point of view. On failure at line k it restores lines
	// 1..k-1 best-effort and returns an *InsufficientStockError (or the
	// store error that interrupted the run).
	Reserve(ctx context.Context, lines []ReservationLine) error

	// Release restores a previously committed reservation, used when a
	// later step of checkout fails. Best-effort: individual restore
	// failures are logged, never returned.
	Release(ctx context.Context, lines []ReservationLine)
}

func NewLedgerService(store model.StockStore, log logrus.FieldLogger) LedgerService {
	return &ledgerService{store: store, log: log}
}

type ledgerService struct {
	store model.StockStore
	log   logrus.FieldLogger
}

func (s *ledgerService) Reserve(ctx context.Context, lines []ReservationLine) error {
	for _, l := range lines {
		if l.Quantity <= 0 {
			return ErrInvalidStockQuantity
		}
	}

	for i, l := range lines {
		ok, err := s.store.ConditionalDecrement(ctx, l.ProductID, l.Quantity)
		if err == nil && ok {
			continue
		}

		s.Release(ctx, lines[:i])

		if err != nil {
			return err
		}
		return &InsufficientStockError{ProductName: l.Name}
	}
	return nil
}

func (s *ledgerService) Release(ctx context.Context, lines []ReservationLine) {
	for _, l := range lines {
		if err := s.store.Increment(ctx, l.ProductID, l.Quantity); err != nil {
			// Leaves the store short by l.Quantity until someone
			// reconciles it by hand, so log everything needed for that.
			s.log.WithError(err).WithFields(logrus.Fields{
				"product_id": l.ProductID,
				"quantity":   l.Quantity,
			}).Error("stock restore failed, manual reconciliation required")
		}
	}
}
