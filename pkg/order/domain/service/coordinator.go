package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront/pkg/cart"
	invmodel "storefront/pkg/inventory/domain/model"
	invservice "storefront/pkg/inventory/domain/service"
	"storefront/pkg/notification"
	"storefront/pkg/order/domain/model"
)

var (
	ErrMissingSession            = errors.New("no logged-in user session")
	ErrEmptySelection            = errors.New("nothing selected to purchase")
	ErrMissingAddress            = errors.New("delivery address not captured")
	ErrOrderPersistFailed        = errors.New("failed to save order")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
)

// PaymentConfirmation carries what the gateway checkout widget hands
// back after a prepaid payment.
type PaymentConfirmation struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

type PaymentVerifier interface {
	Verify(gatewayOrderID, paymentID, signature string) bool
}

type Notifier interface {
	Notify(ctx context.Context, ev notification.Event)
}

type PlaceOrderInput struct {
	UserID        string
	BuyNow        bool
	PaymentMethod string
	Payment       *PaymentConfirmation
}

// Coordinator owns the single canonical checkout entry point. Each
// attempt runs validate, reserve, persist, notify in that order: an
// order is never persisted without its stock first reserved, and a
// persist failure releases the reservation before the caller sees the
// error. Failed attempts are terminal; re-submitting starts over.
type Coordinator interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*model.Order, error)
}

func NewCoordinator(
	basket *cart.Cart,
	ledger invservice.LedgerService,
	orders model.OrderRepository,
	verifier PaymentVerifier,
	notifier Notifier,
	log logrus.FieldLogger,
) Coordinator {
	return &coordinator{
		basket:   basket,
		ledger:   ledger,
		orders:   orders,
		verifier: verifier,
		notifier: notifier,
		log:      log,
	}
}

type coordinator struct {
	basket   *cart.Cart
	ledger   invservice.LedgerService
	orders   model.OrderRepository
	verifier PaymentVerifier
	notifier Notifier
	log      logrus.FieldLogger
}

func (c *coordinator) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*model.Order, error) {
	items, address, err := c.validate(input)
	if err != nil {
		return nil, err
	}

	// Prepaid attempts are rejected before touching stock when the
	// gateway signature does not verify. No order proceeds on a failed
	// verification.
	if input.PaymentMethod != model.PaymentCOD {
		p := input.Payment
		if p == nil || !c.verifier.Verify(p.GatewayOrderID, p.PaymentID, p.Signature) {
			return nil, ErrPaymentVerificationFailed
		}
	}

	lines := make([]invservice.ReservationLine, len(items))
	for i, it := range items {
		lines[i] = invservice.ReservationLine{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity}
	}
	if err := c.ledger.Reserve(ctx, lines); err != nil {
		return nil, err
	}

	order, err := c.buildOrder(input, items, *address)
	if err == nil {
		err = c.orders.Create(ctx, order)
	}
	if err != nil {
		c.log.WithError(err).WithField("user_id", input.UserID).Error("order persist failed, releasing reservation")
		c.ledger.Release(ctx, lines)
		return nil, ErrOrderPersistFailed
	}

	c.notify(ctx, order)

	if input.BuyNow {
		err = c.basket.ClearBuyNow()
	} else {
		err = c.basket.Clear()
	}
	if err != nil {
		c.log.WithError(err).Warn("failed to clear local selection after checkout")
	}

	return order, nil
}

func (c *coordinator) validate(input PlaceOrderInput) ([]cart.LineItem, *cart.Address, error) {
	if input.UserID == "" {
		return nil, nil, ErrMissingSession
	}

	var items []cart.LineItem
	if input.BuyNow {
		item, err := c.basket.BuyNow()
		if err != nil {
			return nil, nil, err
		}
		if item != nil {
			items = []cart.LineItem{*item}
		}
	} else {
		var err error
		items, err = c.basket.Items()
		if err != nil {
			return nil, nil, err
		}
	}
	if len(items) == 0 {
		return nil, nil, ErrEmptySelection
	}

	address, err := c.basket.Address()
	if err != nil {
		return nil, nil, err
	}
	if address == nil || !address.Complete() {
		return nil, nil, ErrMissingAddress
	}
	return items, address, nil
}

func (c *coordinator) buildOrder(input PlaceOrderInput, items []cart.LineItem, address cart.Address) (*model.Order, error) {
	id, err := c.orders.NextID()
	if err != nil {
		return nil, err
	}

	status := model.Confirmed
	if input.PaymentMethod == model.PaymentCOD {
		status = model.Pending
	}

	order := &model.Order{
		ID:     id,
		UserID: input.UserID,
		Status: status,
		ShippingAddress: model.ShippingAddress{
			FullName: address.FullName,
			Phone:    address.Phone,
			Street:   address.Street,
			City:     address.City,
			State:    address.State,
			Pincode:  address.Pincode,
		},
		PaymentMethod: input.PaymentMethod,
		CreatedAt:     time.Now().UTC(),
	}
	if input.Payment != nil {
		order.PaymentID = input.Payment.PaymentID
	}

	for _, it := range items {
		order.Items = append(order.Items, model.Item{
			ProductID:  it.ProductID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
			ImageURL:   it.ImageURL,
			Category:   it.Category,
		})
		order.TotalCents += it.PriceCents * int64(it.Quantity)
	}
	return order, nil
}

func (c *coordinator) notify(ctx context.Context, order *model.Order) {
	ids := make([]uuid.UUID, len(order.Items))
	for i, it := range order.Items {
		ids[i] = it.ProductID
	}
	now := time.Now().UTC()

	c.notifier.Notify(ctx, invmodel.StockChanged{ProductIDs: ids, At: now})
	c.notifier.Notify(ctx, notification.OrderPlaced{OrderID: order.ID, ProductIDs: ids, At: now})
}
