package orders

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
	"github.com/ariefcatur/go-petshop-orders.git/internal/peers"
)

// CustomerDirectory and ProductCatalog are the peer services this workflow
// reads from. Both are reached through the resilient client.
type CustomerDirectory interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
}

type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (peers.Product, error)
}

// Service owns the order state machine and its stock side effects. Confirm
// and Cancel return to the caller as soon as the status write commits; the
// corresponding stock movement is applied asynchronously by the ledger
// consumer.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	products  ProductCatalog
	publisher *Publisher
	log       *logrus.Entry
}

func NewService(repo Repository, customers CustomerDirectory, products ProductCatalog, pub *Publisher) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		products:  products,
		publisher: pub,
		log:       logrus.WithField("component", "orders"),
	}
}

type CreateItem struct {
	ProductID int64
	Quantity  int64
}

type CreateInput struct {
	CustomerID    int64
	PaymentMethod string
	Notes         string
	Items         []CreateItem
}

// Create validates the customer and every line item against the owning
// services, snapshots unit prices and persists the order as Pending.
// Stock is checked, not reserved: the window between this check and Confirm
// is part of the protocol, not an oversight.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if in.CustomerID <= 0 || len(in.Items) == 0 {
		return nil, errors.Wrap(errs.ErrValidation, "customer id and at least one item required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, errors.Wrapf(errs.ErrValidation, "invalid line for product %d", it.ProductID)
		}
	}

	ok, err := s.customers.CustomerExists(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "customer %d", in.CustomerID)
	}

	items := make([]Item, 0, len(in.Items))
	var total int64
	for _, it := range in.Items {
		p, err := s.products.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, errors.Wrapf(errs.ErrConflict, "product %d is inactive", it.ProductID)
		}
		if p.QuantityInStock < it.Quantity {
			return nil, errors.Wrapf(errs.ErrInsufficientStock,
				"product %d: requested %d, in stock %d", it.ProductID, it.Quantity, p.QuantityInStock)
		}
		sub := it.Quantity * p.PriceCents
		items = append(items, Item{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
			SubtotalCents:  sub,
		})
		total += sub
	}

	o := &Order{
		CustomerID:    in.CustomerID,
		Items:         items,
		Status:        StatusPending,
		TotalCents:    total,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"order_id": o.ID, "total_cents": total}).Info("order created")
	return o, nil
}

// Confirm moves a Pending order to Confirmed and emits the deduction
// message. Stock is not yet deducted when this returns.
func (s *Service) Confirm(ctx context.Context, id int64) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, errors.Wrapf(errs.ErrConflict, "confirm order %d: status %s", id, o.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusConfirmed); err != nil {
		return nil, err
	}
	o.Status = StatusConfirmed

	msg := StockMessage{OrderID: id, Items: stockItems(o.Items)}
	if err := s.publisher.Publish(ctx, DestStockDeduction, msg); err != nil {
		// the status is already committed; the publisher has logged and
		// this only happens when the outbox fallback failed too
		s.log.WithError(err).WithField("order_id", id).Error("deduction message not recorded")
	}
	return o, nil
}

// Cancel is legal from any non-terminal state except Delivered. Orders that
// already caused a deduction get a restore message; a Pending cancel is a
// pure state change.
func (s *Service) Cancel(ctx context.Context, id int64) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusDelivered || o.Status == StatusCancelled {
		return nil, errors.Wrapf(errs.ErrConflict, "cancel order %d: status %s", id, o.Status)
	}
	prev := o.Status
	if err := s.repo.UpdateStatus(ctx, id, prev, StatusCancelled); err != nil {
		return nil, err
	}
	o.Status = StatusCancelled

	if StockAffecting(prev) {
		msg := StockMessage{OrderID: id, Items: stockItems(o.Items)}
		if err := s.publisher.Publish(ctx, DestStockRestore, msg); err != nil {
			s.log.WithError(err).WithField("order_id", id).Error("restore message not recorded")
		}
	}
	return o, nil
}

// Advance moves an order along Confirmed -> Processing -> Shipped ->
// Delivered. Confirm and Cancel have their own entry points because they
// emit messages.
func (s *Service) Advance(ctx context.Context, id int64, to Status) (*Order, error) {
	if !Known(to) {
		return nil, errors.Wrapf(errs.ErrValidation, "unknown status %q", to)
	}
	if to == StatusConfirmed || to == StatusCancelled {
		return nil, errors.Wrapf(errs.ErrValidation, "use confirm/cancel for %s", to)
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, errors.Wrapf(errs.ErrConflict, "order %d: %s -> %s", id, o.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, o.Status, to); err != nil {
		return nil, err
	}
	o.Status = to
	return o, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes a cancelled order; active and fulfilled orders stay.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
