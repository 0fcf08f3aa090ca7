package stock

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/broker"
	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
	"github.com/ariefcatur/go-petshop-orders.git/internal/orders"
)

// Consumer applies deduction and restore messages to the ledger. The
// processed-message ledger is written before applying, matching at-least-once
// delivery: a replayed message is a no-op.
type Consumer struct {
	Ledger    Ledger
	Processed ProcessedStore
	log       *logrus.Entry
	skipped   atomic.Int64
}

func NewConsumer(l Ledger, p ProcessedStore) *Consumer {
	return &Consumer{
		Ledger:    l,
		Processed: p,
		log:       logrus.WithField("component", "stock-consumer"),
	}
}

// HandleDeduction is wired to the stock-deduction destination.
func (c *Consumer) HandleDeduction(ctx context.Context, m broker.Message) error {
	return c.handle(ctx, KindDeduction, m)
}

// HandleRestore is wired to the stock-restore destination.
func (c *Consumer) HandleRestore(ctx context.Context, m broker.Message) error {
	return c.handle(ctx, KindRestore, m)
}

func (c *Consumer) handle(ctx context.Context, kind string, m broker.Message) error {
	var msg orders.StockMessage
	if err := json.Unmarshal(m.Payload, &msg); err != nil {
		// poison message, redelivery cannot fix it
		c.log.WithError(err).WithField("destination", m.Destination).Error("dropping undecodable message")
		return nil
	}

	seen, err := c.Processed.Seen(ctx, kind, msg.OrderID)
	if err != nil {
		return err
	}
	if seen {
		c.log.WithFields(logrus.Fields{"kind": kind, "order_id": msg.OrderID}).Debug("replay ignored")
		return nil
	}
	if err := c.Processed.Mark(ctx, kind, msg.OrderID); err != nil {
		return err
	}

	for _, it := range msg.Items {
		switch kind {
		case KindDeduction:
			err := c.Ledger.Reduce(ctx, it.ProductID, it.Quantity)
			switch {
			case err == nil:
			case errors.Is(err, errs.ErrInsufficientStock):
				// no feedback channel to the order service: the order stays
				// Confirmed against an under-fulfilled ledger, visible only
				// to operators through this log and counter
				c.skipped.Add(1)
				c.log.WithFields(logrus.Fields{
					"order_id":   msg.OrderID,
					"product_id": it.ProductID,
					"quantity":   it.Quantity,
				}).Error("insufficient stock, deduction line skipped")
			case errors.Is(err, errs.ErrNotFound):
				c.log.WithFields(logrus.Fields{
					"order_id":   msg.OrderID,
					"product_id": it.ProductID,
				}).Error("unknown product, deduction line skipped")
			default:
				return err
			}
		case KindRestore:
			if err := c.Ledger.Add(ctx, it.ProductID, it.Quantity); err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					c.log.WithFields(logrus.Fields{
						"order_id":   msg.OrderID,
						"product_id": it.ProductID,
					}).Error("unknown product, restore line skipped")
					continue
				}
				return err
			}
		}
	}
	return nil
}

// SkippedLines reports deduction lines dropped for lack of stock since start.
func (c *Consumer) SkippedLines() int64 {
	return c.skipped.Load()
}
