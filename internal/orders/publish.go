package orders

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/broker"
	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
	"github.com/ariefcatur/go-petshop-orders.git/internal/outbox"
)

// Publisher sends stock messages and parks them in the outbox when the
// broker is down, so a committed status change never loses its side effect
// to a transient send failure.
type Publisher struct {
	Broker broker.Broker
	Outbox outbox.Store
	log    *logrus.Entry
}

func NewPublisher(b broker.Broker, store outbox.Store) *Publisher {
	return &Publisher{Broker: b, Outbox: store, log: logrus.WithField("component", "publisher")}
}

func (p *Publisher) Publish(ctx context.Context, destination string, msg StockMessage) error {
	err := p.Broker.Send(ctx, destination, msg)
	if err == nil {
		return nil
	}
	p.log.WithError(err).WithFields(logrus.Fields{
		"destination": destination,
		"order_id":    msg.OrderID,
	}).Error("broker send failed, parking message in outbox")

	payload, merr := json.Marshal(msg)
	if merr != nil {
		return errors.Wrapf(errs.ErrMessaging, "marshal message for %s: %s", destination, merr)
	}
	if oerr := p.Outbox.Add(ctx, destination, payload); oerr != nil {
		return errors.Wrapf(errs.ErrMessaging, "send and outbox both failed for %s: %s; %s", destination, err, oerr)
	}
	return nil
}
