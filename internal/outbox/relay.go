package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/broker"
)

// Relay periodically replays pending entries through the broker.
type Relay struct {
	Store    Store
	Broker   broker.Broker
	Interval time.Duration
	Batch    int
	log      *logrus.Entry
}

func NewRelay(store Store, b broker.Broker, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{
		Store:    store,
		Broker:   b,
		Interval: interval,
		Batch:    100,
		log:      logrus.WithField("component", "outbox-relay"),
	}
}

// Run ticks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Flush(ctx)
		}
	}
}

// Flush replays one batch of pending entries.
func (r *Relay) Flush(ctx context.Context) {
	entries, err := r.Store.Pending(ctx, r.Batch)
	if err != nil {
		r.log.WithError(err).Warn("reading pending entries failed")
		return
	}
	for _, e := range entries {
		if err := r.Broker.Send(ctx, e.Destination, json.RawMessage(e.Payload)); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"entry_id":    e.ID,
				"destination": e.Destination,
				"attempts":    e.Attempts + 1,
			}).Warn("replay failed")
			if merr := r.Store.MarkFailed(ctx, e.ID); merr != nil {
				r.log.WithError(merr).WithField("entry_id", e.ID).Error("mark failed")
			}
			continue
		}
		if err := r.Store.MarkSent(ctx, e.ID); err != nil {
			r.log.WithError(err).WithField("entry_id", e.ID).Error("mark sent")
		}
	}
}
