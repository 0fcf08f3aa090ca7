package broker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

// MemoryBroker is the in-process transport: one buffered channel per
// destination, created lazily under a mutex. It backs tests and single-binary
// runs where producer and consumer share a process.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[string]chan Message
	buf    int
	closed bool
}

func NewMemoryBroker(buf int) *MemoryBroker {
	if buf <= 0 {
		buf = 256
	}
	return &MemoryBroker{queues: make(map[string]chan Message), buf: buf}
}

func (b *MemoryBroker) queue(dest string) (chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.Wrapf(errs.ErrMessaging, "send to %s: broker closed", dest)
	}
	q, ok := b.queues[dest]
	if !ok {
		q = make(chan Message, b.buf)
		b.queues[dest] = q
	}
	return q, nil
}

func (b *MemoryBroker) Send(ctx context.Context, destination string, payload any) error {
	dest := Normalize(destination)
	body, err := marshalPayload(dest, payload)
	if err != nil {
		return err
	}
	q, err := b.queue(dest)
	if err != nil {
		return err
	}
	select {
	case q <- Message{Destination: dest, Payload: body}:
		return nil
	default:
		// a full buffer is an explicit failure, never a silent drop
		return errors.Wrapf(errs.ErrMessaging, "send to %s: queue full", dest)
	}
}

func (b *MemoryBroker) SendBatch(ctx context.Context, destination string, payloads []any) error {
	for _, p := range payloads {
		if err := b.Send(ctx, destination, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBroker) Healthy(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

// Close stops intake. Channels stay open so in-flight consumers drain via
// their contexts.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Consume delivers messages for one destination until ctx is cancelled.
// A handler error re-enqueues the message, matching the at-least-once
// contract of the remote transports.
func (b *MemoryBroker) Consume(ctx context.Context, destination string, h Handler) error {
	dest := Normalize(destination)
	b.mu.Lock()
	q, ok := b.queues[dest]
	if !ok {
		q = make(chan Message, b.buf)
		b.queues[dest] = q
	}
	b.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-q:
			if err := h(ctx, m); err != nil {
				logrus.WithError(err).WithField("destination", dest).Warn("handler failed, redelivering")
				select {
				case q <- m:
				default:
					logrus.WithField("destination", dest).Error("redelivery queue full, message lost")
				}
			}
		}
	}
}
