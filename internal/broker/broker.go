// Package broker is the single seam between services that exchange stock
// messages. Three interchangeable transports sit behind one contract:
// in-process (memory), durable queue (redis lists) and topics (kafka).
// Payloads are JSON-encoded with snake_case field names on both sides, and a
// send either succeeds or returns an error wrapping errs.ErrMessaging; no
// transport may drop silently.
package broker

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

// Message is one delivered payload. Destination is already normalized.
type Message struct {
	Destination string
	Payload     []byte
}

// Handler must return nil only if the message was applied and may be acked.
// A non-nil error leaves the message for redelivery.
type Handler func(ctx context.Context, m Message) error

// Broker sends JSON payloads to logical destinations.
type Broker interface {
	Send(ctx context.Context, destination string, payload any) error
	SendBatch(ctx context.Context, destination string, payloads []any) error
	Healthy(ctx context.Context) bool
	Close() error
}

// Consumer delivers messages from one destination to a handler until the
// context is cancelled.
type Consumer interface {
	Consume(ctx context.Context, destination string, h Handler) error
}

func marshalPayload(destination string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrMessaging, "marshal payload for %s: %s", destination, err)
	}
	return b, nil
}
