// Package outbox durably records broker sends that failed after the owning
// state change already committed, so the side effect is replayed instead of
// lost.
package outbox

import (
	"context"
	"time"
)

type EntryStatus string

const (
	StatusPending EntryStatus = "PENDING"
	StatusSent    EntryStatus = "SENT"
)

// Entry is one parked message waiting for redelivery.
type Entry struct {
	ID          string
	Destination string
	Payload     []byte
	Status      EntryStatus
	Attempts    int
	CreatedAt   time.Time
}

type Store interface {
	Add(ctx context.Context, destination string, payload []byte) error
	Pending(ctx context.Context, limit int) ([]Entry, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}
