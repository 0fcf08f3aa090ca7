package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore backs tests and the in-process broker provider.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Add(ctx context.Context, destination string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := make([]byte, len(payload))
	copy(body, payload)
	s.entries = append(s.entries, Entry{
		ID:          uuid.NewString(),
		Destination: destination,
		Payload:     body,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) Pending(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, limit)
	for _, e := range s.entries {
		if e.Status != StatusPending {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Status = StatusSent
		}
	}
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Attempts++
		}
	}
	return nil
}
