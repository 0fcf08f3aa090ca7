package stock

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-petshop-orders.git/internal/redisx"
)

// Message kinds tracked by the processed-message ledger.
const (
	KindDeduction = "deduction"
	KindRestore   = "restore"
)

// ProcessedStore remembers which (order, kind) messages were already applied
// so at-least-once redelivery cannot move stock twice.
type ProcessedStore interface {
	Seen(ctx context.Context, kind string, orderID int64) (bool, error)
	Mark(ctx context.Context, kind string, orderID int64) error
}

type RedisProcessed struct{ RDB *redis.Client }

var _ ProcessedStore = (*RedisProcessed)(nil)

func (s *RedisProcessed) Seen(ctx context.Context, kind string, orderID int64) (bool, error) {
	return redisx.Exists(ctx, s.RDB, fmt.Sprintf(redisx.KeyProcessed, kind, orderID))
}

func (s *RedisProcessed) Mark(ctx context.Context, kind string, orderID int64) error {
	key := fmt.Sprintf(redisx.KeyProcessed, kind, orderID)
	return s.RDB.Set(ctx, key, "1", redisx.TTLProcessed).Err()
}

// MemoryProcessed backs tests and the in-process broker provider.
type MemoryProcessed struct {
	mu   sync.Mutex
	seen map[string]bool
}

var _ ProcessedStore = (*MemoryProcessed)(nil)

func NewMemoryProcessed() *MemoryProcessed {
	return &MemoryProcessed{seen: make(map[string]bool)}
}

func (s *MemoryProcessed) Seen(ctx context.Context, kind string, orderID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[fmt.Sprintf("%s:%d", kind, orderID)], nil
}

func (s *MemoryProcessed) Mark(ctx context.Context, kind string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[fmt.Sprintf("%s:%d", kind, orderID)] = true
	return nil
}
