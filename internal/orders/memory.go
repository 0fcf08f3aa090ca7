package orders

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

// MemoryRepo is the in-memory Repository used by tests and the in-process
// broker provider. Values are copied in and out so callers cannot mutate the
// stored state.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Order
}

var _ Repository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{nextID: 1, byID: make(map[int64]Order)}
}

func copyOrder(o Order) Order {
	cp := o
	cp.Items = make([]Item, len(o.Items))
	copy(cp.Items, o.Items)
	return cp
}

func (r *MemoryRepo) Create(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.byID[o.ID] = copyOrder(*o)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id int64) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "order %d", id)
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "order %d", id)
	}
	if o.Status != from {
		return errors.Wrapf(errs.ErrConflict, "order %d is no longer %s", id, from)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.byID[id] = o
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "order %d", id)
	}
	if o.Status != StatusCancelled {
		return errors.Wrapf(errs.ErrConflict, "delete order %d: status %s", id, o.Status)
	}
	delete(r.byID, id)
	return nil
}

// Len reports the number of stored orders.
func (r *MemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
