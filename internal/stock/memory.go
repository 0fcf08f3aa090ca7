package stock

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

// MemoryLedger mirrors the PGLedger semantics for tests and the in-process
// broker provider.
type MemoryLedger struct {
	mu   sync.RWMutex
	byID map[int64]Product
}

var _ Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{byID: make(map[int64]Product)}
}

// Put seeds or replaces a ledger entry.
func (l *MemoryLedger) Put(p Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[p.ID] = p
}

func (l *MemoryLedger) Get(ctx context.Context, id int64) (*Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.byID[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "product %d", id)
	}
	cp := p
	return &cp, nil
}

func (l *MemoryLedger) HasStock(ctx context.Context, id, qty int64) (bool, error) {
	p, err := l.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return p.QuantityInStock >= qty, nil
}

func (l *MemoryLedger) Reduce(ctx context.Context, id, qty int64) error {
	if qty <= 0 {
		return errors.Wrapf(errs.ErrValidation, "reduce product %d by %d", id, qty)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.byID[id]
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "product %d", id)
	}
	if p.QuantityInStock < qty {
		return errors.Wrapf(errs.ErrInsufficientStock,
			"product %d: requested %d, in stock %d", id, qty, p.QuantityInStock)
	}
	p.QuantityInStock -= qty
	l.byID[id] = p
	return nil
}

func (l *MemoryLedger) Add(ctx context.Context, id, qty int64) error {
	if qty <= 0 {
		return errors.Wrapf(errs.ErrValidation, "add product %d by %d", id, qty)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.byID[id]
	if !ok {
		return errors.Wrapf(errs.ErrNotFound, "product %d", id)
	}
	p.QuantityInStock += qty
	l.byID[id] = p
	return nil
}
