// Package stock owns the per-product inventory counters and the consumer
// that applies deduction and restore messages from the order service.
package stock

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

// Product is a stock ledger entry. QuantityInStock never goes below zero.
type Product struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"price_cents"`
	QuantityInStock int64  `json:"quantity_in_stock"`
	Active          bool   `json:"active"`
}

// Ledger moves inventory. Reduce and Add must be atomic per product row;
// concurrent movers for the same product are resolved by the conditional
// single-statement update, last writer wins.
type Ledger interface {
	Get(ctx context.Context, id int64) (*Product, error)
	HasStock(ctx context.Context, id, qty int64) (bool, error)
	Reduce(ctx context.Context, id, qty int64) error
	Add(ctx context.Context, id, qty int64) error
}

type PGLedger struct{ DB *pgxpool.Pool }

var _ Ledger = (*PGLedger)(nil)

func (l *PGLedger) Get(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := l.DB.QueryRow(ctx, `
		SELECT id, name, price_cents, quantity_in_stock, active
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.PriceCents, &p.QuantityInStock, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(errs.ErrNotFound, "product %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *PGLedger) HasStock(ctx context.Context, id, qty int64) (bool, error) {
	p, err := l.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return p.QuantityInStock >= qty, nil
}

// Reduce decrements atomically; the WHERE clause is the only guard against
// concurrent movers on the same row.
func (l *PGLedger) Reduce(ctx context.Context, id, qty int64) error {
	if qty <= 0 {
		return errors.Wrapf(errs.ErrValidation, "reduce product %d by %d", id, qty)
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET quantity_in_stock = quantity_in_stock - $2
		WHERE id = $1 AND quantity_in_stock >= $2`, id, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	p, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	return errors.Wrapf(errs.ErrInsufficientStock,
		"product %d: requested %d, in stock %d", id, qty, p.QuantityInStock)
}

// Add always succeeds for an existing product; no upper bound.
func (l *PGLedger) Add(ctx context.Context, id, qty int64) error {
	if qty <= 0 {
		return errors.Wrapf(errs.ErrValidation, "add product %d by %d", id, qty)
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET quantity_in_stock = quantity_in_stock + $2
		WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.Wrapf(errs.ErrNotFound, "product %d", id)
	}
	return nil
}
