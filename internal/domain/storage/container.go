package storage

import (
	"context"
	"fmt"

	"storefront/internal/domain/carts"
	"storefront/internal/domain/orders"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool   *pgxpool.Pool // nil when running without a database
	Carts  carts.SnapshotStore
	Orders orders.Store
}

// NewContainer wires Postgres-backed repositories. cartStore is chosen by
// the caller (Postgres, Redis or nil for memory-only carts).
func NewContainer(db *pgxpool.Pool, cartStore carts.SnapshotStore) *Container {
	return &Container{
		pool:   db,
		Carts:  cartStore,
		Orders: orders.NewRepository(db),
	}
}

// NewMemoryContainer is used when no DB_ADDR is configured.
func NewMemoryContainer(cartStore carts.SnapshotStore) *Container {
	return &Container{
		Carts:  cartStore,
		Orders: orders.NewMemoryStore(),
	}
}

func (c *Container) HasDB() bool {
	return c.pool != nil
}

// SalesTx is a tx-scoped set of repos for atomic units of work.
type SalesTx struct {
	Orders *orders.Repository
}

// WithSalesTx runs a sales unit-of-work atomically.
func (c *Container) WithSalesTx(ctx context.Context, fn func(s *SalesTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container has no database pool")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &SalesTx{
		Orders: orders.NewRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RecordOrder stores a confirmed order with its lines in one transaction.
func (c *Container) RecordOrder(ctx context.Context, o *orders.Order) error {
	if c.pool == nil {
		return c.Orders.Record(ctx, o)
	}
	return c.WithSalesTx(ctx, func(s *SalesTx) error {
		return s.Orders.Record(ctx, o)
	})
}
