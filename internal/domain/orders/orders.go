package orders

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository persists confirmed orders.
//
//	CREATE TABLE orders (
//	  id               bigserial PRIMARY KEY,
//	  user_id          text NOT NULL,
//	  reference        text NOT NULL UNIQUE,
//	  remote_order_id  text NOT NULL,
//	  status           text NOT NULL,
//	  subtotal         numeric(12,4) NOT NULL,
//	  tax              numeric(12,4) NOT NULL,
//	  shipping         numeric(12,4) NOT NULL,
//	  total            numeric(12,4) NOT NULL,
//	  confirmed_total  numeric(12,4) NOT NULL,
//	  item_count       int NOT NULL,
//	  created_at       timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE TABLE order_lines (
//	  order_id    bigint REFERENCES orders(id) ON DELETE CASCADE,
//	  product_id  text NOT NULL,
//	  name        text NOT NULL,
//	  quantity    int NOT NULL,
//	  unit_price  numeric(12,4) NOT NULL
//	);
//
// Amounts travel as text so Postgres numeric and decimal.Decimal never pass
// through float64.
type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{q: q}
}

// Record inserts the order and its lines. It issues several statements and
// is meant to run inside a transaction (see storage.Container.RecordOrder).
func (r *Repository) Record(ctx context.Context, o *Order) error {
	if o.Status == "" {
		o.Status = StatusConfirmed
	}

	err := r.q.QueryRow(ctx, `
INSERT INTO orders (
  user_id, reference, remote_order_id, status,
  subtotal, tax, shipping, total, confirmed_total, item_count
) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10)
ON CONFLICT (reference) DO NOTHING
RETURNING id, created_at
`,
		o.UserID, o.Reference, o.RemoteOrderID, o.Status,
		o.Subtotal.String(), o.Tax.String(), o.Shipping.String(), o.Total.String(), o.ConfirmedTotal.String(),
		o.ItemCount,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// reference already recorded: replayed confirmation
			return nil
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, l := range o.Lines {
		if _, err := r.q.Exec(ctx, `
INSERT INTO order_lines (order_id, product_id, name, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5::numeric)
`, o.ID, l.ProductID, l.Name, l.Quantity, l.UnitPrice.String()); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT id, user_id, reference, remote_order_id, status,
       subtotal::text, tax::text, shipping::text, total::text, confirmed_total::text,
       item_count, created_at,
       COUNT(*) OVER() AS total_count
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		out   []Order
		total int
	)
	for rows.Next() {
		var (
			o       Order
			amounts [5]string
			t       int
		)
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Reference, &o.RemoteOrderID, &o.Status,
			&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
			&o.ItemCount, &o.CreatedAt, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		if err := parseAmounts(&o, amounts); err != nil {
			return nil, 0, err
		}
		if total == 0 {
			total = t
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repository) GetByReference(ctx context.Context, userID, reference string) (*Order, error) {
	var (
		o       Order
		amounts [5]string
	)
	err := r.q.QueryRow(ctx, `
SELECT id, user_id, reference, remote_order_id, status,
       subtotal::text, tax::text, shipping::text, total::text, confirmed_total::text,
       item_count, created_at
FROM orders
WHERE user_id = $1 AND reference = $2`,
		userID, reference,
	).Scan(
		&o.ID, &o.UserID, &o.Reference, &o.RemoteOrderID, &o.Status,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
		&o.ItemCount, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := parseAmounts(&o, amounts); err != nil {
		return nil, err
	}

	lines, err := r.loadLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (r *Repository) loadLines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := r.q.Query(ctx, `
SELECT product_id, name, quantity, unit_price::text
FROM order_lines
WHERE order_id = $1
ORDER BY ctid`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order lines: %w", err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var (
			l     OrderLine
			price string
		)
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func parseAmounts(o *Order, a [5]string) error {
	dst := []*decimal.Decimal{&o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.ConfirmedTotal}
	for i, s := range a {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parse order amount: %w", err)
		}
		*dst[i] = d
	}
	return nil
}
