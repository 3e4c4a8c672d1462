package carts

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSnapshotNotFound = errors.New("cart snapshot not found")
	ErrStaleSnapshot    = errors.New("stored cart snapshot is newer")
)

// Product is the descriptor the API layer hands to Add. It is already
// normalized: see internal/normalize for the upstream field-priority rules.
type Product struct {
	Key         string
	ID          string
	Name        string
	Price       decimal.Decimal
	ImageURL    string
	Description string
}

type LineItem struct {
	Key         string          `json:"key"`
	ProductID   string          `json:"product_id,omitempty"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"image_url,omitempty"`
	Description string          `json:"description,omitempty"`
}

// LineTotal is unit price times quantity, unrounded.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderID is the identifier sent to the order service: the product id when
// the line was added with one, otherwise its key.
func (l LineItem) OrderID() string {
	if l.ProductID != "" {
		return l.ProductID
	}
	return l.Key
}

// Snapshot is an immutable copy of a cart at a given version.
type Snapshot struct {
	UserID    string     `json:"user_id"`
	Version   uint64     `json:"version"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

func (s Snapshot) Totals() Totals {
	return DeriveTotals(s.Items)
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Tax         decimal.Decimal `json:"tax"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
	LineCount   int             `json:"line_count"`
}

// Summary is the per-cart row of the professional dashboard.
type Summary struct {
	UserID    string          `json:"user_id"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SnapshotStore persists cart snapshots between restarts. Save must not
// overwrite a live snapshot of the same or a newer version and reports
// ErrStaleSnapshot instead. Expired snapshots never block a save.
type SnapshotStore interface {
	Load(ctx context.Context, userID string) (*Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	DeleteExpired(ctx context.Context) (int64, error)
}
