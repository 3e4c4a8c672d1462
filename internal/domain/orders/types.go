package orders

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("order not found")

const StatusConfirmed = "confirmed"

// Order is the local record of an order the remote order service confirmed.
// Amounts are the locally derived totals at checkout time; ConfirmedTotal is
// what the order service reported back.
type Order struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"user_id"`
	Reference      string          `json:"reference"`
	RemoteOrderID  string          `json:"remote_order_id"`
	Status         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
	ConfirmedTotal decimal.Decimal `json:"confirmed_total"`
	ItemCount      int             `json:"item_count"`
	Lines          []OrderLine     `json:"lines,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Store interface {
	Record(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error)
	GetByReference(ctx context.Context, userID, reference string) (*Order, error)
}
