package main

import (
	"time"

	"storefront/internal/domain/carts"
	"storefront/internal/domain/orders"

	"github.com/shopspring/decimal"
)

// Money leaves the service as a 2-decimal string. Rounding happens here only.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type cartLineView struct {
	Key         string `json:"key"`
	ProductID   string `json:"product_id,omitempty"`
	Name        string `json:"name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
}

type totalsView struct {
	Subtotal    string `json:"subtotal"`
	TaxRate     string `json:"tax_rate"`
	Tax         string `json:"tax"`
	ShippingFee string `json:"shipping_fee"`
	Total       string `json:"total"`
	ItemCount   int    `json:"item_count"`
	LineCount   int    `json:"line_count"`
}

type cartView struct {
	UserID    string         `json:"user_id"`
	Version   uint64         `json:"version"`
	Items     []cartLineView `json:"items"`
	Totals    totalsView     `json:"totals"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func newTotalsView(t carts.Totals) totalsView {
	return totalsView{
		Subtotal:    money(t.Subtotal),
		TaxRate:     t.TaxRate.String(),
		Tax:         money(t.Tax),
		ShippingFee: money(t.ShippingFee),
		Total:       money(t.Total),
		ItemCount:   t.ItemCount,
		LineCount:   t.LineCount,
	}
}

func newCartView(s carts.Snapshot) cartView {
	items := make([]cartLineView, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, cartLineView{
			Key:         it.Key,
			ProductID:   it.ProductID,
			Name:        it.Name,
			UnitPrice:   money(it.UnitPrice),
			Quantity:    it.Quantity,
			LineTotal:   money(it.LineTotal()),
			ImageURL:    it.ImageURL,
			Description: it.Description,
		})
	}
	return cartView{
		UserID:    s.UserID,
		Version:   s.Version,
		Items:     items,
		Totals:    newTotalsView(s.Totals()),
		UpdatedAt: s.UpdatedAt,
	}
}

type cartSummaryView struct {
	UserID    string    `json:"user_id"`
	ItemCount int       `json:"item_count"`
	Total     string    `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

type orderLineView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderView struct {
	Reference      string          `json:"reference"`
	RemoteOrderID  string          `json:"order_id"`
	Status         string          `json:"status"`
	Subtotal       string          `json:"subtotal"`
	Tax            string          `json:"tax"`
	Shipping       string          `json:"shipping"`
	Total          string          `json:"total"`
	ConfirmedTotal string          `json:"confirmed_total"`
	ItemCount      int             `json:"item_count"`
	Lines          []orderLineView `json:"lines,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func newOrderView(o orders.Order) orderView {
	var lines []orderLineView
	for _, l := range o.Lines {
		lines = append(lines, orderLineView{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
		})
	}
	return orderView{
		Reference:      o.Reference,
		RemoteOrderID:  o.RemoteOrderID,
		Status:         o.Status,
		Subtotal:       money(o.Subtotal),
		Tax:            money(o.Tax),
		Shipping:       money(o.Shipping),
		Total:          money(o.Total),
		ConfirmedTotal: money(o.ConfirmedTotal),
		ItemCount:      o.ItemCount,
		Lines:          lines,
		CreatedAt:      o.CreatedAt,
	}
}
