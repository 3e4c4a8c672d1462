package carts

import "github.com/shopspring/decimal"

var (
	TaxRate           = decimal.RequireFromString("0.20")
	ShippingFee       = decimal.RequireFromString("6.90")
	FreeShippingAbove = decimal.RequireFromString("100.00")
)

// DeriveTotals computes totals from line items. It has no side effects and
// never rounds: rounding belongs to display and wire formatting.
func DeriveTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
		count = addQty(count, it.Quantity)
	}

	shipping := ShippingFee
	// strictly greater: a subtotal of exactly 100.00 still pays shipping
	if subtotal.GreaterThan(FreeShippingAbove) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(TaxRate)

	return Totals{
		Subtotal:    subtotal,
		TaxRate:     TaxRate,
		Tax:         tax,
		ShippingFee: shipping,
		Total:       subtotal.Add(tax).Add(shipping),
		ItemCount:   count,
		LineCount:   len(items),
	}
}
