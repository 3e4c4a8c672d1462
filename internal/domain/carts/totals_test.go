package carts

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(key, price string, qty int) LineItem {
	return LineItem{Key: key, Name: key, UnitPrice: dec(price), Quantity: qty}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func TestDeriveTotals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		items     []LineItem
		subtotal  string
		tax       string
		shipping  string
		total     string
		itemCount int
	}{
		{
			name:     "empty cart still pays shipping",
			subtotal: "0", tax: "0", shipping: "6.90", total: "6.90",
		},
		{
			name:     "subtotal is the sum of line totals",
			items:    []LineItem{line("a", "19.9", 2), line("b", "5", 1)},
			subtotal: "44.8", tax: "8.96", shipping: "6.90", total: "60.66", itemCount: 3,
		},
		{
			name:     "tax is twenty percent",
			items:    []LineItem{line("a", "50", 1)},
			subtotal: "50", tax: "10", shipping: "6.90", total: "66.90", itemCount: 1,
		},
		{
			name:     "exactly 100.00 pays shipping",
			items:    []LineItem{line("a", "25", 4)},
			subtotal: "100", tax: "20", shipping: "6.90", total: "126.90", itemCount: 4,
		},
		{
			name:     "above 100.00 ships free",
			items:    []LineItem{line("a", "100.01", 1)},
			subtotal: "100.01", tax: "20.002", shipping: "0", total: "120.012", itemCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DeriveTotals(tt.items)
			assertDec(t, tt.subtotal, got.Subtotal, "subtotal")
			assertDec(t, tt.tax, got.Tax, "tax")
			assertDec(t, tt.shipping, got.ShippingFee, "shipping")
			assertDec(t, tt.total, got.Total, "total")
			assertDec(t, "0.20", got.TaxRate, "tax rate")
			assert.Equal(t, tt.itemCount, got.ItemCount)
			assert.Equal(t, len(tt.items), got.LineCount)
		})
	}
}

func TestDeriveTotals_Idempotent(t *testing.T) {
	t.Parallel()

	items := []LineItem{line("a", "19.90", 2), line("b", "0.10", 3)}
	first := DeriveTotals(items)
	second := DeriveTotals(items)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.Equal(t, first.ItemCount, second.ItemCount)
	assert.Equal(t, 2, items[0].Quantity, "derivation must not touch its input")
}

func TestDeriveTotals_ExactDecimalSum(t *testing.T) {
	t.Parallel()

	// 0.1 * 3 is 0.3 exactly, not 0.30000000000000004
	got := DeriveTotals([]LineItem{line("a", "0.1", 3)})
	assert.Equal(t, "0.3", got.Subtotal.String())
}

func TestDeriveTotals_ItemCountSaturates(t *testing.T) {
	t.Parallel()

	got := DeriveTotals([]LineItem{line("a", "1", math.MaxInt), line("b", "1", 2)})
	assert.Equal(t, math.MaxInt, got.ItemCount)
	assertDec(t, "0", got.ShippingFee, "shipping")
}
