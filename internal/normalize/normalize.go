// Package normalize turns the loosely shaped JSON returned by the remote CRUD
// API into the strict types used inside the service. It is applied right
// after an HTTP call returns so no other package has to tolerate alternate
// field names.
//
// Field priority (first present field wins):
//
//	id           id, _id, product_id, productId, key
//	name         name, title, label
//	price        price, unit_price, unitPrice            major units (euros)
//	price        price_cents, priceCents                 minor units (cents)
//	price        amount + amount_unit|unit               unit must be major, minor or cents
//	quantity     quantity, qty
//	image        imageUrl, image_url, image, primary_image_url
//	description  description, desc
//	order id     orderId, order_id, id
//	total        total, total_amount                     major units
//	total        total_cents, totalCents                 minor units
//
// Amounts are never disambiguated by inspecting the value: an untagged
// "amount" is reported as ErrAmbiguousUnit instead of guessed.
package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"storefront/internal/domain/carts"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var (
	ErrAmbiguousUnit = errors.New("amount has no unit tag")
	ErrMissingField  = errors.New("required field missing")
	ErrInvalidJSON   = errors.New("invalid json")
	ErrQuantityRange = errors.New("quantity out of range")
)

var (
	idFields          = []string{"id", "_id", "product_id", "productId", "key"}
	nameFields        = []string{"name", "title", "label"}
	majorPriceFields  = []string{"price", "unit_price", "unitPrice"}
	minorPriceFields  = []string{"price_cents", "priceCents"}
	quantityFields    = []string{"quantity", "qty"}
	imageFields       = []string{"imageUrl", "image_url", "image", "primary_image_url"}
	descriptionFields = []string{"description", "desc"}
	unitFields        = []string{"amount_unit", "unit"}
)

// Product reads a product descriptor. Prices that are present but not
// numeric become zero; only a missing identity (no id and no name) or an
// untagged amount is an error.
func Product(raw []byte) (carts.Product, error) {
	if !gjson.ValidBytes(raw) {
		return carts.Product{}, ErrInvalidJSON
	}
	return ProductFromResult(gjson.ParseBytes(raw))
}

func ProductFromResult(r gjson.Result) (carts.Product, error) {
	p := carts.Product{
		ID:          ID(first(r, idFields...)),
		Name:        str(first(r, nameFields...)),
		ImageURL:    str(first(r, imageFields...)),
		Description: str(first(r, descriptionFields...)),
	}
	if p.ID == "" && p.Name == "" {
		return carts.Product{}, ErrMissingField
	}

	price, err := Price(r)
	if err != nil {
		return carts.Product{}, err
	}
	p.Price = price
	return p, nil
}

// Price resolves the unit price in major units.
func Price(r gjson.Result) (decimal.Decimal, error) {
	if v := first(r, majorPriceFields...); v.Exists() {
		return clamp(Decimal(v)), nil
	}
	if v := first(r, minorPriceFields...); v.Exists() {
		return clamp(Decimal(v).Shift(-2)), nil
	}
	if v := first(r, "amount"); v.Exists() {
		switch strings.ToLower(str(first(r, unitFields...))) {
		case "major":
			return clamp(Decimal(v)), nil
		case "minor", "cents":
			return clamp(Decimal(v).Shift(-2)), nil
		default:
			return decimal.Zero, ErrAmbiguousUnit
		}
	}
	return decimal.Zero, nil
}

var (
	maxQuantity = decimal.NewFromInt(math.MaxInt)
	minQuantity = decimal.NewFromInt(math.MinInt)
)

// Quantity returns the first quantity field and whether one was present.
// Fractional values are truncated; non-numeric values count as absent. A
// value that does not fit an int is ErrQuantityRange.
func Quantity(r gjson.Result) (int, bool, error) {
	v := first(r, quantityFields...)
	if !v.Exists() {
		return 0, false, nil
	}
	d, ok := parseDecimal(v)
	if !ok {
		return 0, false, nil
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxQuantity) || d.LessThan(minQuantity) {
		return 0, true, ErrQuantityRange
	}
	return int(d.IntPart()), true, nil
}

// ID renders an identifier canonically: numbers lose trailing zeros so 7,
// 7.0 and "7" agree; strings are trimmed.
func ID(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return carts.KeyOf(json.Number(strings.TrimSpace(numberLiteral(v))))
	case gjson.String:
		return carts.KeyOf(v.Str)
	default:
		return ""
	}
}

// Keys normalizes a JSON array of mixed number and string identifiers.
func Keys(v gjson.Result) []string {
	out := make([]string, 0)
	v.ForEach(func(_, el gjson.Result) bool {
		if k := ID(el); k != "" {
			out = append(out, k)
		}
		return true
	})
	return out
}

// Decimal reads a JSON number exactly from its literal, or a numeric
// string. Anything else is zero.
func Decimal(v gjson.Result) decimal.Decimal {
	d, _ := parseDecimal(v)
	return d
}

func parseDecimal(v gjson.Result) (decimal.Decimal, bool) {
	var s string
	switch v.Type {
	case gjson.Number:
		s = numberLiteral(v)
	case gjson.String:
		s = strings.TrimSpace(v.Str)
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// numberLiteral prefers the raw literal so that 19.90 is read without a
// round trip through float64.
func numberLiteral(v gjson.Result) string {
	if v.Raw != "" {
		return v.Raw
	}
	return decimal.NewFromFloat(v.Num).String()
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func first(r gjson.Result, fields ...string) gjson.Result {
	for _, f := range fields {
		if v := r.Get(f); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func str(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return numberLiteral(v)
	default:
		return ""
	}
}

// Unwrap returns the first wrapper object found (e.g. "data"), or raw
// unchanged when none is present.
func Unwrap(raw []byte, wrappers ...string) []byte {
	root := gjson.ParseBytes(raw)
	for _, w := range wrappers {
		if v := root.Get(w); v.IsObject() {
			return []byte(v.Raw)
		}
	}
	return raw
}
