package carts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ResolveKey picks the line identity of a product: explicit key, then id,
// then display name for catalogs without identifiers.
func ResolveKey(p Product) string {
	return normalizeKey(firstNonEmpty(p.Key, p.ID, p.Name))
}

// KeyOf renders an identifier of any scalar type in the canonical form used
// for keys, so that 7, 7.0, int64(7) and "7" all compare equal.
func KeyOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return normalizeKey(t)
	case json.Number:
		return numericKey(t.String())
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return decimal.NewFromFloat32(t).String()
	case float64:
		return decimal.NewFromFloat(t).String()
	case fmt.Stringer:
		return normalizeKey(t.String())
	default:
		return normalizeKey(fmt.Sprint(t))
	}
}

func numericKey(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return normalizeKey(s)
	}
	return d.String()
}

func normalizeKey(k string) string {
	return strings.TrimSpace(k)
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
