package normalize

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var ErrRejected = errors.New("order rejected")

var (
	orderIDFields    = []string{"orderId", "order_id", "id"}
	majorTotalFields = []string{"total", "total_amount"}
	minorTotalFields = []string{"total_cents", "totalCents"}
	messageFields    = []string{"message", "error", "detail"}
)

// Confirmation is the normalized success body of the order service.
type Confirmation struct {
	OrderID  string
	Total    decimal.Decimal
	HasTotal bool
	Status   string
}

// RejectionError carries the message the order service gave for a refusal.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Message
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}

// OrderConfirmation validates an order-creation response body. A body that
// explicitly marks failure yields a *RejectionError; a body without an order
// id yields ErrMissingField. Responses may wrap the payload in "data" or
// "order".
func OrderConfirmation(raw []byte) (Confirmation, error) {
	if !gjson.ValidBytes(raw) {
		return Confirmation{}, ErrInvalidJSON
	}
	root := gjson.ParseBytes(raw)

	if failed, msg := markedFailed(root); failed {
		return Confirmation{}, &RejectionError{Message: msg}
	}

	body := root
	for _, wrapper := range []string{"data", "order"} {
		if v := root.Get(wrapper); v.IsObject() {
			body = v
			if failed, msg := markedFailed(body); failed {
				return Confirmation{}, &RejectionError{Message: msg}
			}
			break
		}
	}

	c := Confirmation{
		OrderID: ID(first(body, orderIDFields...)),
		Status:  strings.ToLower(str(body.Get("status"))),
	}
	if c.OrderID == "" {
		return Confirmation{}, ErrMissingField
	}

	if v := first(body, majorTotalFields...); v.Exists() {
		if d, ok := parseDecimal(v); ok {
			c.Total, c.HasTotal = d, true
		}
	} else if v := first(body, minorTotalFields...); v.Exists() {
		if d, ok := parseDecimal(v); ok {
			c.Total, c.HasTotal = d.Shift(-2), true
		}
	}
	return c, nil
}

func markedFailed(r gjson.Result) (bool, string) {
	msg := str(first(r, messageFields...))

	for _, flag := range []string{"success", "ok"} {
		if v := r.Get(flag); v.Type == gjson.False {
			return true, msg
		}
	}
	switch strings.ToLower(str(r.Get("status"))) {
	case "failed", "failure", "error", "rejected":
		return true, msg
	}
	return false, ""
}

// Message extracts a human readable error message from an error body, or ""
// when the body carries none.
func Message(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	root := gjson.ParseBytes(raw)
	if msg := str(first(root, messageFields...)); msg != "" {
		return msg
	}
	if v := root.Get("error"); v.IsObject() {
		return str(first(v, messageFields...))
	}
	return ""
}
