package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain/carts"
	"storefront/internal/domain/orders"
	"storefront/internal/normalize"
	"storefront/internal/remote"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const ordersPath = "/orders"

// CartSource is the slice of carts.Registry the initiator needs.
type CartSource interface {
	Snapshot(ctx context.Context, userID string) (carts.Snapshot, error)
	ClearOrdered(ctx context.Context, userID string, ordered carts.Snapshot) (carts.Snapshot, error)
}

// OrderPoster sends the order-creation request; *remote.Client satisfies it.
type OrderPoster interface {
	PostJSON(ctx context.Context, path string, body any, header http.Header) (*remote.Response, error)
}

type OrderRecorder interface {
	RecordOrder(ctx context.Context, o *orders.Order) error
}

// OrderRequest is the body sent to the order service.
type OrderRequest struct {
	UserID string      `json:"userId"`
	Lines  []OrderLine `json:"lines"`
	Total  json.Number `json:"total"`
}

type OrderLine struct {
	ID    string      `json:"id"`
	Qty   int         `json:"qty"`
	Price json.Number `json:"price"`
}

type Service struct {
	carts    CartSource
	poster   OrderPoster
	recorder OrderRecorder
	refs     *orders.ReferenceGenerator
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

func NewService(
	cs CartSource,
	poster OrderPoster,
	recorder OrderRecorder,
	refs *orders.ReferenceGenerator,
	timeout time.Duration,
	logger *zap.SugaredLogger,
) *Service {
	if refs == nil {
		panic("checkout: ReferenceGenerator is nil")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		carts:    cs,
		poster:   poster,
		recorder: recorder,
		refs:     refs,
		timeout:  timeout,
		logger:   logger,
	}
}

// BuildRequest packages a snapshot for the order service. Amounts are
// rounded to cents here and nowhere earlier.
func BuildRequest(userID string, s carts.Snapshot) OrderRequest {
	lines := make([]OrderLine, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, OrderLine{
			ID:    it.OrderID(),
			Qty:   it.Quantity,
			Price: money(it.UnitPrice),
		})
	}
	return OrderRequest{
		UserID: userID,
		Lines:  lines,
		Total:  money(s.Totals().Total),
	}
}

// Checkout turns the user's cart into an order. The cart is cleared only
// after the order service confirmed the order; on any *Error it is left as
// it was so the user can retry.
func (s *Service) Checkout(ctx context.Context, userID string) (*orders.Order, error) {
	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		return nil, ErrEmptyCart
	}

	req := BuildRequest(userID, snap)
	ref := s.refs.ForCart(userID, snap.Version, snap.UpdatedAt, requestFingerprint(req))

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Idempotency-Key", ref)

	resp, err := s.poster.PostJSON(callCtx, ordersPath, req, header)
	if err != nil {
		s.logger.Errorw("order request failed", "user_id", userID, "reference", ref, "err", err)
		return nil, &Error{Kind: KindUnavailable, Message: "the order service is unavailable, please try again", Err: err}
	}

	if !resp.OK() {
		msg := normalize.Message(resp.Body)
		s.logger.Warnw("order rejected", "user_id", userID, "reference", ref, "http_status", resp.StatusCode, "message", msg)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &Error{Kind: KindUnavailable, StatusCode: resp.StatusCode, Message: "the order service is unavailable, please try again"}
		}
		if msg == "" {
			msg = "the order was rejected"
		}
		return nil, &Error{Kind: KindRejected, StatusCode: resp.StatusCode, Message: msg}
	}

	conf, err := normalize.OrderConfirmation(resp.Body)
	if err != nil {
		var rej *normalize.RejectionError
		if errors.As(err, &rej) {
			msg := rej.Message
			if msg == "" {
				msg = "the order was rejected"
			}
			s.logger.Warnw("order rejected in body", "user_id", userID, "reference", ref, "message", rej.Message)
			return nil, &Error{Kind: KindRejected, StatusCode: resp.StatusCode, Message: msg, Err: err}
		}
		s.logger.Errorw("unusable order confirmation", "user_id", userID, "reference", ref, "err", err)
		return nil, &Error{Kind: KindInvalidResponse, StatusCode: resp.StatusCode, Message: "the order could not be confirmed", Err: err}
	}

	order := buildOrder(userID, ref, snap, conf)
	if conf.HasTotal && !conf.Total.Round(2).Equal(snap.Totals().Total.Round(2)) {
		s.logger.Warnw("confirmed total differs from cart total",
			"user_id", userID, "reference", ref,
			"cart_total", order.Total.StringFixed(2), "confirmed_total", conf.Total.StringFixed(2))
	}

	// Confirmed from here on: failures below must not surface as a failed
	// checkout.
	if s.recorder != nil {
		if err := s.recorder.RecordOrder(ctx, order); err != nil {
			s.logger.Errorw("record confirmed order failed", "user_id", userID, "reference", ref, "remote_order_id", conf.OrderID, "err", err)
		}
	}
	if _, err := s.carts.ClearOrdered(ctx, userID, snap); err != nil {
		s.logger.Errorw("clear cart after checkout failed", "user_id", userID, "reference", ref, "err", err)
	}

	s.logger.Infow("checkout confirmed", "user_id", userID, "reference", ref, "remote_order_id", conf.OrderID, "total", order.ConfirmedTotal.StringFixed(2))
	return order, nil
}

func buildOrder(userID, ref string, snap carts.Snapshot, conf normalize.Confirmation) *orders.Order {
	t := snap.Totals()
	confirmed := t.Total
	if conf.HasTotal {
		confirmed = conf.Total
	}

	lines := make([]orders.OrderLine, 0, len(snap.Items))
	for _, it := range snap.Items {
		lines = append(lines, orders.OrderLine{
			ProductID: it.OrderID(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return &orders.Order{
		UserID:         userID,
		Reference:      ref,
		RemoteOrderID:  conf.OrderID,
		Status:         orders.StatusConfirmed,
		Subtotal:       t.Subtotal,
		Tax:            t.Tax,
		Shipping:       t.ShippingFee,
		Total:          t.Total,
		ConfirmedTotal: confirmed,
		ItemCount:      t.ItemCount,
		Lines:          lines,
		CreatedAt:      time.Now(),
	}
}

// requestFingerprint is the canonical JSON of the order body; an unchanged
// cart produces the same bytes.
func requestFingerprint(req OrderRequest) []byte {
	b, _ := json.Marshal(req)
	return b
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
