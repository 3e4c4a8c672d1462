package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"storefront/internal/domain/carts"
	"storefront/internal/domain/orders"
	"storefront/internal/normalize"
	"storefront/internal/remote"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"
)

// GetCart godoc
//
//	@Summary		Get user's cart
//	@Description	Returns the caller's cart lines with derived totals (subtotal, tax, shipping, total)
//	@Tags			User-Cart
//	@Produce		json
//	@Success		200	{object}	cartView	"Cart retrieved successfully"
//	@Failure		401	{object}	error		"Unauthorized"
//	@Failure		500	{object}	error		"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/store/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	snap, err := app.carts.Snapshot(ctx, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, newCartView(snap))
}

// POST /v1/store/cart/items  {product fields…, qty?} or {product:{…}, qty?}
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	raw, err := readRawJSON(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		app.badRequestResponse(w, r, fmt.Errorf("body must be a JSON object"))
		return
	}

	product, err := normalize.Product(normalize.Unwrap(raw, "product"))
	switch {
	case errors.Is(err, normalize.ErrAmbiguousUnit):
		app.unprocessableResponse(w, r, err)
		return
	case err != nil:
		app.badRequestResponse(w, r, fmt.Errorf("product needs an id or a name: %w", err))
		return
	}

	qty, ok, err := normalize.Quantity(root)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if !ok {
		qty = 1
	}
	if qty < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("qty must be > 0"))
		return
	}

	if product.Name == "" && app.catalog.Configured() {
		found, err := app.catalog.Product(ctx, product.ID)
		if err != nil {
			if errors.Is(err, remote.ErrProductNotFound) {
				app.notFoundResponse(w, r, err)
				return
			}
			app.logger.Errorw("catalog lookup failed", "product_id", product.ID, "error", err.Error())
			writeJSONError(w, http.StatusServiceUnavailable, "the catalog is unavailable, please try again")
			return
		}
		// keep the caller's id so the line key does not depend on the catalog's spelling
		found.ID = product.ID
		product = found
	}

	snap, err := app.carts.Add(ctx, user.ID, product, qty)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, newCartView(snap))
}

type updateCartItemPayload struct {
	Delta *int `json:"delta"`
	Qty   *int `json:"qty" validate:"omitempty,min=0"`
}

// PATCH /v1/store/cart/items/{key}  {delta} or {qty}
func (app *application) updateCartItemQtyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	key, err := lineKeyParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var in updateCartItemPayload
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil || (in.Delta == nil) == (in.Qty == nil) {
		app.badRequestResponse(w, r, fmt.Errorf("send either delta or a non-negative qty"))
		return
	}

	var snap carts.Snapshot
	if in.Delta != nil {
		snap, err = app.carts.ChangeQty(ctx, user.ID, key, *in.Delta)
	} else {
		snap, err = app.carts.SetQuantity(ctx, user.ID, key, *in.Qty)
	}
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, newCartView(snap))
}

// DELETE /v1/store/cart/items/{key}
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	key, err := lineKeyParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	snap, err := app.carts.Remove(ctx, user.ID, key)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, newCartView(snap))
}

// POST /v1/store/cart/items/remove  {keys:[1, "sku-2"]}
func (app *application) removeCartItemsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	raw, err := readRawJSON(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	keysField := gjson.GetBytes(raw, "keys")
	if !keysField.IsArray() {
		app.badRequestResponse(w, r, fmt.Errorf("keys must be an array"))
		return
	}

	snap, err := app.carts.RemoveMany(ctx, user.ID, normalize.Keys(keysField))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, newCartView(snap))
}

// DELETE /v1/store/cart
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	snap, err := app.carts.Clear(ctx, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, newCartView(snap))
}

func lineKeyParam(r *http.Request) (string, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		return "", fmt.Errorf("invalid key")
	}
	key := carts.KeyOf(raw)
	if key == "" {
		return "", fmt.Errorf("invalid key")
	}
	return key, nil
}

// ============ CHECKOUT ============

// Checkout godoc
//
//	@Summary		Checkout the cart
//	@Description	Sends the cart to the order service. The cart is cleared only when the order is confirmed.
//	@Tags			Orders
//	@Produce		json
//	@Success		201	{object}	orderView	"order confirmed"
//	@Failure		422	{object}	error		"Empty cart or order rejected"
//	@Failure		502	{object}	error		"Order service returned an unusable confirmation"
//	@Failure		503	{object}	error		"Order service unavailable"
//	@Security		ApiKeyAuth
//	@Router			/store/checkout [post]
func (app *application) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), app.config.remote.checkoutTimeout+5*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	order, err := app.checkout.Checkout(ctx, user.ID)
	if err != nil {
		app.checkoutErrorResponse(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, newOrderView(*order))
}

// GET /v1/store/orders?page=1&limit=15
func (app *application) listMyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	p := app.config.pages.Parse(r.URL.Query())

	list, total, err := app.store.Orders.ListByUser(ctx, user.ID, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p.ComputeMeta(total)

	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, newOrderView(o))
	}

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     views,
		"pagination": p,
	})
}

// GET /v1/store/orders/{reference}
func (app *application) getMyOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user := getUserFromContext(r)

	ref := chi.URLParam(r, "reference")
	if ref == "" {
		app.badRequestResponse(w, r, fmt.Errorf("invalid reference"))
		return
	}

	order, err := app.store.Orders.GetByReference(ctx, user.ID, ref)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, newOrderView(*order))
}
