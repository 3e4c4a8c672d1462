package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/checkout"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, "not found")
}

func (app *application) unprocessableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unprocessable entity", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter.Round(time.Second).String())
}

// checkoutErrorResponse maps a failed checkout to a status. The cart has not
// been touched in any of these cases.
func (app *application) checkoutErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrEmptyCart) {
		app.unprocessableResponse(w, r, err)
		return
	}

	var ce *checkout.Error
	if !errors.As(err, &ce) {
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Warnw("checkout failed", "method", r.Method, "path", r.URL.Path, "kind", ce.Kind, "upstream_status", ce.StatusCode, "error", err.Error())

	switch ce.Kind {
	case checkout.KindRejected:
		writeJSONError(w, http.StatusUnprocessableEntity, ce.Message)
	case checkout.KindUnavailable:
		writeJSONError(w, http.StatusServiceUnavailable, ce.Message)
	default:
		writeJSONError(w, http.StatusBadGateway, ce.Message)
	}
}
