package main

import (
	"net/http"

	"storefront/internal/domain/accesscontrol"
)

type userKey string

const userCtx userKey = "user"

// sessionUser is what a validated access token tells us about the caller.
// Profiles live in the account service; the cart only needs the id.
type sessionUser struct {
	ID      string                `json:"id"`
	Role    string                `json:"role"`
	Variant accesscontrol.Variant `json:"variant"`
}

func getUserFromContext(r *http.Request) *sessionUser {
	if user, ok := r.Context().Value(userCtx).(*sessionUser); ok {
		return user
	}
	return nil
}
