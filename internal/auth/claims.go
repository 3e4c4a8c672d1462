package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("token has no subject")

// Subject extracts the opaque user id and role from validated claims.
// Numeric subjects (older tokens) are rendered without exponent.
func Subject(token *jwt.Token) (userID, role string, err error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	switch sub := claims["sub"].(type) {
	case string:
		userID = strings.TrimSpace(sub)
	case float64:
		userID = fmt.Sprintf("%.f", sub)
	}
	if userID == "" {
		return "", "", ErrMissingSubject
	}

	role, _ = claims["role"].(string)
	return userID, role, nil
}
