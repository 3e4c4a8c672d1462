package orders

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var referenceSpace = uuid.MustParse("6f1c2a8e-4b7d-5e93-a0c4-2d8f71b3e945")

// ReferenceGenerator issues order references. A reference doubles as the
// Idempotency-Key of the order-creation request: the same cart state always
// yields the same reference, so a retried checkout is recognised upstream.
type ReferenceGenerator struct {
	secret string
	prefix string
}

func NewReferenceGenerator(secret string) *ReferenceGenerator {
	return &ReferenceGenerator{secret: secret, prefix: "SF"}
}

// ForCart derives the reference of a checkout attempt from the cart state it
// orders: user, cart version, last change time and the request body.
func (g *ReferenceGenerator) ForCart(userID string, version uint64, updatedAt time.Time, body []byte) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	fmt.Fprintf(mac, "uid:%s|v:%d|at:%d|", userID, version, updatedAt.UnixNano())
	mac.Write(body)
	sum := mac.Sum(nil)

	tag := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum)
	id := uuid.NewSHA1(referenceSpace, sum)

	return fmt.Sprintf("%s-%s-%s",
		g.prefix,
		strings.ToUpper(tag[:6]),
		strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]),
	)
}
