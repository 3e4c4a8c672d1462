package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/domain/carts"
	"storefront/internal/normalize"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog resolves product descriptors from the remote catalog.
type Catalog struct {
	client *Client
}

func NewCatalog(c *Client) *Catalog {
	return &Catalog{client: c}
}

func (c *Catalog) Configured() bool {
	return c != nil && c.client.Configured()
}

// Product fetches /products/{id} and normalizes the body, unwrapping a
// {"data": …} envelope when present.
func (c *Catalog) Product(ctx context.Context, id string) (carts.Product, error) {
	resp, err := c.client.Get(ctx, "/products/"+url.PathEscape(id))
	if err != nil {
		return carts.Product{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return carts.Product{}, ErrProductNotFound
	}
	if !resp.OK() {
		return carts.Product{}, fmt.Errorf("catalog lookup %s: http=%d", id, resp.StatusCode)
	}

	p, err := normalize.Product(normalize.Unwrap(resp.Body, "data", "product"))
	if err != nil {
		return carts.Product{}, fmt.Errorf("catalog product %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}
