package storage

import (
	"context"
	"testing"

	"storefront/internal/domain/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContainer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewMemoryContainer(nil)
	assert.False(t, c.HasDB())
	assert.Nil(t, c.Carts)

	require.NoError(t, c.RecordOrder(ctx, &orders.Order{UserID: "u1", Reference: "SF-1"}))

	got, err := c.Orders.GetByReference(ctx, "u1", "SF-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmed, got.Status)

	err = c.WithSalesTx(ctx, func(s *SalesTx) error { return nil })
	assert.Error(t, err, "units of work need a database")
}
