package cart_test

import (
	"context"
	"testing"

	"github.com/aretw0/balcao/pkg/adapters/catalog"
	"github.com/aretw0/balcao/pkg/cart"
	"github.com/aretw0/balcao/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *catalog.Memory {
	return catalog.NewMemory(
		&domain.Product{ID: "p1", Name: "Pizza", Price: 12.50, Stock: 20, Available: true},
		&domain.Product{ID: "p2", Name: "Burger", Price: 8.00, Stock: 3, Available: true},
		&domain.Product{ID: "p3", Name: "Salad", Price: 6.00, Stock: 0, Available: true},
	)
}

func TestAddItem_MergesByProduct(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}

	require.NoError(t, agg.AddItem(ctx, c, "p1", 2))
	require.NoError(t, agg.AddItem(ctx, c, "p1", 3))

	require.Len(t, c.Order.Items, 1)
	assert.Equal(t, 5, c.Order.Items[0].Quantity)
	assert.InDelta(t, 62.50, c.Order.Total, 0.001)
}

func TestAddItem_RejectsWithoutMutation(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}

	// Out of stock.
	err := agg.AddItem(ctx, c, "p3", 1)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.Nil(t, c.Order)

	// Merge would exceed stock.
	require.NoError(t, agg.AddItem(ctx, c, "p2", 2))
	err = agg.AddItem(ctx, c, "p2", 2)
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.Equal(t, 2, c.Order.Items[0].Quantity, "failed add must not touch the cart")

	// Unknown product.
	err = agg.AddItem(ctx, c, "nope", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestRemoveItem(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}
	require.NoError(t, agg.AddItem(ctx, c, "p1", 5))

	// Decrement.
	require.NoError(t, agg.RemoveItem(c, "p1", 2))
	assert.Equal(t, 3, c.Order.Items[0].Quantity)
	assert.InDelta(t, 37.50, c.Order.Total, 0.001)

	// Removing more than held drops the line, never goes negative.
	require.NoError(t, agg.RemoveItem(c, "p1", 10))
	assert.Empty(t, c.Order.Items)
	assert.Zero(t, c.Order.Total)

	// Removing from an empty cart.
	assert.ErrorIs(t, agg.RemoveItem(c, "p1", 1), domain.ErrProductNotFound)
	assert.ErrorIs(t, agg.RemoveItem(&domain.Context{}, "p1", 1), domain.ErrEmptyCart)
}

func TestRemoveItem_WithoutQuantityRemovesLine(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}
	require.NoError(t, agg.AddItem(ctx, c, "p1", 4))

	require.NoError(t, agg.RemoveItem(c, "p1", 0))
	assert.Empty(t, c.Order.Items)
}

func TestTotal_RecomputedFromLines(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}

	require.NoError(t, agg.AddItem(ctx, c, "p1", 2))
	require.NoError(t, agg.AddItem(ctx, c, "p2", 1))
	require.NoError(t, agg.RemoveItem(c, "p1", 1))

	var want float64
	for _, item := range c.Order.Items {
		want += item.UnitPrice * float64(item.Quantity)
	}
	assert.InDelta(t, domain.Round2(want), c.Order.Total, 0.001)
}

func TestGetSummary_AppliesTax(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat, cart.WithTaxRate(0.10))
	ctx := context.Background()
	c := &domain.Context{}
	require.NoError(t, agg.AddItem(ctx, c, "p1", 2)) // 25.00

	s := agg.GetSummary(*c)
	assert.InDelta(t, 25.00, s.Subtotal, 0.001)
	assert.InDelta(t, 2.50, s.Tax, 0.001)
	assert.InDelta(t, 27.50, s.Total, 0.001)

	empty := agg.GetSummary(domain.Context{})
	assert.Zero(t, empty.Total)
}

func TestValidate_HardAndSoft(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}
	require.NoError(t, agg.AddItem(ctx, c, "p1", 2))
	require.NoError(t, agg.AddItem(ctx, c, "p2", 2))

	// Stock drops below the held quantity after the items were added.
	cat.SetStock("p1", 1)
	// Price drifts on the burger.
	cat.SetPrice("p2", 9.00)

	result, err := agg.Validate(ctx, *c)
	require.NoError(t, err)
	assert.False(t, result.IsValid)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Pizza", result.Errors[0].Name)
	assert.Contains(t, result.Errors[0].Reason, "insufficient stock")

	var warned []string
	for _, w := range result.Warnings {
		warned = append(warned, w.Reason)
	}
	assert.Contains(t, warned[0], "price changed")
}

func TestValidate_Discontinued(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}
	require.NoError(t, agg.AddItem(ctx, c, "p1", 1))

	cat.SetAvailable("p1", false)

	result, err := agg.Validate(ctx, *c)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, "discontinued", result.Errors[0].Reason)
}

func TestCreateOrderFromCart(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}
	require.NoError(t, agg.AddItem(ctx, c, "p1", 2))

	orderID, result, err := agg.CreateOrderFromCart(ctx, c, "cust-1", "")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.NotEmpty(t, orderID)
	assert.Equal(t, orderID, c.OrderID)

	// Stock was decremented by the backend.
	p, err := cat.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 18, p.Stock)
}

func TestCreateOrderFromCart_BlockedByHardFailure(t *testing.T) {
	cat := testCatalog()
	agg := cart.New(cat, cat)
	ctx := context.Background()
	c := &domain.Context{}
	require.NoError(t, agg.AddItem(ctx, c, "p2", 3))

	cat.SetStock("p2", 1)

	_, result, err := agg.CreateOrderFromCart(ctx, c, "cust-1", "")
	require.Error(t, err)
	assert.False(t, result.IsValid)
	assert.Empty(t, c.OrderID)
}
