/*
Package cart mutates the current-order substructure inside a session's
context: add, remove, clear, price and validate line items.

Everything here is a value transformation over the context except
CreateOrderFromCart, which delegates to the order backend after a final
re-validation against live catalog state.
*/
package cart

import (
	"context"
	"fmt"

	"github.com/aretw0/balcao/pkg/domain"
	"github.com/aretw0/balcao/pkg/ports"
)

// DefaultTaxRate is applied to the subtotal for display purposes.
const DefaultTaxRate = 0.08

// Issue names a problem with one cart line.
type Issue struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// ValidationResult distinguishes hard failures (which block order
// creation) from soft warnings (which do not).
type ValidationResult struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Summary is the priced view of the cart.
type Summary struct {
	Items    []domain.OrderItem `json:"items"`
	Subtotal float64            `json:"subtotal"`
	Tax      float64            `json:"tax"`
	Total    float64            `json:"total"`
}

// Aggregator applies the cart rules against the live catalog.
type Aggregator struct {
	catalog ports.Catalog
	orders  ports.OrderCreator
	taxRate float64
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithTaxRate overrides the default tax rate.
func WithTaxRate(rate float64) Option {
	return func(a *Aggregator) {
		a.taxRate = rate
	}
}

// New creates an Aggregator over the given collaborators.
func New(catalog ports.Catalog, orders ports.OrderCreator, opts ...Option) *Aggregator {
	a := &Aggregator{
		catalog: catalog,
		orders:  orders,
		taxRate: DefaultTaxRate,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddItem puts quantity units of the product into the cart. Adding a
// product already present merges into the existing line instead of
// duplicating it. The catalog is consulted first; on insufficient stock
// or unavailability the cart is left untouched.
func (a *Aggregator) AddItem(ctx context.Context, c *domain.Context, productID string, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}

	product, err := a.catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	held := 0
	if c.Order != nil {
		if idx := c.Order.Find(productID); idx >= 0 {
			held = c.Order.Items[idx].Quantity
		}
	}

	ok, err := a.catalog.IsAvailable(ctx, productID, held+quantity)
	if err != nil {
		return fmt.Errorf("availability check for %q: %w", productID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s (requested %d)", domain.ErrProductUnavailable, product.Name, held+quantity)
	}

	if c.Order == nil {
		c.Order = &domain.CurrentOrder{}
	}
	if idx := c.Order.Find(productID); idx >= 0 {
		c.Order.Items[idx].Quantity += quantity
	} else {
		c.Order.Items = append(c.Order.Items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
		})
	}
	c.Order.Recompute()
	return nil
}

// RemoveItem takes quantity units of the product out of the cart. A
// non-positive quantity removes the whole line; decrementing to zero or
// below also drops the line rather than going negative.
func (a *Aggregator) RemoveItem(c *domain.Context, productID string, quantity int) error {
	if c.Order == nil {
		return domain.ErrEmptyCart
	}
	idx := c.Order.Find(productID)
	if idx < 0 {
		return fmt.Errorf("%w: %s not in cart", domain.ErrProductNotFound, productID)
	}

	if quantity <= 0 || c.Order.Items[idx].Quantity-quantity <= 0 {
		c.Order.Items = append(c.Order.Items[:idx], c.Order.Items[idx+1:]...)
	} else {
		c.Order.Items[idx].Quantity -= quantity
	}
	c.Order.Recompute()
	return nil
}

// Clear empties the cart.
func (a *Aggregator) Clear(c *domain.Context) {
	c.Order = nil
}

// GetSummary prices the cart: subtotal from the lines, tax at the fixed
// rate, total as their sum. All three are recomputed from scratch.
func (a *Aggregator) GetSummary(c domain.Context) Summary {
	s := Summary{}
	if c.Order == nil {
		return s
	}
	s.Items = c.Order.Items
	for _, item := range c.Order.Items {
		s.Subtotal += item.UnitPrice * float64(item.Quantity)
	}
	s.Subtotal = domain.Round2(s.Subtotal)
	s.Tax = domain.Round2(s.Subtotal * a.taxRate)
	s.Total = domain.Round2(s.Subtotal + s.Tax)
	return s
}

// Validate re-checks every line against current catalog state. Hard
// failures (unknown, discontinued, insufficient stock) block order
// creation; soft warnings (price drift, low stock) do not.
func (a *Aggregator) Validate(ctx context.Context, c domain.Context) (ValidationResult, error) {
	result := ValidationResult{IsValid: true}
	if c.Order.IsEmpty() {
		result.IsValid = false
		result.Errors = append(result.Errors, Issue{Reason: "cart is empty"})
		return result, nil
	}

	for _, item := range c.Order.Items {
		product, err := a.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, Issue{
				ProductID: item.ProductID,
				Name:      item.Name,
				Reason:    "no longer in the catalog",
			})
			continue
		}
		if !product.Available {
			result.IsValid = false
			result.Errors = append(result.Errors, Issue{
				ProductID: item.ProductID,
				Name:      item.Name,
				Reason:    "discontinued",
			})
			continue
		}
		if product.Stock < item.Quantity {
			result.IsValid = false
			result.Errors = append(result.Errors, Issue{
				ProductID: item.ProductID,
				Name:      item.Name,
				Reason:    fmt.Sprintf("insufficient stock: %d available, %d requested", product.Stock, item.Quantity),
			})
			continue
		}
		if product.Price != item.UnitPrice {
			result.Warnings = append(result.Warnings, Issue{
				ProductID: item.ProductID,
				Name:      item.Name,
				Reason:    fmt.Sprintf("price changed from %.2f to %.2f", item.UnitPrice, product.Price),
			})
		}
		if product.Stock < item.Quantity*2 {
			result.Warnings = append(result.Warnings, Issue{
				ProductID: item.ProductID,
				Name:      item.Name,
				Reason:    "stock running low",
			})
		}
	}
	return result, nil
}

// CreateOrderFromCart re-validates and then delegates to the order
// backend. Re-validation right before creation keeps a customer who
// lingered in the cart from ordering against stale availability.
func (a *Aggregator) CreateOrderFromCart(ctx context.Context, c *domain.Context, customerID, notes string) (string, ValidationResult, error) {
	result, err := a.Validate(ctx, *c)
	if err != nil {
		return "", result, err
	}
	if !result.IsValid {
		return "", result, fmt.Errorf("%w: %d line(s) failed validation", domain.ErrProductUnavailable, len(result.Errors))
	}

	orderID, err := a.orders.CreateOrder(ctx, customerID, c.Order.Items, notes)
	if err != nil {
		return "", result, fmt.Errorf("order creation: %w", err)
	}
	c.OrderID = orderID
	return orderID, result, nil
}
