package domain

import "math"

// OrderItem is a single line in the current order.
type OrderItem struct {
	ProductID string  `json:"product_id" mapstructure:"product_id"`
	Name      string  `json:"name" mapstructure:"name"`
	UnitPrice float64 `json:"unit_price" mapstructure:"unit_price"`
	Quantity  int     `json:"quantity" mapstructure:"quantity"`
}

// LineTotal returns price times quantity for this line, rounded to cents.
func (i OrderItem) LineTotal() float64 {
	return Round2(i.UnitPrice * float64(i.Quantity))
}

// CurrentOrder is the cart carried inside the session context.
// Total is derived: it must always equal the sum of the line totals and
// is recomputed from scratch after every mutation, never adjusted
// incrementally.
type CurrentOrder struct {
	Items []OrderItem `json:"items" mapstructure:"items"`
	Total float64     `json:"total" mapstructure:"total"`
}

// Recompute recalculates Total from the remaining lines.
func (o *CurrentOrder) Recompute() {
	var total float64
	for _, item := range o.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	o.Total = Round2(total)
}

// IsEmpty reports whether the order has no lines.
func (o *CurrentOrder) IsEmpty() bool {
	return o == nil || len(o.Items) == 0
}

// Find returns the index of the line holding the given product, or -1.
func (o *CurrentOrder) Find(productID string) int {
	if o == nil {
		return -1
	}
	for i, item := range o.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so transition actions can rewrite context
// without aliasing the original.
func (o *CurrentOrder) Clone() *CurrentOrder {
	if o == nil {
		return nil
	}
	cp := &CurrentOrder{Total: o.Total}
	if o.Items != nil {
		cp.Items = make([]OrderItem, len(o.Items))
		copy(cp.Items, o.Items)
	}
	return cp
}

// Round2 rounds to two decimal places (cents).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
