package ports

import (
	"context"

	"github.com/aretw0/balcao/pkg/domain"
)

// Catalog is the product lookup the cart aggregator consumes.
type Catalog interface {
	// GetProduct returns the product for the given id, or
	// domain.ErrProductNotFound.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// IsAvailable reports whether the product can currently satisfy the
	// requested quantity.
	IsAvailable(ctx context.Context, id string, quantity int) (bool, error)
}

// OrderCreator persists a confirmed order. Used exactly once per
// conversation, when the order review is confirmed.
type OrderCreator interface {
	CreateOrder(ctx context.Context, customerID string, items []domain.OrderItem, notes string) (string, error)
}

// MenuProvider lists the short numbered menu shown to customers. The
// slot positions are what numeric shortcuts ("1", "2") resolve against.
type MenuProvider interface {
	Menu() []domain.MenuSlot
}
