// Package catalog provides product catalog adapters: a YAML file loader
// for deployments and an in-memory implementation for tests and demos.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/balcao/pkg/domain"
)

// Memory is an in-memory ports.Catalog and ports.OrderCreator. Safe for
// concurrent use.
type Memory struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	order    []string // menu ordering; defaults to sorted ids
	orders   int
}

// NewMemory creates an in-memory catalog with the given products.
func NewMemory(products ...*domain.Product) *Memory {
	m := &Memory{products: make(map[string]*domain.Product, len(products))}
	for _, p := range products {
		cp := *p
		m.products[p.ID] = &cp
	}
	return m
}

// GetProduct returns a copy of the product.
func (m *Memory) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	cp := *p
	return &cp, nil
}

// IsAvailable reports whether the product holds enough stock.
func (m *Memory) IsAvailable(_ context.Context, id string, quantity int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p.Available && p.Stock >= quantity, nil
}

// SetStock adjusts stock for a product. Test helper and demo hook.
func (m *Memory) SetStock(id string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Stock = stock
	}
}

// SetPrice adjusts the price for a product.
func (m *Memory) SetPrice(id string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Price = price
	}
}

// SetAvailable flips availability for a product.
func (m *Memory) SetAvailable(id string, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Available = available
	}
}

// CreateOrder decrements stock and returns a sequential order id.
func (m *Memory) CreateOrder(_ context.Context, customerID string, items []domain.OrderItem, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		p, ok := m.products[item.ProductID]
		if !ok || !p.Available || p.Stock < item.Quantity {
			return "", fmt.Errorf("%w: %s", domain.ErrProductUnavailable, item.Name)
		}
	}
	for _, item := range items {
		m.products[item.ProductID].Stock -= item.Quantity
	}

	m.orders++
	return fmt.Sprintf("ORD-%06d", m.orders), nil
}

// Menu builds the positional menu from the first five available
// products, ordered by id for a stable layout.
func (m *Memory) Menu() []domain.MenuSlot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.order
	if ids == nil {
		ids = make([]string, 0, len(m.products))
		for id := range m.products {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	var slots []domain.MenuSlot
	for _, id := range ids {
		p := m.products[id]
		if !p.Available {
			continue
		}
		slots = append(slots, domain.MenuSlot{
			Position:  len(slots) + 1,
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
		})
		if len(slots) == 5 {
			break
		}
	}
	return slots
}
