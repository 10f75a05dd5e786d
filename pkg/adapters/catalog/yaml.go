package catalog

import (
	"fmt"
	"os"

	"github.com/aretw0/balcao/pkg/domain"
	"gopkg.in/yaml.v3"
)

// file is the on-disk catalog shape.
type file struct {
	Products []*domain.Product `yaml:"products"`
}

// LoadFile reads a YAML catalog file into an in-memory catalog. The
// file order determines the positional menu (first five available
// products become slots 1-5).
//
// Format:
//
//	products:
//	  - id: p1
//	    name: Pizza
//	    price: 12.50
//	    stock: 20
//	    available: true
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no products", path)
	}

	seen := make(map[string]struct{}, len(f.Products))
	for _, p := range f.Products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalog file %s: product entries need id and name", path)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog file %s: duplicate product id %q", path, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	m := NewMemory(f.Products...)
	m.order = make([]string, 0, len(f.Products))
	for _, p := range f.Products {
		m.order = append(m.order, p.ID)
	}
	return m, nil
}
