package domain

// Product is the catalog view the engine needs. The full product
// repository lives outside the core; the cart only checks identity,
// price, stock and availability.
type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Price       float64  `json:"price" yaml:"price"`
	Stock       int      `json:"stock" yaml:"stock"`
	Available   bool     `json:"available" yaml:"available"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// MenuSlot binds a positional shortcut (1-5) shown to the user to a
// catalog product. Slot positions drive the parser's numeric shortcuts.
type MenuSlot struct {
	Position  int     `json:"position" yaml:"position" mapstructure:"position"`
	ProductID string  `json:"product_id" yaml:"product_id" mapstructure:"product_id"`
	Name      string  `json:"name" yaml:"name" mapstructure:"name"`
	Price     float64 `json:"price" yaml:"price" mapstructure:"price"`
}
