// Package memory implements the product repository over a fixed, in-process
// catalog.
package memory

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/product"
)

var _ product.Repository = (*Catalog)(nil)

// Catalog is an immutable product list. Every read returns copies, so callers
// can never alter the stored records.
type Catalog struct {
	products   []product.Product
	byID       map[string]int
	categories []string
}

// New validates products and builds a Catalog. Product identifiers must be
// unique. When categories is empty it is derived from the products in order
// of first appearance. The AllCategories sentinel is always first.
func New(categories []string, products []product.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]product.Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = i
		c.products[i] = p.Clone()
	}

	if len(categories) == 0 {
		for _, p := range products {
			categories = append(categories, p.Category)
		}
	}
	c.categories = normalizeCategories(categories)
	return c, nil
}

// List returns all products in catalog order.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.Clone()
	}
	return out, nil
}

// GetByID returns a single product by its identifier.
func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p := c.products[i].Clone()
	return &p, nil
}

// Categories returns the category labels, starting with the AllCategories
// sentinel.
func (c *Catalog) Categories(_ context.Context) ([]string, error) {
	return append([]string(nil), c.categories...), nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

func normalizeCategories(in []string) []string {
	seen := make(map[string]struct{}, len(in)+1)
	out := []string{catalog.AllCategories}
	seen[catalog.AllCategories] = struct{}{}
	for _, cat := range in {
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	return out
}
