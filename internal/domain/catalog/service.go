// Package catalog provides read-only queries over the static product list:
// filtering by category and price, sorting, and landing-page selections.
package catalog

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/resaller-shop/internal/domain/product"
)

const (
	featuredLimit    = 3
	bestSellerLimit  = 4
	homeCategoryTake = 3
)

// Landing holds the product selections shown on the storefront front page.
type Landing struct {
	Featured    []product.Product
	BestSellers []product.Product
	Categories  []string
}

// Service answers catalog queries against a product repository.
type Service struct {
	products product.Repository
}

// NewService creates a catalog Service backed by the given repository.
func NewService(products product.Repository) *Service {
	return &Service{products: products}
}

// Search returns the products matching q in the requested order.
func (s *Service) Search(ctx context.Context, q Query) ([]product.Product, error) {
	all, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return Apply(all, q), nil
}

// Get returns a single product. It returns product.ErrNotFound for unknown
// identifiers.
func (s *Service) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Categories returns every category label, starting with AllCategories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.products.Categories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return cats, nil
}

// Landing returns the front-page selections: the first three featured
// products, the first four best sellers and three highlighted categories.
func (s *Service) Landing(ctx context.Context) (*Landing, error) {
	all, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return &Landing{
		Featured:    Featured(all, featuredLimit),
		BestSellers: BestSellers(all, bestSellerLimit),
		Categories:  HomeCategories(cats),
	}, nil
}

// HomeCategories returns the labels highlighted on the landing page: the
// three that follow the AllCategories sentinel.
func HomeCategories(cats []string) []string {
	rest := cats
	if len(rest) > 0 && rest[0] == AllCategories {
		rest = rest[1:]
	}
	if len(rest) > homeCategoryTake {
		rest = rest[:homeCategoryTake]
	}
	return append([]string(nil), rest...)
}
