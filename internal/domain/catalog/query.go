package catalog

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/product"
)

// AllCategories is the category sentinel that disables the category filter.
const AllCategories = "All"

// DefaultPriceCeiling is the upper bound of the price slider.
var DefaultPriceCeiling = decimal.NewFromInt(1000)

// ErrUnknownSort is returned when a sort option cannot be parsed.
var ErrUnknownSort = errors.New("unknown sort option")

// SortOption enumerates catalog orderings.
type SortOption string

const (
	// SortPriceAsc orders by unit price, cheapest first.
	SortPriceAsc SortOption = "price_asc"
	// SortPriceDesc orders by unit price, most expensive first.
	SortPriceDesc SortOption = "price_desc"
	// SortNewest orders by descending numeric product identifier.
	SortNewest SortOption = "newest"
	// SortPopularity orders by descending rating.
	SortPopularity SortOption = "popularity"
)

// SortOptions lists every option in display order.
var SortOptions = []SortOption{SortPriceAsc, SortPriceDesc, SortNewest, SortPopularity}

var sortLabels = map[SortOption]string{
	SortPriceAsc:   "Price: Low to High",
	SortPriceDesc:  "Price: High to Low",
	SortNewest:     "Newest Arrivals",
	SortPopularity: "Popularity",
}

// Label returns the human-readable name of the option.
func (s SortOption) Label() string {
	return sortLabels[s]
}

// ParseSortOption accepts either the wire name ("price_asc") or the display
// label ("Price: Low to High"), case-insensitively. An empty string yields
// SortPopularity.
func ParseSortOption(s string) (SortOption, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortPopularity, nil
	}
	for _, opt := range SortOptions {
		if strings.EqualFold(s, string(opt)) || strings.EqualFold(s, opt.Label()) {
			return opt, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownSort, "%q", s)
}

// Query selects and orders a view over the catalog.
type Query struct {
	Category     string
	PriceCeiling decimal.Decimal
	Sort         SortOption
}

// DefaultQuery returns the unfiltered, popularity-sorted query.
func DefaultQuery() Query {
	return Query{
		Category:     AllCategories,
		PriceCeiling: DefaultPriceCeiling,
		Sort:         SortPopularity,
	}
}

func (q Query) matches(p product.Product) bool {
	if q.Category != "" && q.Category != AllCategories && p.Category != q.Category {
		return false
	}
	return !p.Price.IsNegative() && p.Price.LessThanOrEqual(q.PriceCeiling)
}

// Apply filters and sorts products according to q. The input slice is not
// modified; the result is a new slice of copies.
func Apply(products []product.Product, q Query) []product.Product {
	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		if q.matches(p) {
			out = append(out, p.Clone())
		}
	}

	switch q.Sort {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return b.Price.Cmp(a.Price)
		})
	case SortNewest:
		slices.SortStableFunc(out, compareNewest)
	default:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	}
	return out
}

// compareNewest orders numeric identifiers descending. Non-numeric
// identifiers sort after every numeric one.
func compareNewest(a, b product.Product) int {
	na, errA := strconv.ParseInt(a.ID, 10, 64)
	nb, errB := strconv.ParseInt(b.ID, 10, 64)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	default:
		return cmp.Compare(nb, na)
	}
}

// Featured returns up to limit featured products in catalog order.
func Featured(products []product.Product, limit int) []product.Product {
	return pick(products, limit, func(p product.Product) bool { return p.Featured })
}

// BestSellers returns up to limit best-selling products in catalog order.
func BestSellers(products []product.Product, limit int) []product.Product {
	return pick(products, limit, func(p product.Product) bool { return p.BestSeller })
}

func pick(products []product.Product, limit int, keep func(product.Product) bool) []product.Product {
	out := make([]product.Product, 0, limit)
	for _, p := range products {
		if len(out) == limit {
			break
		}
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}
