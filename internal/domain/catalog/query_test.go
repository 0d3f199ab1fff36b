package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/product"
	"github.com/xenking/resaller-shop/internal/storage/memory"
)

func sampleProducts(t *testing.T) []product.Product {
	t.Helper()
	c, err := memory.LoadDefault()
	require.NoError(t, err)
	products, err := c.List(context.Background())
	require.NoError(t, err)
	return products
}

func names(products []product.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func ids(products []product.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestApply_CategoryAndCeiling(t *testing.T) {
	got := catalog.Apply(sampleProducts(t), catalog.Query{
		Category:     "Electronics",
		PriceCeiling: decimal.NewFromInt(100),
		Sort:         catalog.SortPriceAsc,
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Ultra-Quiet Keyboard", got[0].Name)
	assert.True(t, decimal.RequireFromString("89.99").Equal(got[0].Price))
	assert.NotContains(t, names(got), "Noise Cancelling Headphones")
}

func TestApply_PopularityDefault(t *testing.T) {
	got := catalog.Apply(sampleProducts(t), catalog.DefaultQuery())

	assert.Equal(t, []string{
		"Noise Cancelling Headphones",
		"Air Max Pro v2",
		"Leather Minimalist Wallet",
		"Ultra-Quiet Keyboard",
		"Smart Home Hub",
		"Denim Comfort Jacket",
	}, names(got))
}

func TestApply_Sorts(t *testing.T) {
	tests := []struct {
		sort catalog.SortOption
		want []string
	}{
		{sort: catalog.SortPriceAsc, want: []string{"5", "2", "3", "6", "1", "4"}},
		{sort: catalog.SortPriceDesc, want: []string{"4", "1", "6", "3", "2", "5"}},
		{sort: catalog.SortNewest, want: []string{"6", "5", "4", "3", "2", "1"}},
		{sort: catalog.SortPopularity, want: []string{"4", "1", "5", "2", "6", "3"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			q := catalog.DefaultQuery()
			q.Sort = tt.sort
			assert.Equal(t, tt.want, ids(catalog.Apply(sampleProducts(t), q)))
		})
	}
}

func TestApply_PriceCeilingIsInclusive(t *testing.T) {
	q := catalog.DefaultQuery()
	q.PriceCeiling = decimal.RequireFromString("45.00")

	got := catalog.Apply(sampleProducts(t), q)
	assert.Equal(t, []string{"5"}, ids(got))

	q.PriceCeiling = decimal.RequireFromString("44.99")
	assert.Empty(t, catalog.Apply(sampleProducts(t), q))
}

func TestApply_StableTies(t *testing.T) {
	products := []product.Product{
		{ID: "a", Price: decimal.NewFromInt(10), Rating: 4},
		{ID: "b", Price: decimal.NewFromInt(10), Rating: 4},
		{ID: "c", Price: decimal.NewFromInt(5), Rating: 4},
	}

	q := catalog.DefaultQuery()
	q.Sort = catalog.SortPriceAsc
	assert.Equal(t, []string{"c", "a", "b"}, ids(catalog.Apply(products, q)))

	q.Sort = catalog.SortPriceDesc
	assert.Equal(t, []string{"a", "b", "c"}, ids(catalog.Apply(products, q)))

	q.Sort = catalog.SortPopularity
	assert.Equal(t, []string{"a", "b", "c"}, ids(catalog.Apply(products, q)))
}

func TestApply_NewestNonNumericLast(t *testing.T) {
	products := []product.Product{
		{ID: "sku-x", Price: decimal.NewFromInt(1)},
		{ID: "2", Price: decimal.NewFromInt(1)},
		{ID: "sku-y", Price: decimal.NewFromInt(1)},
		{ID: "10", Price: decimal.NewFromInt(1)},
	}
	q := catalog.DefaultQuery()
	q.Sort = catalog.SortNewest

	assert.Equal(t, []string{"10", "2", "sku-x", "sku-y"}, ids(catalog.Apply(products, q)))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	products := sampleProducts(t)
	before := ids(products)

	got := catalog.Apply(products, catalog.Query{
		Category:     catalog.AllCategories,
		PriceCeiling: catalog.DefaultPriceCeiling,
		Sort:         catalog.SortPriceDesc,
	})
	got[0].Name = "changed"

	assert.Equal(t, before, ids(products))
	assert.NotEqual(t, "changed", products[3].Name)
}

func TestApply_UnknownCategoryEmpty(t *testing.T) {
	q := catalog.DefaultQuery()
	q.Category = "Garden"
	assert.Empty(t, catalog.Apply(sampleProducts(t), q))
}

func TestParseSortOption(t *testing.T) {
	tests := []struct {
		in      string
		want    catalog.SortOption
		wantErr bool
	}{
		{in: "", want: catalog.SortPopularity},
		{in: "price_asc", want: catalog.SortPriceAsc},
		{in: "PRICE_DESC", want: catalog.SortPriceDesc},
		{in: "Price: Low to High", want: catalog.SortPriceAsc},
		{in: "Newest Arrivals", want: catalog.SortNewest},
		{in: "popularity", want: catalog.SortPopularity},
		{in: "cheapest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := catalog.ParseSortOption(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, catalog.ErrUnknownSort)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeaturedAndBestSellers(t *testing.T) {
	products := sampleProducts(t)

	assert.Equal(t, []string{"1", "2", "4"}, ids(catalog.Featured(products, 3)))
	assert.Equal(t, []string{"1", "3"}, ids(catalog.BestSellers(products, 4)))
	assert.Equal(t, []string{"1"}, ids(catalog.Featured(products, 1)))
}

func TestService_Landing(t *testing.T) {
	repo, err := memory.LoadDefault()
	require.NoError(t, err)
	svc := catalog.NewService(repo)

	landing, err := svc.Landing(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "4"}, ids(landing.Featured))
	assert.Equal(t, []string{"1", "3"}, ids(landing.BestSellers))
	assert.Equal(t, []string{"Electronics", "Footwear", "Apparel"}, landing.Categories)
}

func TestService_GetNotFound(t *testing.T) {
	repo, err := memory.LoadDefault()
	require.NoError(t, err)
	svc := catalog.NewService(repo)

	_, err = svc.Get(context.Background(), "99")
	require.ErrorIs(t, err, product.ErrNotFound)
}
