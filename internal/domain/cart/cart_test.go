package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/resaller-shop/internal/domain/product"
)

func newTestProduct(id, name, price string) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "test",
		Image:    "img.jpg",
		Images:   []string{"img.jpg"},
	}
}

func TestAdd_RepeatedAddsIncrementSingleLine(t *testing.T) {
	shoe := newTestProduct("1", "Air Max Pro v2", "189.99")
	keyboard := newTestProduct("2", "Ultra-Quiet Keyboard", "89.99")

	c := New()
	adds := []product.Product{shoe, keyboard, shoe, shoe, keyboard}
	for _, p := range adds {
		c.Add(p)
	}

	require.Equal(t, 2, c.Len())
	assert.Equal(t, 3, c.Quantity("1"))
	assert.Equal(t, 2, c.Quantity("2"))
	assert.Equal(t, 5, c.Count())

	items := c.Items()
	assert.Equal(t, "1", items[0].Product.ID, "insertion order is kept")
	assert.Equal(t, "2", items[1].Product.ID)
}

func TestTotal_RecomputedAfterMutation(t *testing.T) {
	shoe := newTestProduct("1", "Air Max Pro v2", "189.99")
	wallet := newTestProduct("5", "Leather Minimalist Wallet", "45.00")

	c := New()
	c.Add(shoe)
	c.Add(wallet)
	assert.True(t, decimal.RequireFromString("234.99").Equal(c.Total()))

	c.SetQuantityDelta("5", 2)
	assert.True(t, decimal.RequireFromString("324.99").Equal(c.Total()))

	c.SetQuantityDelta("1", 1)
	assert.True(t, decimal.RequireFromString("514.98").Equal(c.Total()))

	var want decimal.Decimal
	for _, li := range c.Items() {
		want = want.Add(li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	assert.True(t, want.Equal(c.Total()))
}

func TestSetQuantityDelta(t *testing.T) {
	tests := []struct {
		name   string
		start  int
		delta  int
		expect int
	}{
		{name: "floored at one", start: 1, delta: -5, expect: 1},
		{name: "decrement", start: 4, delta: -1, expect: 3},
		{name: "decrement to exactly one", start: 3, delta: -2, expect: 1},
		{name: "increment", start: 2, delta: 3, expect: 5},
		{name: "zero delta", start: 2, delta: 0, expect: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			p := newTestProduct("p1", "Widget", "10.00")
			for range tt.start {
				c.Add(p)
			}

			c.SetQuantityDelta("p1", tt.delta)
			assert.Equal(t, tt.expect, c.Quantity("p1"))
		})
	}
}

func TestSetQuantityDelta_AbsentIsNoop(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00"))

	c.SetQuantityDelta("missing", 3)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Quantity("missing"))
}

func TestRemove(t *testing.T) {
	t.Run("absent identifier is a no-op", func(t *testing.T) {
		c := New()
		c.Add(newTestProduct("p1", "Widget", "10.00"))
		c.Add(newTestProduct("p2", "Gadget", "20.00"))
		before := c.Items()
		total := c.Total()

		c.Remove("nope")

		assert.Equal(t, before, c.Items())
		assert.True(t, total.Equal(c.Total()))
	})

	t.Run("present identifier deletes the line", func(t *testing.T) {
		c := New()
		c.Add(newTestProduct("p1", "Widget", "10.00"))
		c.Add(newTestProduct("p1", "Widget", "10.00"))
		c.Add(newTestProduct("p2", "Gadget", "20.00"))

		c.Remove("p1")

		require.Equal(t, 1, c.Len())
		assert.Equal(t, "p2", c.Items()[0].Product.ID)
		assert.True(t, decimal.RequireFromString("20.00").Equal(c.Total()))
	})
}

func TestClear(t *testing.T) {
	c := New()
	assert.True(t, c.IsEmpty())
	assert.True(t, decimal.Zero.Equal(c.Total()))

	c.Add(newTestProduct("p1", "Widget", "10.00"))
	c.Add(newTestProduct("p2", "Gadget", "20.00"))
	c.SetQuantityDelta("p2", 4)

	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.Count())
	assert.True(t, decimal.Zero.Equal(c.Total()))

	c.Clear()
	assert.True(t, c.IsEmpty())
}

func TestItems_ReturnsCopy(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00"))

	items := c.Items()
	items[0].Quantity = 99
	items[0].Product.Images[0] = "mutated.jpg"

	assert.Equal(t, 1, c.Quantity("p1"))
	assert.Equal(t, "img.jpg", c.Items()[0].Product.Images[0])
}
