// Package cart implements the shopping cart engine: an ordered set of line
// items keyed by product identifier with a derived total.
//
// A Cart is not safe for concurrent use. Its owner (a visitor) serializes
// access.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/product"
)

// LineItem is a product together with the quantity in the cart.
// Quantity is always at least 1.
type LineItem struct {
	Product  product.Product
	Quantity int
}

// Subtotal returns unit price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart holds line items in insertion order.
type Cart struct {
	items []LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add increments the quantity of the line for p, or appends a new line with
// quantity 1.
func (c *Cart) Add(p product.Product) {
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity++
		return
	}
	c.items = append(c.items, LineItem{Product: p.Clone(), Quantity: 1})
}

// Remove deletes the line for productID. Unknown identifiers are ignored.
func (c *Cart) Remove(productID string) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// SetQuantityDelta adjusts the quantity of the line for productID by delta,
// flooring the result at 1. Use Remove to delete a line.
func (c *Cart) SetQuantityDelta(productID string, delta int) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.items[i].Quantity = max(1, c.items[i].Quantity+delta)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Total returns the sum of price * quantity across all lines. It is computed
// on every call.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range c.items {
		sum = sum.Add(li.Subtotal())
	}
	return sum
}

// Count returns the sum of quantities across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, li := range c.items {
		n += li.Quantity
	}
	return n
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	for i, li := range c.items {
		out[i] = LineItem{Product: li.Product.Clone(), Quantity: li.Quantity}
	}
	return out
}

// Quantity returns the quantity for productID, or 0 if absent.
func (c *Cart) Quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}
