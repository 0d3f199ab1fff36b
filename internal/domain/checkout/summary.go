package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/cart"
)

// Summary is the order summary shown beside every checkout step.
type Summary struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// FreeShipping reports whether shipping costs nothing.
func (s Summary) FreeShipping() bool {
	return s.Shipping.IsZero()
}

// Summarize computes the summary for c. Shipping is always free; tax is
// subtotal * taxRate rounded to cents.
func Summarize(c *cart.Cart, taxRate decimal.Decimal) Summary {
	subtotal := c.Total().Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Summary{
		Subtotal: subtotal,
		Shipping: decimal.Zero,
		Tax:      tax,
		Total:    subtotal.Add(tax).Round(2),
	}
}
