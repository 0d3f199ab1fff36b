// Package visitor keeps the per-visitor storefront state in memory: the
// signed-in identity, the cart, the checkout flow, and the insight slot.
// A visitor is addressed by an opaque handle carried in a cookie.
package visitor

import (
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/cart"
	"github.com/xenking/resaller-shop/internal/domain/checkout"
	"github.com/xenking/resaller-shop/internal/domain/insight"
	"github.com/xenking/resaller-shop/internal/domain/session"
)

// ErrNoCheckout is returned when a checkout operation is attempted before
// the flow was started.
var ErrNoCheckout = errors.New("checkout has not been started")

// Visitor is the state owned by one browser session. Callers must hold the
// visitor's lock while touching Session, Cart, or the checkout flow. Insight
// is safe for concurrent use on its own.
type Visitor struct {
	sync.Mutex

	id       string
	Session  session.State
	Cart     *cart.Cart
	Insight  insight.Slot
	flow     *checkout.Flow
	lastSeen time.Time
}

func newVisitor(id string, now time.Time) *Visitor {
	return &Visitor{
		id:       id,
		Cart:     cart.New(),
		lastSeen: now,
	}
}

// ID returns the visitor's handle.
func (v *Visitor) ID() string {
	return v.id
}

// BeginCheckout enters the checkout flow for the visitor's cart, replacing
// any previous flow.
func (v *Visitor) BeginCheckout(taxRate decimal.Decimal) (*checkout.Flow, error) {
	f, err := checkout.Begin(v.Cart, checkout.WithTaxRate(taxRate))
	if err != nil {
		return nil, err
	}
	v.flow = f
	return f, nil
}

// Checkout returns the active flow.
func (v *Visitor) Checkout() (*checkout.Flow, error) {
	if v.flow == nil {
		return nil, ErrNoCheckout
	}
	return v.flow, nil
}

// EndCheckout drops the flow, if any.
func (v *Visitor) EndCheckout() {
	v.flow = nil
}
