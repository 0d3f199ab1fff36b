// Package checkout sequences the client-side purchase flow:
//
//	shipping → payment → review → confirmed
//
// Collected shipping and payment details never leave the process. The order
// identifier produced on confirmation is display-only: random, not unique,
// not stored.
package checkout

import (
	"math/rand/v2"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/cart"
)

// Step is a checkout state.
type Step string

const (
	StepShipping  Step = "shipping"
	StepPayment   Step = "payment"
	StepReview    Step = "review"
	StepConfirmed Step = "confirmed"
)

// Number returns the 1-based position of the step, as shown in the progress
// bar.
func (s Step) Number() int {
	switch s {
	case StepShipping:
		return 1
	case StepPayment:
		return 2
	case StepReview:
		return 3
	case StepConfirmed:
		return 4
	default:
		return 0
	}
}

var (
	// ErrEmptyCart is returned when the flow is entered or advanced with an
	// empty cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrMissingDetails is returned by Continue when the current step's
	// details have not been submitted.
	ErrMissingDetails = errors.New("step details are missing")
	// ErrInvalidTransition is returned for an operation the current step
	// does not accept.
	ErrInvalidTransition = errors.New("invalid checkout transition")
	// ErrTerminal is returned for any transition out of StepConfirmed.
	ErrTerminal = errors.New("checkout already confirmed")
)

// DefaultTaxRate is the estimated sales tax applied in the order summary.
var DefaultTaxRate = decimal.RequireFromString("0.08")

const orderNumberSpace = 100000

// ShippingDetails is the first form of the flow.
type ShippingDetails struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Address   string `validate:"required"`
	City      string `validate:"required"`
	Zip       string `validate:"required"`
}

// PaymentDetails is the second form of the flow.
type PaymentDetails struct {
	CardName   string
	CardNumber string `validate:"required"`
	Expiry     string `validate:"required"`
	CVV        string `validate:"required"`
}

// Last4 returns the last four digits of the card number for display.
func (p PaymentDetails) Last4() string {
	digits := make([]byte, 0, len(p.CardNumber))
	for i := range len(p.CardNumber) {
		if c := p.CardNumber[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return string(digits)
}

// Receipt is the snapshot taken at confirmation, before the cart is cleared.
type Receipt struct {
	OrderID string
	Items   []cart.LineItem
	Summary Summary
}

// Option configures a Flow.
type Option func(*Flow)

// WithTaxRate overrides DefaultTaxRate.
func WithTaxRate(rate decimal.Decimal) Option {
	return func(f *Flow) { f.taxRate = rate }
}

// WithOrderNumber overrides the random source of order numbers.
func WithOrderNumber(next func() int) Option {
	return func(f *Flow) { f.orderNumber = next }
}

// Flow is one pass through checkout for a cart. It is not safe for
// concurrent use.
type Flow struct {
	cart        *cart.Cart
	step        Step
	shipping    *ShippingDetails
	payment     *PaymentDetails
	receipt     *Receipt
	taxRate     decimal.Decimal
	orderNumber func() int
}

// Begin enters the flow at StepShipping. It returns ErrEmptyCart when c has
// no lines.
func Begin(c *cart.Cart, opts ...Option) (*Flow, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	f := &Flow{
		cart:        c,
		step:        StepShipping,
		taxRate:     DefaultTaxRate,
		orderNumber: func() int { return rand.IntN(orderNumberSpace) },
	}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

// Step returns the current step.
func (f *Flow) Step() Step {
	return f.step
}

// Shipping returns the submitted shipping details, if any.
func (f *Flow) Shipping() (ShippingDetails, bool) {
	if f.shipping == nil {
		return ShippingDetails{}, false
	}
	return *f.shipping, true
}

// Payment returns the submitted payment details, if any.
func (f *Flow) Payment() (PaymentDetails, bool) {
	if f.payment == nil {
		return PaymentDetails{}, false
	}
	return *f.payment, true
}

// Receipt returns the confirmation snapshot once the flow is confirmed.
func (f *Flow) Receipt() (Receipt, bool) {
	if f.receipt == nil {
		return Receipt{}, false
	}
	return *f.receipt, true
}

// Blocked reports whether the flow can no longer proceed because the cart was
// emptied before confirmation.
func (f *Flow) Blocked() bool {
	return f.step != StepConfirmed && f.cart.IsEmpty()
}

// SubmitShipping stores shipping details. Only valid at StepShipping.
func (f *Flow) SubmitShipping(d ShippingDetails) error {
	if err := f.expect(StepShipping); err != nil {
		return err
	}
	f.shipping = &d
	return nil
}

// SubmitPayment stores payment details. Only valid at StepPayment.
func (f *Flow) SubmitPayment(d PaymentDetails) error {
	if err := f.expect(StepPayment); err != nil {
		return err
	}
	f.payment = &d
	return nil
}

// Continue advances shipping → payment or payment → review. The current
// step's details must have been submitted.
func (f *Flow) Continue() error {
	switch f.step {
	case StepConfirmed:
		return ErrTerminal
	case StepReview:
		return errors.Wrap(ErrInvalidTransition, "review is completed by confirm")
	}
	if f.cart.IsEmpty() {
		return ErrEmptyCart
	}

	switch f.step {
	case StepShipping:
		if f.shipping == nil {
			return errors.Wrap(ErrMissingDetails, "shipping")
		}
		f.step = StepPayment
	case StepPayment:
		if f.payment == nil {
			return errors.Wrap(ErrMissingDetails, "payment")
		}
		f.step = StepReview
	}
	return nil
}

// Back returns to the previous step. It is a no-op at StepShipping.
func (f *Flow) Back() error {
	switch f.step {
	case StepPayment:
		f.step = StepShipping
	case StepReview:
		f.step = StepPayment
	case StepConfirmed:
		return ErrTerminal
	}
	return nil
}

// Confirm completes the purchase from StepReview: it snapshots the cart,
// clears it, and assigns a display-only order identifier.
func (f *Flow) Confirm() (Receipt, error) {
	if err := f.expect(StepReview); err != nil {
		return Receipt{}, err
	}
	if f.cart.IsEmpty() {
		return Receipt{}, ErrEmptyCart
	}

	r := Receipt{
		OrderID: "RES-" + strconv.Itoa(f.orderNumber()),
		Items:   f.cart.Items(),
		Summary: Summarize(f.cart, f.taxRate),
	}
	f.cart.Clear()
	f.receipt = &r
	f.step = StepConfirmed
	return r, nil
}

// Summary returns the live order summary for the flow's cart.
func (f *Flow) Summary() Summary {
	return Summarize(f.cart, f.taxRate)
}

func (f *Flow) expect(step Step) error {
	if f.step == step {
		return nil
	}
	if f.step == StepConfirmed {
		return ErrTerminal
	}
	return errors.Wrapf(ErrInvalidTransition, "at %s, want %s", f.step, step)
}
