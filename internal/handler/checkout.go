package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/resaller-shop/internal/domain/checkout"
	"github.com/xenking/resaller-shop/internal/visitor"
)

func (h *Handler) writeFlow(w http.ResponseWriter, f *checkout.Flow) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("step", func(e *jx.Encoder) { e.Str(string(f.Step())) })
		e.Field("step_number", func(e *jx.Encoder) { e.Int(f.Step().Number()) })

		if s, ok := f.Shipping(); ok {
			e.Field("shipping", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("email", func(e *jx.Encoder) { e.Str(s.Email) })
					e.Field("first_name", func(e *jx.Encoder) { e.Str(s.FirstName) })
					e.Field("last_name", func(e *jx.Encoder) { e.Str(s.LastName) })
					e.Field("address", func(e *jx.Encoder) { e.Str(s.Address) })
					e.Field("city", func(e *jx.Encoder) { e.Str(s.City) })
					e.Field("zip", func(e *jx.Encoder) { e.Str(s.Zip) })
				})
			})
		}
		// Card number and CVV are never echoed back.
		if p, ok := f.Payment(); ok {
			e.Field("payment", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("card_name", func(e *jx.Encoder) { e.Str(p.CardName) })
					e.Field("last4", func(e *jx.Encoder) { e.Str(p.Last4()) })
					e.Field("expiry", func(e *jx.Encoder) { e.Str(p.Expiry) })
				})
			})
		}

		if receipt, ok := f.Receipt(); ok {
			e.Field("receipt", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("order_id", func(e *jx.Encoder) { e.Str(receipt.OrderID) })
					e.Field("items", func(e *jx.Encoder) { h.encodeLines(e, receipt.Items) })
					e.Field("summary", func(e *jx.Encoder) { encodeSummary(e, receipt.Summary) })
				})
			})
			return
		}
		e.Field("summary", func(e *jx.Encoder) { encodeSummary(e, f.Summary()) })
	})
}

// redirectEmptyCart sends the visitor back to the catalog.
func redirectEmptyCart(w http.ResponseWriter) {
	writeErrorRedirect(w, http.StatusSeeOther, "cart is empty", catalogPath)
}

// BeginCheckout starts a fresh flow for the visitor's cart.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()

	f, err := v.BeginCheckout(h.taxRate)
	if errors.Is(err, checkout.ErrEmptyCart) {
		redirectEmptyCart(w)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeFlow(w, f)
}

// GetCheckout serves the current flow, starting one if needed. A flow whose
// cart was emptied before confirmation redirects to the catalog.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()

	f, err := v.Checkout()
	if errors.Is(err, visitor.ErrNoCheckout) {
		f, err = v.BeginCheckout(h.taxRate)
	}
	if errors.Is(err, checkout.ErrEmptyCart) || (err == nil && f.Blocked()) {
		redirectEmptyCart(w)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeFlow(w, f)
}

// withFlow runs op against the visitor's active flow and renders the result.
func (h *Handler) withFlow(w http.ResponseWriter, r *http.Request, op func(f *checkout.Flow) error) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()

	f, err := v.Checkout()
	if err == nil {
		err = op(f)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeFlow(w, f)
}

// SubmitShipping stores the shipping form.
func (h *Handler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var d checkout.ShippingDetails
	err := readObject(r, func(dec *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "email":
			dst = &d.Email
		case "first_name":
			dst = &d.FirstName
		case "last_name":
			dst = &d.LastName
		case "address":
			dst = &d.Address
		case "city":
			dst = &d.City
		case "zip":
			dst = &d.Zip
		default:
			return dec.Skip()
		}
		s, err := dec.Str()
		*dst = s
		return err
	})
	if err == nil {
		err = h.validate(d)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.withFlow(w, r, func(f *checkout.Flow) error { return f.SubmitShipping(d) })
}

// SubmitPayment stores the payment form.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var d checkout.PaymentDetails
	err := readObject(r, func(dec *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "card_name":
			dst = &d.CardName
		case "card_number":
			dst = &d.CardNumber
		case "expiry":
			dst = &d.Expiry
		case "cvv":
			dst = &d.CVV
		default:
			return dec.Skip()
		}
		s, err := dec.Str()
		*dst = s
		return err
	})
	if err == nil {
		err = h.validate(d)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.withFlow(w, r, func(f *checkout.Flow) error { return f.SubmitPayment(d) })
}

// ContinueCheckout advances to the next step.
func (h *Handler) ContinueCheckout(w http.ResponseWriter, r *http.Request) {
	h.withFlow(w, r, (*checkout.Flow).Continue)
}

// BackCheckout returns to the previous step.
func (h *Handler) BackCheckout(w http.ResponseWriter, r *http.Request) {
	h.withFlow(w, r, (*checkout.Flow).Back)
}

// ConfirmCheckout places the order and empties the cart.
func (h *Handler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	h.withFlow(w, r, func(f *checkout.Flow) error {
		if _, err := f.Confirm(); err != nil {
			return err
		}
		h.confirmed.Add(r.Context(), 1)
		return nil
	})
}
