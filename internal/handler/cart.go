package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/resaller-shop/internal/domain/cart"
)

type addItemRequest struct {
	ProductID string `validate:"required"`
}

type updateItemRequest struct {
	Delta *int `validate:"required"`
}

func (h *Handler) writeCart(w http.ResponseWriter, c *cart.Cart, opened bool) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeCartFields(e, c)
		if opened {
			e.Field("open_cart", func(e *jx.Encoder) { e.Bool(true) })
		}
	})
}

// GetCart serves the visitor's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	h.writeCart(w, v.Cart, false)
}

// AddCartItem adds one unit of a product. The response asks the client to
// open the cart panel.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "product_id" {
			return d.Skip()
		}
		s, err := d.Str()
		req.ProductID = s
		return err
	})
	if err == nil {
		err = h.validate(req)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	v.Cart.Add(*p)
	h.cartAdds.Add(r.Context(), 1, metric.WithAttributes(attribute.String("category", p.Category)))
	h.writeCart(w, v.Cart, true)
}

// UpdateCartItem changes a line's quantity by delta, never below one.
// A zero delta is a no-op. Unknown products leave the cart unchanged.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "delta" {
			return d.Skip()
		}
		n, err := d.Int()
		req.Delta = &n
		return err
	})
	if err == nil {
		err = h.validate(req)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	v.Cart.SetQuantityDelta(r.PathValue("id"), *req.Delta)
	h.writeCart(w, v.Cart, false)
}

// RemoveCartItem drops a line. Unknown products are ignored.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	v.Cart.Remove(r.PathValue("id"))
	h.writeCart(w, v.Cart, false)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Resolve(w, r)
	v.Lock()
	defer v.Unlock()
	v.Cart.Clear()
	h.writeCart(w, v.Cart, false)
}
