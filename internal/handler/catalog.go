package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/insight"
	"github.com/xenking/resaller-shop/internal/domain/product"
)

// Home serves the landing page selections.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Landing(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("featured", func(e *jx.Encoder) { h.encodeProducts(e, l.Featured) })
		e.Field("best_sellers", func(e *jx.Encoder) { h.encodeProducts(e, l.BestSellers) })
		e.Field("categories", func(e *jx.Encoder) { encodeStrings(e, l.Categories) })
	})
}

func parseQuery(r *http.Request) (catalog.Query, error) {
	q := catalog.DefaultQuery()
	v := r.URL.Query()

	if c := v.Get("category"); c != "" {
		q.Category = c
	}
	if s := v.Get("max_price"); s != "" {
		ceiling, err := decimal.NewFromString(s)
		if err != nil || ceiling.IsNegative() {
			return q, errBadRequest("max_price must be a non-negative number")
		}
		q.PriceCeiling = ceiling
	}
	sort, err := catalog.ParseSortOption(v.Get("sort"))
	if err != nil {
		return q, err
	}
	q.Sort = sort
	return q, nil
}

// Catalog serves the filtered and sorted product list.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	products, err := h.catalog.Search(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("query", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("category", func(e *jx.Encoder) { e.Str(q.Category) })
				e.Field("max_price", func(e *jx.Encoder) { money(e, q.PriceCeiling) })
				e.Field("sort", func(e *jx.Encoder) { e.Str(string(q.Sort)) })
				e.Field("sort_label", func(e *jx.Encoder) { e.Str(q.Sort.Label()) })
			})
		})
		e.Field("count", func(e *jx.Encoder) { e.Int(len(products)) })
		e.Field("products", func(e *jx.Encoder) { h.encodeProducts(e, products) })
		e.Field("sort_options", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, opt := range catalog.SortOptions {
					e.Obj(func(e *jx.Encoder) {
						e.Field("value", func(e *jx.Encoder) { e.Str(string(opt)) })
						e.Field("label", func(e *jx.Encoder) { e.Str(opt.Label()) })
					})
				}
			})
		})
	})
}

// Categories serves the category labels, "All" first.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("categories", func(e *jx.Encoder) { encodeStrings(e, cats) })
	})
}

// Product serves the product detail view and starts loading its insight
// into the visitor's slot.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := h.visitors.Resolve(w, r)
	h.loadInsight(r.Context(), &v.Insight, *p)

	v.Lock()
	inCart := v.Cart.Quantity(p.ID)
	v.Unlock()

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("product", func(e *jx.Encoder) { h.encodeProduct(e, *p) })
		e.Field("in_cart", func(e *jx.Encoder) { e.Int(inCart) })
		e.Field("insight", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("status", func(e *jx.Encoder) { e.Str(string(insight.StatusPending)) })
			})
		})
	})
}

// ProductInsight reports the visitor's insight slot for a product. A slot
// showing another product is switched to this one.
func (h *Handler) ProductInsight(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	v := h.visitors.Resolve(w, r)
	text, status := v.Insight.Get(p.ID)
	if status == insight.StatusNone {
		h.loadInsight(r.Context(), &v.Insight, *p)
		status = insight.StatusPending
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(status)) })
		if status == insight.StatusReady {
			e.Field("text", func(e *jx.Encoder) { e.Str(text) })
		}
	})
}

func (h *Handler) loadInsight(ctx context.Context, slot *insight.Slot, p product.Product) {
	slot.Load(ctx, p.ID, func(ctx context.Context) string {
		return h.insight.DescribeProduct(ctx, p.Name, p.Description)
	})
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s)
		}
	})
}
