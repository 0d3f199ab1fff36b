package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/resaller-shop/internal/domain/analytics"
	"github.com/xenking/resaller-shop/internal/domain/cart"
	"github.com/xenking/resaller-shop/internal/domain/checkout"
	"github.com/xenking/resaller-shop/internal/domain/product"
	"github.com/xenking/resaller-shop/internal/domain/session"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, code int, body func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.Obj(body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeErrorRedirect(w, code, msg, "")
}

func writeErrorRedirect(w http.ResponseWriter, code int, msg, redirect string) {
	if redirect != "" && code >= 300 && code < 400 {
		w.Header().Set("Location", redirect)
	}
	writeJSON(w, code, func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		if redirect != "" {
			e.Field("redirect", func(e *jx.Encoder) { e.Str(redirect) })
		}
	})
}

// readObject decodes a JSON object body, calling field for every key.
func readObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(body) > maxBodyBytes {
		return errBadRequest("request body too large")
	}
	if err := jx.DecodeBytes(body).Obj(field); err != nil {
		return errBadRequest("invalid JSON body")
	}
	return nil
}

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { money(e, p.Price) })
		if p.OriginalPrice.Valid {
			e.Field("original_price", func(e *jx.Encoder) { money(e, p.OriginalPrice.Decimal) })
		}
		e.Field("on_sale", func(e *jx.Encoder) { e.Bool(p.OnSale()) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(p.Image)) })
		e.Field("images", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, img := range p.Images {
					e.Str(h.imageURL(img))
				}
			})
		})
		e.Field("rating", func(e *jx.Encoder) { e.Float64(p.Rating) })
		e.Field("reviews", func(e *jx.Encoder) { e.Int(p.Reviews) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		if p.Brand != "" {
			e.Field("brand", func(e *jx.Encoder) { e.Str(p.Brand) })
		}
		e.Field("featured", func(e *jx.Encoder) { e.Bool(p.Featured) })
		e.Field("best_seller", func(e *jx.Encoder) { e.Bool(p.BestSeller) })
	})
}

func (h *Handler) encodeProducts(e *jx.Encoder, ps []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range ps {
			h.encodeProduct(e, p)
		}
	})
}

func (h *Handler) encodeLines(e *jx.Encoder, lines []cart.LineItem) {
	e.Arr(func(e *jx.Encoder) {
		for _, li := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("product", func(e *jx.Encoder) { h.encodeProduct(e, li.Product) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(li.Quantity) })
				e.Field("subtotal", func(e *jx.Encoder) { money(e, li.Subtotal()) })
			})
		}
	})
}

// encodeCartFields writes the cart fields into the enclosing object.
func (h *Handler) encodeCartFields(e *jx.Encoder, c *cart.Cart) {
	e.Field("items", func(e *jx.Encoder) { h.encodeLines(e, c.Items()) })
	e.Field("count", func(e *jx.Encoder) { e.Int(c.Count()) })
	e.Field("total", func(e *jx.Encoder) { money(e, c.Total()) })
}

func encodeSummary(e *jx.Encoder, s checkout.Summary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("subtotal", func(e *jx.Encoder) { money(e, s.Subtotal) })
		e.Field("shipping", func(e *jx.Encoder) { money(e, s.Shipping) })
		e.Field("free_shipping", func(e *jx.Encoder) { e.Bool(s.FreeShipping()) })
		e.Field("tax", func(e *jx.Encoder) { money(e, s.Tax) })
		e.Field("total", func(e *jx.Encoder) { money(e, s.Total) })
	})
}

func encodeIdentityFields(e *jx.Encoder, id session.Identity, ok bool) {
	e.Field("signed_in", func(e *jx.Encoder) { e.Bool(ok) })
	if !ok {
		return
	}
	e.Field("user", func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(id.ID) })
			e.Field("name", func(e *jx.Encoder) { e.Str(id.Name) })
			e.Field("email", func(e *jx.Encoder) { e.Str(id.Email) })
			e.Field("role", func(e *jx.Encoder) { e.Str(string(id.Role)) })
		})
	})
}

func encodeProfileOrders(e *jx.Encoder, orders []analytics.ProfileOrder) {
	e.Field("orders", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range orders {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
					e.Field("placed_at", func(e *jx.Encoder) { e.Str(o.PlacedAt.Format(time.DateOnly)) })
					e.Field("amount", func(e *jx.Encoder) { money(e, o.Amount) })
					e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
				})
			}
		})
	})
}

func (h *Handler) encodeDashboard(e *jx.Encoder, d *analytics.Dashboard) {
	e.Field("weekly", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range d.Weekly {
				e.Obj(func(e *jx.Encoder) {
					e.Field("day", func(e *jx.Encoder) { e.Str(p.Day) })
					e.Field("sales", func(e *jx.Encoder) { e.Int(p.Sales) })
					e.Field("orders", func(e *jx.Encoder) { e.Int(p.Orders) })
				})
			}
		})
	})
	e.Field("stats", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, s := range d.Stats {
				e.Obj(func(e *jx.Encoder) {
					e.Field("label", func(e *jx.Encoder) { e.Str(s.Label) })
					e.Field("value", func(e *jx.Encoder) { e.Str(s.Value) })
					e.Field("trend", func(e *jx.Encoder) { e.Str(s.Trend) })
					e.Field("up", func(e *jx.Encoder) { e.Bool(s.Up()) })
				})
			}
		})
	})
	e.Field("recent_orders", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range d.RecentOrders {
				e.Obj(func(e *jx.Encoder) {
					e.Field("customer", func(e *jx.Encoder) { e.Str(o.Customer) })
					e.Field("initials", func(e *jx.Encoder) { e.Str(o.Initials) })
					e.Field("product", func(e *jx.Encoder) { e.Str(o.Product) })
					e.Field("amount", func(e *jx.Encoder) { money(e, o.Amount) })
					e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
				})
			}
		})
	})
	e.Field("inventory", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, row := range d.Inventory {
				e.Obj(func(e *jx.Encoder) {
					e.Field("product_id", func(e *jx.Encoder) { e.Str(row.ProductID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(row.Name) })
					e.Field("category", func(e *jx.Encoder) { e.Str(row.Category) })
					e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(row.Image)) })
					e.Field("price", func(e *jx.Encoder) { money(e, row.Price) })
					e.Field("stock", func(e *jx.Encoder) { e.Int(row.Stock) })
					e.Field("low_stock", func(e *jx.Encoder) { e.Bool(row.LowStock) })
				})
			}
		})
	})
}
