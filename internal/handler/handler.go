// Package handler exposes the storefront over JSON/HTTP. Every request
// resolves the caller's visitor from its session cookie, runs one operation
// on the visitor's state and renders the result.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/resaller-shop/internal/domain/analytics"
	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/checkout"
	"github.com/xenking/resaller-shop/internal/domain/insight"
	"github.com/xenking/resaller-shop/internal/visitor"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	ImageBaseURL string
	// TaxRate overrides checkout.DefaultTaxRate when Valid.
	TaxRate decimal.NullDecimal
	// MeterProvider receives the business counters. Defaults to noop.
	MeterProvider metric.MeterProvider
}

// Deps are the services the Handler delegates to.
type Deps struct {
	Catalog   *catalog.Service
	Insight   *insight.Service
	Analytics *analytics.Service
	Visitors  *visitor.Registry
}

// Handler serves the /api routes.
type Handler struct {
	catalog   *catalog.Service
	insight   *insight.Service
	analytics *analytics.Service
	visitors  *visitor.Registry
	validator *validator.Validate

	imageBaseURL string
	taxRate      decimal.Decimal

	cartAdds  metric.Int64Counter
	confirmed metric.Int64Counter
}

// New constructs a Handler.
func New(cfg Config, deps Deps) (*Handler, error) {
	taxRate := checkout.DefaultTaxRate
	if cfg.TaxRate.Valid {
		taxRate = cfg.TaxRate.Decimal
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = noop.NewMeterProvider()
	}
	meter := cfg.MeterProvider.Meter("resaller/handler")

	cartAdds, err := meter.Int64Counter("cart.adds",
		metric.WithDescription("Products added to carts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart counter")
	}
	confirmed, err := meter.Int64Counter("checkout.confirmed",
		metric.WithDescription("Confirmed checkouts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout counter")
	}

	return &Handler{
		catalog:      deps.Catalog,
		insight:      deps.Insight,
		analytics:    deps.Analytics,
		visitors:     deps.Visitors,
		validator:    validator.New(validator.WithRequiredStructEnabled()),
		imageBaseURL: cfg.ImageBaseURL,
		taxRate:      taxRate,
		cartAdds:     cartAdds,
		confirmed:    confirmed,
	}, nil
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/home", h.Home)
	mux.HandleFunc("GET /api/catalog", h.Catalog)
	mux.HandleFunc("GET /api/categories", h.Categories)
	mux.HandleFunc("GET /api/products/{id}", h.Product)
	mux.HandleFunc("GET /api/products/{id}/insight", h.ProductInsight)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)

	mux.HandleFunc("POST /api/checkout", h.BeginCheckout)
	mux.HandleFunc("GET /api/checkout", h.GetCheckout)
	mux.HandleFunc("PUT /api/checkout/shipping", h.SubmitShipping)
	mux.HandleFunc("PUT /api/checkout/payment", h.SubmitPayment)
	mux.HandleFunc("POST /api/checkout/continue", h.ContinueCheckout)
	mux.HandleFunc("POST /api/checkout/back", h.BackCheckout)
	mux.HandleFunc("POST /api/checkout/confirm", h.ConfirmCheckout)

	mux.HandleFunc("GET /api/session", h.GetSession)
	mux.HandleFunc("POST /api/session/sign-in", h.SignIn)
	mux.HandleFunc("POST /api/session/sign-out", h.SignOut)

	mux.HandleFunc("GET /api/admin/dashboard", h.AdminDashboard)
	mux.HandleFunc("POST /api/assistant", h.Assistant)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
}
