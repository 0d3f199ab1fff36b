package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/resaller-shop/internal/domain/analytics"
	"github.com/xenking/resaller-shop/internal/domain/catalog"
	"github.com/xenking/resaller-shop/internal/domain/insight"
	"github.com/xenking/resaller-shop/internal/storage/memory"
	"github.com/xenking/resaller-shop/internal/visitor"
)

// --- Mock implementations ---

type mockGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (m *mockGenerator) Generate(context.Context, string, string) (string, error) {
	m.calls.Add(1)
	return m.text, m.err
}

// --- Helpers ---

type testEnv struct {
	mux      *http.ServeMux
	visitors *visitor.Registry
	gen      *mockGenerator
}

func newTestEnv(t *testing.T, gen *mockGenerator) *testEnv {
	t.Helper()
	return newTestEnvConfig(t, gen, Config{ImageBaseURL: "https://cdn.example.com"})
}

func newTestEnvConfig(t *testing.T, gen *mockGenerator, cfg Config) *testEnv {
	t.Helper()
	repo, err := memory.LoadDefault()
	require.NoError(t, err)

	ins, err := insight.NewService(gen)
	require.NoError(t, err)
	visitors, err := visitor.NewRegistry(visitor.Config{IdleTTL: time.Hour})
	require.NoError(t, err)

	h, err := New(cfg, Deps{
		Catalog:   catalog.NewService(repo),
		Insight:   ins,
		Analytics: analytics.NewService(repo),
		Visitors:  visitors,
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	t.Cleanup(func() { visitors.Evict(time.Now().Add(24 * time.Hour)) })
	return &testEnv{mux: mux, visitors: visitors, gen: gen}
}

// client carries the visitor cookie between requests.
type client struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e}
}

type response struct {
	code   int
	header http.Header
	body   map[string]any
	raw    string
}

func (c *client) do(method, path, body string) response {
	c.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.env.mux.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "resaller_session" {
			c.cookie = ck
		}
	}

	resp := response{code: rec.Code, header: rec.Header(), raw: rec.Body.String()}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp.body), rec.Body.String())
	}
	return resp
}

func ids(t *testing.T, v any) []string {
	t.Helper()
	list, ok := v.([]any)
	require.True(t, ok, "not a list: %v", v)
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = item.(map[string]any)["id"].(string)
	}
	return out
}

func cartLines(t *testing.T, body map[string]any) map[string]float64 {
	t.Helper()
	out := map[string]float64{}
	for _, item := range body["items"].([]any) {
		line := item.(map[string]any)
		out[line["product"].(map[string]any)["id"].(string)] = line["quantity"].(float64)
	}
	return out
}

const (
	shippingBody = `{"email":"jane@store.com","first_name":"Jane","last_name":"Doe","address":"1 Main St","city":"New York","zip":"10001"}`
	paymentBody  = `{"card_name":"Jane Doe","card_number":"4242 4242 4242 4242","expiry":"12/26","cvv":"123"}`
)

// --- Catalog ---

func TestHome(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	resp := c.do(http.MethodGet, "/api/home", "")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Equal(t, []string{"1", "2", "4"}, ids(t, resp.body["featured"]))
	assert.Equal(t, []string{"1", "3"}, ids(t, resp.body["best_sellers"]))
	assert.Equal(t, []any{"Electronics", "Footwear", "Apparel"}, resp.body["categories"])
}

func TestCatalog(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"4", "1", "5", "2", "6", "3"}},
		{query: "?sort=price_asc", want: []string{"5", "2", "3", "6", "1", "4"}},
		{query: "?sort=Price:+High+to+Low", want: []string{"4", "1", "6", "3", "2", "5"}},
		{query: "?sort=newest", want: []string{"6", "5", "4", "3", "2", "1"}},
		{query: "?category=Electronics&sort=price_asc", want: []string{"2", "4"}},
		{query: "?max_price=89.99&sort=price_asc", want: []string{"5", "2"}},
		{query: "?max_price=0", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := c.do(http.MethodGet, "/api/catalog"+tt.query, "")
			require.Equal(t, http.StatusOK, resp.code, resp.raw)
			assert.Equal(t, tt.want, ids(t, resp.body["products"]))
			assert.Equal(t, float64(len(tt.want)), resp.body["count"])
		})
	}
}

func TestCatalog_BadQuery(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	for _, q := range []string{"?sort=cheapest", "?max_price=abc", "?max_price=-1"} {
		resp := c.do(http.MethodGet, "/api/catalog"+q, "")
		assert.Equal(t, http.StatusBadRequest, resp.code, q)
		assert.Equal(t, float64(400), resp.body["code"])
	}
}

func TestCategories(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)
	resp := c.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Equal(t, "All", resp.body["categories"].([]any)[0])
}

func TestProduct(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{text: "Buy it."}).client(t)

	resp := c.do(http.MethodGet, "/api/products/1", "")
	require.Equal(t, http.StatusOK, resp.code)
	p := resp.body["product"].(map[string]any)
	assert.Equal(t, "Air Max Pro v2", p["name"])
	assert.True(t, strings.HasPrefix(p["image"].(string), "http"), p["image"])
	assert.Equal(t, float64(0), resp.body["in_cart"])
	assert.Equal(t, "pending", resp.body["insight"].(map[string]any)["status"])

	require.Eventually(t, func() bool {
		return c.do(http.MethodGet, "/api/products/1/insight", "").body["status"] == "ready"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Buy it.", c.do(http.MethodGet, "/api/products/1/insight", "").body["text"])
}

func TestProduct_NotFound(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	for _, path := range []string{"/api/products/999", "/api/products/999/insight"} {
		resp := c.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, resp.code)
		assert.JSONEq(t, `{"code":404,"message":"product not found","redirect":"/api/catalog"}`, resp.raw)
	}
}

func TestProductInsight_Fallback(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{err: errors.New("quota")}).client(t)

	resp := c.do(http.MethodGet, "/api/products/2/insight", "")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Equal(t, "pending", resp.body["status"])

	require.Eventually(t, func() bool {
		return c.do(http.MethodGet, "/api/products/2/insight", "").body["status"] == "ready"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, insight.DescribeFallback, c.do(http.MethodGet, "/api/products/2/insight", "").body["text"])
}

// --- Cart ---

func TestCart_Flow(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})
	c := env.client(t)

	resp := c.do(http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, resp.code)
	assert.Empty(t, resp.body["items"])
	assert.Equal(t, float64(0), resp.body["total"])

	resp = c.do(http.MethodPost, "/api/cart/items", `{"product_id":"1"}`)
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	assert.Equal(t, true, resp.body["open_cart"])

	c.do(http.MethodPost, "/api/cart/items", `{"product_id":"1"}`)
	resp = c.do(http.MethodPost, "/api/cart/items", `{"product_id":"5"}`)
	assert.Equal(t, map[string]float64{"1": 2, "5": 1}, cartLines(t, resp.body))
	assert.Equal(t, float64(3), resp.body["count"])
	assert.InDelta(t, 2*189.99+45.00, resp.body["total"], 0.001)

	resp = c.do(http.MethodPatch, "/api/cart/items/5", `{"delta":-1}`)
	assert.Equal(t, float64(1), cartLines(t, resp.body)["5"], "quantity floors at one")

	resp = c.do(http.MethodPatch, "/api/cart/items/1", `{"delta":1}`)
	assert.Equal(t, float64(3), cartLines(t, resp.body)["1"])

	resp = c.do(http.MethodPatch, "/api/cart/items/404", `{"delta":1}`)
	assert.Equal(t, http.StatusOK, resp.code)
	assert.Len(t, cartLines(t, resp.body), 2)

	resp = c.do(http.MethodDelete, "/api/cart/items/1", "")
	assert.Equal(t, map[string]float64{"5": 1}, cartLines(t, resp.body))

	resp = c.do(http.MethodDelete, "/api/cart", "")
	assert.Empty(t, resp.body["items"])
	assert.Equal(t, float64(0), resp.body["count"])

	assert.Equal(t, 1, env.visitors.Len(), "one cookie, one visitor")
}

func TestCart_BadRequests(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/cart/items", `{"product_id":"999"}`, http.StatusNotFound},
		{http.MethodPost, "/api/cart/items", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/api/cart/items", `not json`, http.StatusBadRequest},
		{http.MethodPost, "/api/cart/items", `{"product_id":1}`, http.StatusBadRequest},
		{http.MethodPatch, "/api/cart/items/1", `{}`, http.StatusBadRequest},
		{http.MethodPatch, "/api/cart/items/1", `{"delta":null}`, http.StatusBadRequest},
		{http.MethodPatch, "/api/cart/items/1", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := c.do(tt.method, tt.path, tt.body)
		assert.Equal(t, tt.want, resp.code, "%s %s %s", tt.method, tt.path, tt.body)
	}
}

func TestCart_ZeroDelta(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	c.do(http.MethodPost, "/api/cart/items", `{"product_id":"4"}`)
	c.do(http.MethodPatch, "/api/cart/items/4", `{"delta":2}`)

	resp := c.do(http.MethodPatch, "/api/cart/items/4", `{"delta":0}`)
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	assert.Equal(t, map[string]float64{"4": 3}, cartLines(t, resp.body))
}

func TestCart_VisitorsIsolated(t *testing.T) {
	env := newTestEnv(t, &mockGenerator{})
	a, b := env.client(t), env.client(t)

	a.do(http.MethodPost, "/api/cart/items", `{"product_id":"2"}`)
	resp := b.do(http.MethodGet, "/api/cart", "")
	assert.Empty(t, resp.body["items"])
}

// --- Checkout ---

func TestCheckout_EmptyCartRedirects(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		resp := c.do(method, "/api/checkout", "")
		assert.Equal(t, http.StatusSeeOther, resp.code)
		assert.Equal(t, "/api/catalog", resp.header.Get("Location"))
	}
}

func TestCheckout_FullFlow(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)
	c.do(http.MethodPost, "/api/cart/items", `{"product_id":"1"}`)

	resp := c.do(http.MethodPost, "/api/checkout", "")
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	assert.Equal(t, "shipping", resp.body["step"])
	summary := resp.body["summary"].(map[string]any)
	assert.InDelta(t, 189.99, summary["subtotal"], 0.001)
	assert.InDelta(t, 15.20, summary["tax"], 0.001)
	assert.InDelta(t, 205.19, summary["total"], 0.001)
	assert.Equal(t, true, summary["free_shipping"])

	resp = c.do(http.MethodPost, "/api/checkout/continue", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.code, "shipping details missing")

	resp = c.do(http.MethodPut, "/api/checkout/shipping", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, resp.code)

	resp = c.do(http.MethodPut, "/api/checkout/shipping", shippingBody)
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	assert.Equal(t, "Jane", resp.body["shipping"].(map[string]any)["first_name"])

	resp = c.do(http.MethodPut, "/api/checkout/payment", paymentBody)
	assert.Equal(t, http.StatusConflict, resp.code, "payment before reaching the step")

	resp = c.do(http.MethodPost, "/api/checkout/continue", "")
	assert.Equal(t, "payment", resp.body["step"])

	resp = c.do(http.MethodPut, "/api/checkout/payment", paymentBody)
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	payment := resp.body["payment"].(map[string]any)
	assert.Equal(t, "4242", payment["last4"])
	assert.NotContains(t, resp.raw, "4242 4242")
	assert.NotContains(t, resp.raw, `"cvv"`)

	resp = c.do(http.MethodPost, "/api/checkout/continue", "")
	assert.Equal(t, "review", resp.body["step"])

	resp = c.do(http.MethodPost, "/api/checkout/back", "")
	assert.Equal(t, "payment", resp.body["step"])
	c.do(http.MethodPost, "/api/checkout/continue", "")

	resp = c.do(http.MethodPost, "/api/checkout/confirm", "")
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	assert.Equal(t, "confirmed", resp.body["step"])
	assert.Equal(t, float64(4), resp.body["step_number"])
	receipt := resp.body["receipt"].(map[string]any)
	assert.Regexp(t, `^RES-\d{1,5}$`, receipt["order_id"])
	assert.Len(t, receipt["items"], 1)

	resp = c.do(http.MethodGet, "/api/cart", "")
	assert.Empty(t, resp.body["items"], "confirm empties the cart")

	resp = c.do(http.MethodGet, "/api/checkout", "")
	assert.Equal(t, http.StatusOK, resp.code, "confirmation stays visible")
	assert.Equal(t, "confirmed", resp.body["step"])

	resp = c.do(http.MethodPost, "/api/checkout/back", "")
	assert.Equal(t, http.StatusConflict, resp.code)
}

func TestCheckout_CartEmptiedMidFlow(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)
	c.do(http.MethodPost, "/api/cart/items", `{"product_id":"3"}`)
	c.do(http.MethodPost, "/api/checkout", "")
	c.do(http.MethodPut, "/api/checkout/shipping", shippingBody)

	c.do(http.MethodDelete, "/api/cart", "")

	resp := c.do(http.MethodPost, "/api/checkout/continue", "")
	assert.Equal(t, http.StatusConflict, resp.code)

	resp = c.do(http.MethodGet, "/api/checkout", "")
	assert.Equal(t, http.StatusSeeOther, resp.code)
}

func TestCheckout_ConfiguredTaxRate(t *testing.T) {
	env := newTestEnvConfig(t, &mockGenerator{}, Config{TaxRate: decimal.NewNullDecimal(decimal.Zero)})
	c := env.client(t)
	c.do(http.MethodPost, "/api/cart/items", `{"product_id":"1"}`)

	resp := c.do(http.MethodPost, "/api/checkout", "")
	summary := resp.body["summary"].(map[string]any)
	assert.Equal(t, float64(0), summary["tax"])
	assert.InDelta(t, 189.99, summary["total"], 0.001)
}

func TestCheckout_NotStarted(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)
	resp := c.do(http.MethodPost, "/api/checkout/continue", "")
	assert.Equal(t, http.StatusConflict, resp.code)
	assert.Equal(t, "checkout has not been started", resp.body["message"])
}

// --- Session and admin ---

func TestSession(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	resp := c.do(http.MethodGet, "/api/session", "")
	assert.JSONEq(t, `{"signed_in":false}`, resp.raw)

	resp = c.do(http.MethodPost, "/api/session/sign-in", `{"email":"jane@store.com"}`)
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	assert.JSONEq(t, `{
		"signed_in": true,
		"user": {"id": "u1", "name": "jane", "email": "jane@store.com", "role": "customer"},
		"orders": [
			{"id": "RES-10244", "placed_at": "2024-05-13", "amount": 214.50, "status": "delivered"},
			{"id": "RES-10245", "placed_at": "2024-05-14", "amount": 214.50, "status": "delivered"}
		]
	}`, resp.raw)

	resp = c.do(http.MethodGet, "/api/session", "")
	assert.Len(t, resp.body["orders"], 2, "order history follows the identity")

	c.do(http.MethodPost, "/api/cart/items", `{"product_id":"1"}`)
	resp = c.do(http.MethodPost, "/api/session/sign-out", "")
	assert.JSONEq(t, `{"signed_in":false}`, resp.raw)

	resp = c.do(http.MethodGet, "/api/cart", "")
	assert.Len(t, resp.body["items"], 1, "sign-out keeps the cart")
}

func TestSignIn_Invalid(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)
	for _, body := range []string{`{"email":""}`, `{"email":"nope"}`, `{}`} {
		resp := c.do(http.MethodPost, "/api/session/sign-in", body)
		assert.Equal(t, http.StatusBadRequest, resp.code, body)
	}
}

func TestAdminDashboard(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)

	resp := c.do(http.MethodGet, "/api/admin/dashboard", "")
	assert.Equal(t, http.StatusForbidden, resp.code, "anonymous")

	c.do(http.MethodPost, "/api/session/sign-in", `{"email":"jane@store.com"}`)
	resp = c.do(http.MethodGet, "/api/admin/dashboard", "")
	assert.Equal(t, http.StatusForbidden, resp.code, "customer")

	c.do(http.MethodPost, "/api/session/sign-in", `{"email":"admin@store.com"}`)
	resp = c.do(http.MethodGet, "/api/admin/dashboard", "")
	require.Equal(t, http.StatusOK, resp.code, resp.raw)
	assert.Len(t, resp.body["weekly"], 7)
	assert.Len(t, resp.body["stats"], 4)
	assert.Len(t, resp.body["recent_orders"], 5)
	assert.Len(t, resp.body["inventory"], 6)
}

// --- Assistant ---

func TestAssistant(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{text: "Try the wallet."}).client(t)

	resp := c.do(http.MethodPost, "/api/assistant", `{"query":"gift ideas?"}`)
	require.Equal(t, http.StatusOK, resp.code)
	assert.Equal(t, "Try the wallet.", resp.body["answer"])

	resp = c.do(http.MethodPost, "/api/assistant", `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.code)
}

func TestAssistant_Fallback(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{err: errors.New("down")}).client(t)
	resp := c.do(http.MethodPost, "/api/assistant", `{"query":"hi"}`)
	assert.Equal(t, insight.AssistantFallback, resp.body["answer"])
}

func TestUnknownRoute(t *testing.T) {
	c := newTestEnv(t, &mockGenerator{}).client(t)
	resp := c.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.code)
	assert.Equal(t, "route not found", resp.body["message"])
}
