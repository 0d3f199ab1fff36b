package visitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Config controls visitor handles and eviction.
type Config struct {
	// CookieName carries the visitor handle.
	CookieName string
	// IdleTTL is how long an untouched visitor is kept.
	IdleTTL time.Duration
	// Secure marks the cookie as HTTPS-only.
	Secure bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(lg *zap.Logger) Option {
	return func(r *Registry) { r.lg = lg }
}

// WithMeterProvider enables the active visitors gauge.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Registry) { r.meter = mp.Meter("resaller/visitor") }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry maps visitor handles to visitors.
type Registry struct {
	cfg   Config
	lg    *zap.Logger
	meter metric.Meter
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*Visitor
}

// NewRegistry creates an empty Registry.
func NewRegistry(cfg Config, opts ...Option) (*Registry, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = "resaller_session"
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	r := &Registry{
		cfg:      cfg,
		lg:       zap.NewNop(),
		meter:    noop.NewMeterProvider().Meter("resaller/visitor"),
		now:      time.Now,
		visitors: make(map[string]*Visitor),
	}
	for _, o := range opts {
		o(r)
	}

	if _, err := r.meter.Int64ObservableGauge("visitors.active",
		metric.WithDescription("Visitors held in memory"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(r.Len()))
			return nil
		}),
	); err != nil {
		return nil, errors.Wrap(err, "create visitors gauge")
	}
	return r, nil
}

// Resolve returns the visitor addressed by the request cookie. Requests
// without a known handle get a fresh visitor and a new cookie.
func (r *Registry) Resolve(w http.ResponseWriter, req *http.Request) *Visitor {
	if c, err := req.Cookie(r.cfg.CookieName); err == nil {
		if v, ok := r.Get(c.Value); ok {
			return v
		}
	}
	v := r.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     r.cfg.CookieName,
		Value:    v.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return v
}

// Get returns the visitor for id and marks it as seen.
func (r *Registry) Get(id string) (*Visitor, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitors[id]
	if ok {
		v.lastSeen = r.now()
	}
	return v, ok
}

// Create registers a visitor with a new random handle.
func (r *Registry) Create() *Visitor {
	v := newVisitor(uuid.NewString(), r.now())
	r.mu.Lock()
	r.visitors[v.id] = v
	r.mu.Unlock()
	return v
}

// Len returns the number of visitors held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Evict drops visitors idle for at least IdleTTL as of now and returns how
// many were dropped.
func (r *Registry) Evict(now time.Time) int {
	var idle []*Visitor
	r.mu.Lock()
	for id, v := range r.visitors {
		if now.Sub(v.lastSeen) >= r.cfg.IdleTTL {
			idle = append(idle, v)
			delete(r.visitors, id)
		}
	}
	r.mu.Unlock()

	for _, v := range idle {
		v.Insight.Reset()
	}
	return len(idle)
}

// Close drops every visitor and waits for their insight fetches to return.
// Handles resolved afterwards start fresh visitors.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.visitors
	r.visitors = make(map[string]*Visitor)
	r.mu.Unlock()

	for _, v := range all {
		v.Insight.Close()
	}
	r.lg.Debug("Visitors closed", zap.Int("count", len(all)))
}

// Run evicts idle visitors every half IdleTTL until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.IdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Evict(r.now()); n > 0 {
				r.lg.Debug("Evicted idle visitors", zap.Int("count", n), zap.Int("active", r.Len()))
			}
		}
	}
}
