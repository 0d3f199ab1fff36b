// Package insight wraps the text-generation collaborator behind two
// operations that never fail: every upstream error or empty answer is
// logged and replaced with a fixed fallback message.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DescribeFallback replaces a failed product blurb.
	DescribeFallback = "This premium product is selected for quality and durability, ensuring a great experience for every customer."
	// AssistantFallback replaces a failed assistant answer.
	AssistantFallback = "I'm having trouble connecting to my brain right now, but I can tell you that our support team is available 24/7!"
	// AssistantInstruction is the system instruction sent with shopping queries.
	AssistantInstruction = "You are a friendly shopping assistant for resaller.shop. Keep your answers helpful, concise, and professional."
)

// ErrEmptyResponse is reported when the generator answers with no text.
var ErrEmptyResponse = errors.New("empty response")

// Generator produces text for a prompt. An empty systemInstruction means none.
type Generator interface {
	Generate(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// ErrUnavailable is returned by the generator from Unavailable.
var ErrUnavailable = errors.New("text generation is not configured")

type unavailable struct{}

func (unavailable) Generate(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

// Unavailable returns a Generator that always fails, so every call through
// the Service yields its fallback.
func Unavailable() Generator {
	return unavailable{}
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the provider for insight spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("resaller/insight") }
}

// DefaultCallTimeout bounds a shared describe call.
const DefaultCallTimeout = 30 * time.Second

// WithCallTimeout bounds shared describe calls, which outlive the callers
// that started them.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithMeterProvider sets the provider for the fallback counter.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("resaller/insight") }
}

// Service calls the Generator and absorbs its failures.
type Service struct {
	gen         Generator
	tracer      trace.Tracer
	meter       metric.Meter
	fallbacks   metric.Int64Counter
	describes   singleflight.Group
	callTimeout time.Duration
}

// NewService creates a Service on top of gen.
func NewService(gen Generator, opts ...Option) (*Service, error) {
	s := &Service{
		gen:         gen,
		tracer:      tracenoop.NewTracerProvider().Tracer("resaller/insight"),
		meter:       metricnoop.NewMeterProvider().Meter("resaller/insight"),
		callTimeout: DefaultCallTimeout,
	}
	for _, o := range opts {
		o(s)
	}

	fallbacks, err := s.meter.Int64Counter("insight.fallbacks",
		metric.WithDescription("Generator calls answered with a fallback message"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create fallback counter")
	}
	s.fallbacks = fallbacks
	return s, nil
}

// DescribePrompt builds the blurb prompt for a product.
func DescribePrompt(name, description string) string {
	return fmt.Sprintf("Provide a short, 2-sentence persuasive marketing blurb for a product named %q. Description: %s", name, description)
}

// DescribeProduct returns a short marketing blurb, or DescribeFallback.
// Concurrent calls for the same product share one generator call. The
// shared call is not tied to any single caller: a caller whose ctx is done
// gets DescribeFallback while the others keep waiting for the text.
func (s *Service) DescribeProduct(ctx context.Context, name, description string) string {
	ctx, span := s.tracer.Start(ctx, "insight.DescribeProduct",
		trace.WithAttributes(attribute.String("product.name", name)),
	)
	defer span.End()

	key := name + "\x00" + description
	ch := s.describes.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()
		return s.generate(callCtx, DescribePrompt(name, description), "")
	})

	select {
	case res := <-ch:
		span.SetAttributes(attribute.Bool("insight.shared", res.Shared))
		if res.Err != nil {
			return s.fallback(ctx, span, "describe", res.Err, DescribeFallback)
		}
		return res.Val.(string)
	case <-ctx.Done():
		// Not a generator failure, so no fallback metric.
		span.SetAttributes(attribute.Bool("insight.abandoned", true))
		return DescribeFallback
	}
}

// AnswerShoppingQuery answers a free-form shopping question, or returns
// AssistantFallback.
func (s *Service) AnswerShoppingQuery(ctx context.Context, query string) string {
	ctx, span := s.tracer.Start(ctx, "insight.AnswerShoppingQuery")
	defer span.End()

	text, err := s.generate(ctx, query, AssistantInstruction)
	if err != nil {
		return s.fallback(ctx, span, "assistant", err, AssistantFallback)
	}
	return text
}

func (s *Service) generate(ctx context.Context, prompt, instruction string) (string, error) {
	text, err := s.gen.Generate(ctx, prompt, instruction)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (s *Service) fallback(ctx context.Context, span trace.Span, op string, err error, text string) string {
	span.RecordError(err)
	span.SetStatus(codes.Error, "fallback")
	s.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	zctx.From(ctx).Warn("Text generation failed, using fallback",
		zap.String("op", op),
		zap.Error(err),
	)
	return text
}
