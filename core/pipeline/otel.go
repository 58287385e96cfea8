package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/searchktools/fast-gateway/core/http"
)

// tracingHooks holds the optional tracer. Spans open before middleware
// and close after the response is final, so short-circuits, cache hits
// and failures are all covered by one span.
type tracingHooks struct {
	tracer trace.Tracer
}

// WithTracing enables a dispatch span per request.
func WithTracing(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		p.tracing = &tracingHooks{
			tracer: tp.Tracer("fast-gateway/pipeline"),
		}
	}
}

func (p *Pipeline) startSpan(ctx context.Context, req *http.Request) (context.Context, func(*http.Response)) {
	if p.tracing == nil {
		return ctx, func(*http.Response) {}
	}
	ctx, span := p.tracing.tracer.Start(ctx, req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	return ctx, func(resp *http.Response) {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
		if resp.Status >= 500 {
			span.SetStatus(codes.Error, "")
		}
		if resp.Header(http.HeaderCacheStatus) == http.CacheStatusHit {
			span.SetAttributes(attribute.Bool("gateway.cache_hit", true))
		}
		span.End()
	}
}
