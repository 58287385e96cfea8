// Package pipeline sequences the processing of a single request:
// ordered middleware, cache lookup, validation and handler invocation.
// Every request runs the state machine
//
//	Received -> MiddlewareRunning -> CacheCheck
//	    -> CacheHit -> Responding
//	    -> CacheMiss -> Validating -> HandlerRunning -> Responding
//
// with Responding and Failed as terminal states. A Failed state never
// escapes: it is always converted into a response at the boundary.
package pipeline

import (
	"context"
	"io"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/searchktools/fast-gateway/core/cache"
	"github.com/searchktools/fast-gateway/core/http"
	"github.com/searchktools/fast-gateway/core/metrics"
	"github.com/searchktools/fast-gateway/core/router"
)

// State identifies a stage of the per-request state machine.
type State uint8

const (
	StateReceived State = iota
	StateMiddlewareRunning
	StateCacheCheck
	StateCacheHit
	StateCacheMiss
	StateValidating
	StateHandlerRunning
	StateResponding
	StateFailed
)

var stateNames = [...]string{
	"Received", "MiddlewareRunning", "CacheCheck", "CacheHit",
	"CacheMiss", "Validating", "HandlerRunning", "Responding", "Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Middleware is one stage of the ordered chain. Returning a non-nil
// response short-circuits the request: downstream stages and the
// handler are skipped and the response is final. Returning an error
// moves the request to Failed. Returning (nil, nil) continues.
type Middleware func(ctx context.Context, c *http.Ctx) (*http.Response, error)

// Validator is the schema-validation boundary collaborator. It is a
// pure function of (schema, data); a failed validation returns a
// *ValidationError.
type Validator interface {
	Validate(schema any, data []byte) error
}

// Config wires a Pipeline.
type Config struct {
	Table *router.Table
	// Cache is optional; without it every request goes to the handler.
	Cache     *cache.Coordinator
	Validator Validator
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Pipeline dispatches requests. A Pipeline instance is shared by all
// concurrent requests; all per-request state lives on the stack or in
// the pooled http.Ctx, so no locking happens on the hot path.
type Pipeline struct {
	table      *router.Table
	cache      *cache.Coordinator
	validator  Validator
	metrics    *metrics.Collector
	logger     *slog.Logger
	middleware []Middleware
	tracing    *tracingHooks

	// group collapses concurrent misses for one cache key into a
	// single validation+handler execution.
	group singleflight.Group
}

// New creates a Pipeline.
func New(cfg Config, opts ...Option) *Pipeline {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNopCollector()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	p := &Pipeline{
		table:     cfg.Table,
		cache:     cfg.Cache,
		validator: cfg.Validator,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Option configures optional pipeline behavior.
type Option func(*Pipeline)

// Use appends middleware stages. Stages execute in registration order,
// always.
func (p *Pipeline) Use(mw ...Middleware) {
	p.middleware = append(p.middleware, mw...)
}

// Dispatch runs the full state machine for one request and always
// returns a response; per-request failures never crash the process.
func (p *Pipeline) Dispatch(ctx context.Context, req *http.Request) (resp *http.Response) {
	start := time.Now()
	ctx, finish := p.startSpan(ctx, req)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in dispatch",
				"method", req.Method, "path", req.Path, "panic", r)
			resp = errorResponse(500, "internal server error")
		}
		p.metrics.ObserveRequest(req.Method, resp.Status, time.Since(start))
		finish(resp)
	}()

	return p.dispatch(ctx, req)
}

func (p *Pipeline) dispatch(ctx context.Context, req *http.Request) *http.Response {
	e := execution{p: p, req: req, state: StateReceived}

	route, params, err := p.table.Resolve(req.Method, req.Path)
	if err != nil {
		return e.fail(err)
	}
	e.route = route

	c := http.AcquireCtx(req)
	defer http.ReleaseCtx(c)
	for _, param := range params {
		c.SetParam(param.Key, param.Value)
	}
	e.c = c

	e.to(StateMiddlewareRunning)
	for _, mw := range p.middleware {
		resp, err := mw(ctx, c)
		if err != nil {
			return e.fail(err)
		}
		if resp != nil {
			// Short-circuit: downstream stages are skipped and this
			// response is the recorded one.
			return e.respond(resp)
		}
	}

	e.to(StateCacheCheck)
	if err := ctx.Err(); err != nil {
		return e.fail(err)
	}

	if !e.cacheable() {
		resp, err := e.produce(ctx, nil)
		if err != nil {
			return e.fail(err)
		}
		return e.respond(resp)
	}

	key := route.Policy.Key(req)
	if data, ok := p.cache.Get(ctx, key); ok {
		resp, err := decodeResponse(data)
		if err == nil {
			e.to(StateCacheHit)
			resp.SetHeader(http.HeaderCacheStatus, http.CacheStatusHit)
			return e.respond(resp)
		}
		// An undecodable entry is dropped, not served.
		p.logger.Warn("corrupt cache entry dropped", "path", req.Path, "err", err)
		p.cache.InvalidateKey(ctx, key)
	}

	e.to(StateCacheMiss)
	v, err, shared := p.group.Do(string(key), func() (any, error) {
		return e.produce(ctx, key)
	})
	if err != nil {
		return e.fail(err)
	}
	resp := v.(*http.Response)
	if shared {
		resp = resp.Clone()
	}
	resp.SetHeader(http.HeaderCacheStatus, http.CacheStatusMiss)
	return e.respond(resp)
}

// execution is the per-request view of the state machine. It lives on
// the dispatching goroutine's stack only.
type execution struct {
	p     *Pipeline
	req   *http.Request
	route *router.Route
	c     *http.Ctx
	state State
}

func (e *execution) to(s State) { e.state = s }

// cacheable reports whether the matched route participates in caching:
// it needs a policy, a coordinator, and a safe method.
func (e *execution) cacheable() bool {
	return e.p.cache != nil && e.route.Policy != nil && e.req.Method == "GET"
}

// produce runs Validating and HandlerRunning, then stores a cacheable
// 200 through the coordinator. key is nil for uncacheable requests.
func (e *execution) produce(ctx context.Context, key []byte) (*http.Response, error) {
	if e.route.Schema != nil && e.p.validator != nil {
		e.to(StateValidating)
		if err := e.p.validator.Validate(e.route.Schema, e.c.Body()); err != nil {
			return nil, err
		}
	}

	e.to(StateHandlerRunning)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := e.route.Handler.Handle(ctx, e.c)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errNilResponse
	}

	if key != nil && resp.Status == 200 {
		// The store runs detached from request cancellation: a write
		// already in flight completes to keep tiers consistent, even
		// when the result is no longer deliverable.
		e.p.cache.Set(context.WithoutCancel(ctx), key,
			encodeResponse(resp), e.route.Policy.TTL, e.route.Policy.Tags)
	}
	return resp, nil
}

func (e *execution) respond(resp *http.Response) *http.Response {
	e.to(StateResponding)
	return resp
}

// fail converts the terminal Failed state into a client response per
// the error taxonomy. The originating error is recorded server-side;
// opaque handler failures stay opaque to the client.
func (e *execution) fail(err error) *http.Response {
	e.to(StateFailed)

	switch {
	case errors.Is(err, router.ErrNotFound):
		return errorResponse(404, "not found")

	case errors.Is(err, context.Canceled):
		// Client is gone; the status code is for logs and metrics.
		return errorResponse(499, "client closed request")

	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse(504, "request timed out")
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return validationResponse(ve)
	}

	e.p.logger.Error("request failed",
		"method", e.req.Method, "path", e.req.Path,
		"state", e.state.String(), "err", err)
	return errorResponse(500, "internal server error")
}
