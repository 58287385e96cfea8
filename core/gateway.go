// Package core assembles the gateway: the route table, the tiered
// cache and the dispatch pipeline behind one façade, plus a net/http
// adapter so any listener can serve it.
package core

import (
	"io"
	"log/slog"
	nethttp "net/http"

	"github.com/searchktools/fast-gateway/core/cache"
	"github.com/searchktools/fast-gateway/core/http"
	"github.com/searchktools/fast-gateway/core/metrics"
	"github.com/searchktools/fast-gateway/core/pipeline"
	"github.com/searchktools/fast-gateway/core/pools"
	"github.com/searchktools/fast-gateway/core/router"
)

// GatewayConfig wires a Gateway. Every field is optional except none:
// a zero config yields an uncached gateway with discarded logs.
type GatewayConfig struct {
	Cache     *cache.Coordinator
	Validator pipeline.Validator
	Metrics   *metrics.Collector
	Logger    *slog.Logger

	PipelineOptions []pipeline.Option
}

// Gateway owns the registration surface and the request path. Routes
// are registered at startup, Freeze is called once, then ServeHTTP (or
// Dispatch directly) handles traffic.
type Gateway struct {
	table    *router.Table
	cache    *cache.Coordinator
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	bodies   *pools.BytePool
}

// NewGateway creates a gateway around cfg.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	table := router.NewTable()
	return &Gateway{
		table: table,
		cache: cfg.Cache,
		pipeline: pipeline.New(pipeline.Config{
			Table:     table,
			Cache:     cfg.Cache,
			Validator: cfg.Validator,
			Metrics:   cfg.Metrics,
			Logger:    cfg.Logger,
		}, cfg.PipelineOptions...),
		logger: cfg.Logger,
		bodies: pools.NewBytePool(),
	}
}

// Handle registers a route. Registration fails on pattern conflicts
// and after Freeze.
func (g *Gateway) Handle(method, pattern string, h http.Handler, opts ...router.RouteOption) error {
	_, err := g.table.Register(method, pattern, h, opts...)
	return err
}

// GET registers a GET route.
func (g *Gateway) GET(pattern string, h http.Handler, opts ...router.RouteOption) error {
	return g.Handle("GET", pattern, h, opts...)
}

// POST registers a POST route.
func (g *Gateway) POST(pattern string, h http.Handler, opts ...router.RouteOption) error {
	return g.Handle("POST", pattern, h, opts...)
}

// PUT registers a PUT route.
func (g *Gateway) PUT(pattern string, h http.Handler, opts ...router.RouteOption) error {
	return g.Handle("PUT", pattern, h, opts...)
}

// DELETE registers a DELETE route.
func (g *Gateway) DELETE(pattern string, h http.Handler, opts ...router.RouteOption) error {
	return g.Handle("DELETE", pattern, h, opts...)
}

// PATCH registers a PATCH route.
func (g *Gateway) PATCH(pattern string, h http.Handler, opts ...router.RouteOption) error {
	return g.Handle("PATCH", pattern, h, opts...)
}

// HEAD registers a HEAD route.
func (g *Gateway) HEAD(pattern string, h http.Handler, opts ...router.RouteOption) error {
	return g.Handle("HEAD", pattern, h, opts...)
}

// OPTIONS registers an OPTIONS route.
func (g *Gateway) OPTIONS(pattern string, h http.Handler, opts ...router.RouteOption) error {
	return g.Handle("OPTIONS", pattern, h, opts...)
}

// Use appends middleware stages to the pipeline chain.
func (g *Gateway) Use(mw ...pipeline.Middleware) {
	g.pipeline.Use(mw...)
}

// Freeze locks the route table. Serve only after Freeze; lookups then
// run lock-free against an immutable tree.
func (g *Gateway) Freeze() {
	g.table.Freeze()
}

// Table exposes the route table, mainly for introspection.
func (g *Gateway) Table() *router.Table { return g.table }

// Cache exposes the tier coordinator so operators can invalidate
// entries out of band.
func (g *Gateway) Cache() *cache.Coordinator { return g.cache }

// Pipeline exposes the dispatch pipeline.
func (g *Gateway) Pipeline() *pipeline.Pipeline { return g.pipeline }

// ServeHTTP adapts a net/http request into the internal message shape,
// dispatches it, and writes the result back. Repeated header values
// collapse to the first one.
func (g *Gateway) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	req := &http.Request{
		Method: r.Method,
		Path:   r.URL.Path,
	}
	if len(r.Header) > 0 {
		req.Headers = make(map[string]string, len(r.Header))
		for k, vs := range r.Header {
			if len(vs) > 0 {
				req.Headers[k] = vs[0]
			}
		}
	}

	if r.Body != nil && r.ContentLength != 0 {
		buf := g.bodies.Get(int(max(r.ContentLength, 512)))
		body, err := readBody(r.Body, buf, MaxBodyBytes)
		if err != nil {
			g.bodies.Put(buf)
			status := nethttp.StatusBadRequest
			if err == errBodyTooLarge {
				status = nethttp.StatusRequestEntityTooLarge
			}
			nethttp.Error(w, err.Error(), status)
			return
		}
		defer g.bodies.Put(buf)
		req.Body = body
	}

	resp := g.pipeline.Dispatch(r.Context(), req)

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 && r.Method != "HEAD" {
		w.Write(resp.Body)
	}
}

// readBody reads at most limit bytes into buf, growing it as needed.
// The returned slice aliases buf's backing array when it fit.
func readBody(r io.Reader, buf []byte, limit int64) ([]byte, error) {
	buf = buf[:0]
	tmp := make([]byte, 4096)
	for {
		n, err := r.Read(tmp)
		if n > 0 {
			if int64(len(buf)+n) > limit {
				return nil, errBodyTooLarge
			}
			buf = append(buf, tmp[:n]...)
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
