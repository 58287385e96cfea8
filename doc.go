/*
Package fastgateway provides a request-routing and multi-layer caching
gateway for Go services.

Requests are matched by a radix-tree router with static, parameterized
and wildcard segments, then flow through an ordered middleware chain, a
tiered cache lookup and, on a miss, schema validation and the route's
handler. Successful cacheable responses are written back through the
tier chain: synchronously into the in-process memory tier,
asynchronously into shared remote tiers.

Quick Start

	package main

	import (
	    "context"
	    "log"
	    "time"

	    "github.com/searchktools/fast-gateway/app"
	    "github.com/searchktools/fast-gateway/config"
	    "github.com/searchktools/fast-gateway/core/http"
	    "github.com/searchktools/fast-gateway/core/router"
	)

	func main() {
	    application, err := app.New(config.Default())
	    if err != nil {
	        log.Fatal(err)
	    }

	    gw := application.Gateway()
	    gw.GET("/users/:id", http.HandlerFunc(
	        func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
	            return c.JSON(200, map[string]string{"id": c.Param("id")}), nil
	        }),
	        router.WithCachePolicy(&router.CachePolicy{
	            TTL:  30 * time.Second,
	            Tags: []string{"users"},
	        }),
	    )

	    log.Fatal(application.Run())
	}

Modules

The repository is organized into several packages:

  - app: application assembly and lifecycle
  - config: JSON + environment configuration
  - core: the Gateway façade and net/http adapter
  - core/http: request/response messages and the pooled handler context
  - core/router: radix-tree path matching and the route table
  - core/cache: cache tiers, the coordinator and tag invalidation
  - core/pipeline: the per-request dispatch state machine and middleware
  - core/pools: worker and buffer pools
  - core/metrics: Prometheus collectors
  - core/http2: the h2c/h2 listener boundary

For more information, see https://github.com/searchktools/fast-gateway
*/
package fastgateway
