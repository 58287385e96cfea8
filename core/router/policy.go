package router

import (
	"time"

	"github.com/searchktools/fast-gateway/core/http"
)

// CachePolicy controls response caching for a single route. A route
// without a policy is never cached.
type CachePolicy struct {
	// TTL for cached responses. Zero falls back to the coordinator's
	// default TTL.
	TTL time.Duration

	// Tags attached to every entry stored under this policy, enabling
	// bulk invalidation.
	Tags []string

	// VaryHeaders are request headers whose values participate in the
	// cache key, in the order listed here.
	VaryHeaders []string
}

// Key derives the deterministic cache key for req: method, normalized
// path and the declared vary header values, NUL-separated. Keys are
// opaque bytes to the cache layer.
func (p *CachePolicy) Key(req *http.Request) []byte {
	size := len(req.Method) + len(req.Path) + 2
	for _, h := range p.VaryHeaders {
		size += len(h) + len(req.Header(h)) + 2
	}
	key := make([]byte, 0, size)
	key = append(key, req.Method...)
	key = append(key, 0)
	key = append(key, NormalizePath(req.Path)...)
	for _, h := range p.VaryHeaders {
		key = append(key, 0)
		key = append(key, h...)
		key = append(key, 0)
		key = append(key, req.Header(h)...)
	}
	return key
}
