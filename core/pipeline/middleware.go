package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/searchktools/fast-gateway/core/http"
)

// Built-in middleware stages. All of them follow the chain contract:
// nil response to continue, non-nil to short-circuit.

var requestIDCounter atomic.Uint64

// RequestID assigns an identifier to requests that arrive without one,
// so every log line and trace for a request can be correlated.
func RequestID() Middleware {
	return func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
		if c.Header(http.HeaderRequestID) == "" {
			id := requestIDCounter.Add(1)
			req := c.Request()
			if req.Headers == nil {
				req.Headers = make(map[string]string, 4)
			}
			req.Headers[http.HeaderRequestID] = strconv.FormatUint(id, 36) +
				"-" + strconv.FormatInt(time.Now().UnixNano()&0xFFFFFF, 36)
		}
		return nil, nil
	}
}

// AccessLog logs one line per request as it enters the chain.
func AccessLog(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Header(http.HeaderRequestID))
		return nil, nil
	}
}

// tokenBucket refills lazily on each take, up to its burst capacity.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	rate   float64 // tokens per second
	last   time.Time
}

func (b *tokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimit rejects requests beyond rps requests per second with a 429
// short-circuit. Bursts up to 2x the rate are absorbed.
func RateLimit(rps int) Middleware {
	bucket := &tokenBucket{
		tokens: float64(rps),
		burst:  float64(rps) * 2,
		rate:   float64(rps),
		last:   time.Now(),
	}
	return func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
		if !bucket.take() {
			resp := errorResponse(429, "rate limit exceeded")
			resp.SetHeader("Retry-After", "1")
			return resp, nil
		}
		return nil, nil
	}
}
