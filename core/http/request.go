package http

import "context"

// Request is the inbound message delivered by the listener boundary.
// Headers are single-valued; the listener adapter keeps the first value
// of repeated headers.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// Header returns the value of a header, or "" when absent.
func (r *Request) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[key]
}

// Response is the outbound message handed back to the listener boundary.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Header returns the value of a response header, or "" when absent.
func (r *Response) Header(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[key]
}

// SetHeader sets a response header, allocating the map on first use.
func (r *Response) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string, 4)
	}
	r.Headers[key] = value
}

// Clone returns a deep copy of the response. The dispatch pipeline hands
// shared (deduplicated) responses to concurrent callers as clones so no
// caller can observe another caller's mutations.
func (r *Response) Clone() *Response {
	c := &Response{Status: r.Status}
	if r.Headers != nil {
		c.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			c.Headers[k] = v
		}
	}
	if r.Body != nil {
		c.Body = make([]byte, len(r.Body))
		copy(c.Body, r.Body)
	}
	return c
}

// Handler is the application-side capability invoked once routing,
// middleware and the cache lookup are done. Handlers are known at route
// registration time; no dynamic dispatch beyond this single method.
type Handler interface {
	Handle(ctx context.Context, c *Ctx) (*Response, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, c *Ctx) (*Response, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, c *Ctx) (*Response, error) {
	return f(ctx, c)
}
