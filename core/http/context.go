package http

import (
	"encoding/json"
	"sync"
)

// Ctx is the per-request context handed to handlers. It carries the
// request and the path parameters extracted by the router. A Ctx is
// private to one request and is returned to the pool after dispatch.
type Ctx struct {
	// Inline storage for the common case (<= 4 path parameters).
	paramKeys   [4]string
	paramValues [4]string
	paramCount  int

	// Overflow for routes with more than 4 parameters. Parallel slices
	// keep declaration order, which a map would lose.
	overflowKeys   []string
	overflowValues []string

	request *Request
}

var ctxPool = sync.Pool{
	New: func() any {
		return &Ctx{}
	},
}

// AcquireCtx returns a pooled context bound to req.
func AcquireCtx(req *Request) *Ctx {
	c := ctxPool.Get().(*Ctx)
	c.request = req
	return c
}

// ReleaseCtx resets c and returns it to the pool.
func ReleaseCtx(c *Ctx) {
	c.request = nil
	c.paramCount = 0
	c.overflowKeys = c.overflowKeys[:0]
	c.overflowValues = c.overflowValues[:0]
	ctxPool.Put(c)
}

// Request returns the underlying request.
func (c *Ctx) Request() *Request { return c.request }

// Method returns the request method.
func (c *Ctx) Method() string { return c.request.Method }

// Path returns the request path.
func (c *Ctx) Path() string { return c.request.Path }

// Header returns a request header value.
func (c *Ctx) Header(key string) string { return c.request.Header(key) }

// Body returns the raw request body.
func (c *Ctx) Body() []byte { return c.request.Body }

// SetParam records a path parameter. Parameters are kept in insertion
// order, which matches declaration order in the route pattern.
func (c *Ctx) SetParam(key, value string) {
	if c.paramCount < len(c.paramKeys) {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
		return
	}
	c.overflowKeys = append(c.overflowKeys, key)
	c.overflowValues = append(c.overflowValues, value)
}

// Param returns the value of a path parameter, or "" when absent.
func (c *Ctx) Param(key string) string {
	for i := 0; i < c.paramCount; i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	for i, k := range c.overflowKeys {
		if k == key {
			return c.overflowValues[i]
		}
	}
	return ""
}

// ParamCount returns the number of extracted path parameters.
func (c *Ctx) ParamCount() int {
	return c.paramCount + len(c.overflowKeys)
}

// String builds a text/plain response.
func (c *Ctx) String(code int, s string) *Response {
	resp := &Response{Status: code, Body: []byte(s)}
	resp.SetHeader(HeaderContentType, MIMETextPlain)
	return resp
}

// Bytes builds a response with an explicit content type.
func (c *Ctx) Bytes(code int, contentType string, data []byte) *Response {
	resp := &Response{Status: code, Body: data}
	resp.SetHeader(HeaderContentType, contentType)
	return resp
}

// JSON builds an application/json response. Marshal failures degrade to
// a 500 so a handler never has to check the error itself.
func (c *Ctx) JSON(code int, v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		return c.Error(500, "response encoding failed")
	}
	resp := &Response{Status: code, Body: data}
	resp.SetHeader(HeaderContentType, MIMEApplicationJSON)
	return resp
}

// NoContent builds an empty response.
func (c *Ctx) NoContent(code int) *Response {
	return &Response{Status: code}
}

// Error builds a JSON error response with a single message field.
func (c *Ctx) Error(code int, message string) *Response {
	return c.JSON(code, map[string]string{"error": message})
}
