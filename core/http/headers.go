package http

// Common header names used for cache key derivation and responses.
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderAccept        = "Accept"
	HeaderAcceptEnc     = "Accept-Encoding"
	HeaderAuthorization = "Authorization"
	HeaderCacheStatus   = "X-Cache"
	HeaderRequestID     = "X-Request-ID"
)

// Content types.
const (
	MIMETextPlain       = "text/plain; charset=utf-8"
	MIMEApplicationJSON = "application/json"
	MIMEOctetStream     = "application/octet-stream"
)

// Cache status values reported in the X-Cache response header.
const (
	CacheStatusHit  = "HIT"
	CacheStatusMiss = "MISS"
)
