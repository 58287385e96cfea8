package core

import "errors"

// Request limits enforced at the listener boundary.
const (
	// MaxBodyBytes caps how much of a request body the adapter buffers
	// before handing it to the pipeline.
	MaxBodyBytes = 4 << 20
)

var errBodyTooLarge = errors.New("request body exceeds limit")
