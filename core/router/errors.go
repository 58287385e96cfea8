package router

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Resolve when no registered route matches.
// The dispatch pipeline surfaces it as a 404.
var ErrNotFound = errors.New("router: no matching route")

// ErrFrozen is returned when Register is called after Freeze. The table
// is built once at startup and read-only while serving.
var ErrFrozen = errors.New("router: table is frozen")

// PatternConflictError reports that a pattern is indistinguishable from,
// or overlaps, an already-registered pattern for the same method.
// Registration conflicts are fatal at startup.
type PatternConflictError struct {
	Method   string
	Pattern  string
	Existing string
	Reason   string
}

func (e *PatternConflictError) Error() string {
	return fmt.Sprintf("router: pattern conflict: %s %q vs %q: %s",
		e.Method, e.Pattern, e.Existing, e.Reason)
}

// IsPatternConflict reports whether err is a pattern conflict.
func IsPatternConflict(err error) bool {
	var pc *PatternConflictError
	return errors.As(err, &pc)
}
