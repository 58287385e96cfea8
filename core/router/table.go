package router

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/searchktools/fast-gateway/core/http"
)

// segment kinds of a parsed pattern.
type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

// segment is one /-delimited element of a route pattern. text holds the
// literal text or the parameter/wildcard name.
type segment struct {
	kind segmentKind
	text string
}

// Route is an immutable registered route. It is created at registration
// time and owned by the Table; resolved routes are shared references.
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
	Policy  *CachePolicy
	Schema  any

	segments   []segment
	paramNames []string
}

// ParamNames returns the parameter names in declaration order.
func (r *Route) ParamNames() []string { return r.paramNames }

// Param is one extracted path parameter.
type Param struct {
	Key   string
	Value string
}

// Params is the ordered parameter list of a match. Order matches the
// declaration order in the pattern.
type Params []Param

// Get returns the value for name, or "" when absent.
func (ps Params) Get(name string) string {
	for _, p := range ps {
		if p.Key == name {
			return p.Value
		}
	}
	return ""
}

// RouteOption configures a route at registration time.
type RouteOption func(*Route)

// WithCachePolicy attaches a per-route cache policy.
func WithCachePolicy(p *CachePolicy) RouteOption {
	return func(r *Route) { r.Policy = p }
}

// WithSchema attaches a request schema checked by the pipeline's
// validator before the handler runs.
func WithSchema(schema any) RouteOption {
	return func(r *Route) { r.Schema = schema }
}

// Table owns the registered routes and the compiled radix trees, one
// tree per method. Registration happens once at startup; after Freeze
// the table is read-only and resolution takes no locks.
type Table struct {
	trees  map[string]*node
	routes []*Route
	frozen atomic.Bool
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{trees: make(map[string]*node, 8)}
}

// Register compiles pattern into the tree for method. It fails with a
// *PatternConflictError when the pattern is invalid or overlaps an
// existing registration for the same method, and with ErrFrozen after
// Freeze.
func (t *Table) Register(method, pattern string, handler http.Handler, opts ...RouteOption) (*Route, error) {
	if t.frozen.Load() {
		return nil, ErrFrozen
	}
	if method == "" {
		return nil, fmt.Errorf("router: empty method for pattern %q", pattern)
	}
	if handler == nil {
		return nil, fmt.Errorf("router: nil handler for %s %q", method, pattern)
	}

	normalized := NormalizePath(pattern)
	segs, err := parsePattern(method, normalized)
	if err != nil {
		return nil, err
	}

	route := &Route{
		Method:   method,
		Pattern:  normalized,
		Handler:  handler,
		segments: segs,
	}
	for _, s := range segs {
		if s.kind != segLiteral {
			route.paramNames = append(route.paramNames, s.text)
		}
	}
	for _, opt := range opts {
		opt(route)
	}

	root := t.trees[method]
	if root == nil {
		root = newNode()
		t.trees[method] = root
	}
	if err := root.insert(route, segs, 0); err != nil {
		return nil, err
	}
	t.routes = append(t.routes, route)
	return route, nil
}

// Freeze marks the table read-only. Serving starts only after Freeze,
// so lookups never race with tree mutation.
func (t *Table) Freeze() {
	t.frozen.Store(true)
}

// Frozen reports whether the table has been frozen.
func (t *Table) Frozen() bool { return t.frozen.Load() }

// Len returns the number of registered routes.
func (t *Table) Len() int { return len(t.routes) }

// Routes returns the registered routes in registration order.
func (t *Table) Routes() []*Route { return t.routes }

// Resolve matches method+path to a route and its extracted parameters.
// It returns ErrNotFound when nothing matches.
func (t *Table) Resolve(method, path string) (*Route, Params, error) {
	root := t.trees[method]
	if root == nil {
		return nil, nil, ErrNotFound
	}
	segs := splitPath(NormalizePath(path))
	route, params := root.search(method, segs, 0, nil)
	if route == nil {
		return nil, nil, ErrNotFound
	}
	return route, params, nil
}

// NormalizePath applies the matcher's normalization policy: trailing
// slashes are always stripped (the root path stays "/"), and paths are
// case-sensitive. A missing leading slash is added.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

// parsePattern splits pattern into segment descriptors, enforcing the
// pattern invariants: parameter and wildcard names are non-empty, a
// wildcard may only terminate a pattern, and at most one wildcard is
// allowed per route.
func parsePattern(method, pattern string) ([]segment, error) {
	raw := splitPath(pattern)
	segs := make([]segment, 0, len(raw))
	for i, s := range raw {
		switch s[0] {
		case ':':
			if len(s) < 2 {
				return nil, &PatternConflictError{
					Method: method, Pattern: pattern,
					Reason: "parameter segment must be named",
				}
			}
			segs = append(segs, segment{kind: segParam, text: s[1:]})
		case '*':
			if len(s) < 2 {
				return nil, &PatternConflictError{
					Method: method, Pattern: pattern,
					Reason: "wildcard segment must be named",
				}
			}
			if i != len(raw)-1 {
				return nil, &PatternConflictError{
					Method: method, Pattern: pattern,
					Reason: "wildcard may only terminate a pattern",
				}
			}
			segs = append(segs, segment{kind: segWildcard, text: s[1:]})
		default:
			if strings.ContainsAny(s, ":*") {
				return nil, &PatternConflictError{
					Method: method, Pattern: pattern,
					Reason: "':' and '*' are only allowed at the start of a segment",
				}
			}
			segs = append(segs, segment{kind: segLiteral, text: s})
		}
	}
	return segs, nil
}
