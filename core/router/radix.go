// Package router implements the path matcher and route table of the
// gateway core: patterns are compiled into a per-method radix tree keyed
// on literal segment text, and lookups run in time proportional to the
// number of path segments, not the number of registered routes.
package router

type nodeType uint8

const (
	static   nodeType = iota // literal segment
	param                    // :name segment
	catchAll                 // *name segment, terminal only
)

// node is one tree level. Literal children are indexed by first byte for
// cheap selection; the param and catch-all children are kept separate so
// matching can try them strictly after literals.
type node struct {
	segment   string
	nType     nodeType
	paramName string

	indices    string // first byte of each static child
	children   []*node
	paramChild *node
	catchChild *node

	// route per method at this node. nil means the node is only an
	// interior prefix.
	routes map[string]*Route
}

func newNode() *node {
	return &node{}
}

// insert adds route under the remaining segments. Any ambiguity with an
// already-inserted pattern is reported as a *PatternConflictError.
func (n *node) insert(route *Route, segs []segment, depth int) error {
	if depth == len(segs) {
		if n.routes == nil {
			n.routes = make(map[string]*Route, 1)
		}
		if existing, ok := n.routes[route.Method]; ok {
			return &PatternConflictError{
				Method:   route.Method,
				Pattern:  route.Pattern,
				Existing: existing.Pattern,
				Reason:   "pattern already registered",
			}
		}
		n.routes[route.Method] = route
		return nil
	}

	seg := segs[depth]
	switch seg.kind {
	case segLiteral:
		child := n.staticChild(seg.text)
		if child == nil {
			child = &node{segment: seg.text, nType: static}
			n.indices += string(seg.text[0])
			n.children = append(n.children, child)
		}
		return child.insert(route, segs, depth+1)

	case segParam:
		if n.paramChild != nil && n.paramChild.paramName != seg.text {
			// Two patterns differing only by parameter name at the same
			// position are indistinguishable for every input.
			return &PatternConflictError{
				Method:   route.Method,
				Pattern:  route.Pattern,
				Existing: ":" + n.paramChild.paramName,
				Reason:   "conflicting parameter name at the same position",
			}
		}
		if n.paramChild == nil {
			n.paramChild = &node{nType: param, paramName: seg.text}
		}
		return n.paramChild.insert(route, segs, depth+1)

	default: // segWildcard, validated terminal by parsePattern
		if n.catchChild != nil {
			if _, ok := n.catchChild.routes[route.Method]; ok {
				return &PatternConflictError{
					Method:   route.Method,
					Pattern:  route.Pattern,
					Existing: n.catchChild.routes[route.Method].Pattern,
					Reason:   "two wildcards at the same depth",
				}
			}
			if n.catchChild.paramName != seg.text {
				return &PatternConflictError{
					Method:   route.Method,
					Pattern:  route.Pattern,
					Existing: "*" + n.catchChild.paramName,
					Reason:   "conflicting wildcard name at the same position",
				}
			}
		} else {
			n.catchChild = &node{nType: catchAll, paramName: seg.text}
		}
		if n.catchChild.routes == nil {
			n.catchChild.routes = make(map[string]*Route, 1)
		}
		n.catchChild.routes[route.Method] = route
		return nil
	}
}

func (n *node) staticChild(segment string) *node {
	idxc := segment[0]
	for i := 0; i < len(n.indices); i++ {
		if n.indices[i] == idxc && n.children[i].segment == segment {
			return n.children[i]
		}
	}
	return nil
}

// search resolves path segments to a route for the given method.
// Literal children are tried first, then the param child, then the
// catch-all, backtracking between branch kinds so that specificity wins
// deterministically: /users/admin beats /users/:id beats /users/*rest.
func (n *node) search(method string, segs []string, depth int, params Params) (*Route, Params) {
	if depth == len(segs) {
		if route := n.routes[method]; route != nil {
			return route, params
		}
		// A terminal catch-all does not match the empty remainder;
		// fall through to report no match at this branch.
		return nil, nil
	}

	seg := segs[depth]

	if child := n.staticChild(seg); child != nil {
		if route, p := child.search(method, segs, depth+1, params); route != nil {
			return route, p
		}
	}

	if n.paramChild != nil {
		p := append(params, Param{Key: n.paramChild.paramName, Value: seg})
		if route, p2 := n.paramChild.search(method, segs, depth+1, p); route != nil {
			return route, p2
		}
	}

	if n.catchChild != nil {
		if route := n.catchChild.routes[method]; route != nil {
			rest := joinSegments(segs[depth:])
			return route, append(params, Param{Key: n.catchChild.paramName, Value: rest})
		}
	}

	return nil, nil
}

func joinSegments(segs []string) string {
	if len(segs) == 1 {
		return segs[0]
	}
	size := len(segs) - 1
	for _, s := range segs {
		size += len(s)
	}
	buf := make([]byte, 0, size)
	for i, s := range segs {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = append(buf, s...)
	}
	return string(buf)
}

// splitPath splits a normalized path into its segments. The root path
// yields zero segments.
func splitPath(path string) []string {
	if path == "" || path == "/" {
		return nil
	}
	n := 1
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			n++
		}
	}
	segs := make([]string, 0, n)
	start := 1
	for i := 1; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
