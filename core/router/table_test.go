package router

import (
	"errors"
	"testing"
	"time"

	"github.com/searchktools/fast-gateway/core/http"
)

func TestRegisterConflicts(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
	}{
		{"duplicate pattern", []string{"/users", "/users"}},
		{"duplicate with trailing slash", []string{"/users", "/users/"}},
		{"param name mismatch", []string{"/users/:id", "/users/:name"}},
		{"param name mismatch deep", []string{"/a/:x/b", "/a/:y/c"}},
		{"two wildcards at same depth", []string{"/files/*path", "/files/*rest"}},
		{"duplicate wildcard", []string{"/files/*path", "/files/*path"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable()
			var err error
			for _, p := range tt.patterns {
				_, err = table.Register("GET", p, noopHandler())
			}
			if !IsPatternConflict(err) {
				t.Errorf("want PatternConflictError, got %v", err)
			}
		})
	}
}

func TestRegisterInvalidPatterns(t *testing.T) {
	tests := []string{
		"/files/*path/more", // wildcard not terminal
		"/users/:",          // unnamed param
		"/files/*",          // unnamed wildcard
		"/a/b:id",           // ':' mid-segment
	}
	for _, pattern := range tests {
		table := NewTable()
		if _, err := table.Register("GET", pattern, noopHandler()); err == nil {
			t.Errorf("Register(%q): want error, got nil", pattern)
		}
	}
}

func TestRegisterSameParamNameTwiceIsCompatible(t *testing.T) {
	table := NewTable()
	mustRegister(t, table, "GET", "/users/:id")
	mustRegister(t, table, "GET", "/users/:id/posts")
	mustRegister(t, table, "POST", "/users/:id") // distinct method, no overlap

	route, params, err := table.Resolve("GET", "/users/7/posts")
	if err != nil {
		t.Fatal(err)
	}
	if route.Pattern != "/users/:id/posts" {
		t.Errorf("got %q", route.Pattern)
	}
	if params.Get("id") != "7" {
		t.Errorf("id=%q", params.Get("id"))
	}
}

func TestFreeze(t *testing.T) {
	table := NewTable()
	mustRegister(t, table, "GET", "/a")
	table.Freeze()

	if _, err := table.Register("GET", "/b", noopHandler()); !errors.Is(err, ErrFrozen) {
		t.Errorf("Register after Freeze: err=%v, want ErrFrozen", err)
	}
	if _, _, err := table.Resolve("GET", "/a"); err != nil {
		t.Errorf("Resolve after Freeze: %v", err)
	}
}

func TestRouteOptions(t *testing.T) {
	table := NewTable()
	policy := &CachePolicy{TTL: time.Minute, Tags: []string{"users"}}
	route, err := table.Register("GET", "/users/:id", noopHandler(),
		WithCachePolicy(policy), WithSchema("user-schema"))
	if err != nil {
		t.Fatal(err)
	}
	if route.Policy != policy {
		t.Error("policy not attached")
	}
	if route.Schema != "user-schema" {
		t.Error("schema not attached")
	}
	if got := route.ParamNames(); len(got) != 1 || got[0] != "id" {
		t.Errorf("ParamNames() = %v", got)
	}
}

func TestCachePolicyKey(t *testing.T) {
	policy := &CachePolicy{VaryHeaders: []string{http.HeaderAccept}}

	req := func(path, accept string) *http.Request {
		return &http.Request{
			Method:  "GET",
			Path:    path,
			Headers: map[string]string{http.HeaderAccept: accept},
		}
	}

	k1 := policy.Key(req("/users/1", "application/json"))
	k2 := policy.Key(req("/users/1", "application/json"))
	if string(k1) != string(k2) {
		t.Error("key derivation is not deterministic")
	}

	if string(k1) == string(policy.Key(req("/users/2", "application/json"))) {
		t.Error("different paths must derive different keys")
	}
	if string(k1) == string(policy.Key(req("/users/1", "text/plain"))) {
		t.Error("different vary header values must derive different keys")
	}

	// Trailing slash normalization applies to key derivation too.
	if string(k1) != string(policy.Key(req("/users/1/", "application/json"))) {
		t.Error("normalized paths must derive identical keys")
	}
}
