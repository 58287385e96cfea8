package core

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/searchktools/fast-gateway/core/cache"
	"github.com/searchktools/fast-gateway/core/http"
	"github.com/searchktools/fast-gateway/core/router"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	coord, err := cache.NewCoordinator(cache.CoordinatorConfig{
		Tiers:        []cache.TierConfig{{Tier: cache.NewMemoryTier("memory", 4, 128)}},
		DefaultTTL:   time.Minute,
		AsyncWriters: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(coord.Close)
	return NewGateway(GatewayConfig{Cache: coord})
}

func TestGatewayServeHTTP(t *testing.T) {
	g := newTestGateway(t)
	g.GET("/users/:id", http.HandlerFunc(
		func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
			return c.JSON(200, map[string]string{"id": c.Param("id")}), nil
		}),
		router.WithCachePolicy(&router.CachePolicy{TTL: time.Minute}),
	)
	g.POST("/users", http.HandlerFunc(
		func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
			return c.Bytes(201, http.MIMEApplicationJSON, c.Body()), nil
		}))
	g.Freeze()
	srv := httptest.NewServer(g)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/users/42")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || !strings.Contains(string(body), `"id":"42"`) {
		t.Fatalf("GET: %d %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get(http.HeaderCacheStatus); got != http.CacheStatusMiss {
		t.Errorf("first read: %s = %q, want MISS", http.HeaderCacheStatus, got)
	}

	resp, err = srv.Client().Get(srv.URL + "/users/42")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(http.HeaderCacheStatus); got != http.CacheStatusHit {
		t.Errorf("second read: %s = %q, want HIT", http.HeaderCacheStatus, got)
	}

	resp, err = srv.Client().Post(srv.URL+"/users", "application/json",
		strings.NewReader(`{"name":"ada"}`))
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 201 || string(body) != `{"name":"ada"}` {
		t.Fatalf("POST: %d %s", resp.StatusCode, body)
	}

	resp, err = srv.Client().Get(srv.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("unknown path: %d, want 404", resp.StatusCode)
	}
}

func TestGatewayRegistrationConflict(t *testing.T) {
	g := newTestGateway(t)
	h := http.HandlerFunc(func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
		return c.NoContent(204), nil
	})

	if err := g.GET("/a/:x", h); err != nil {
		t.Fatal(err)
	}
	if err := g.GET("/a/:y", h); !router.IsPatternConflict(err) {
		t.Errorf("conflicting registration err = %v", err)
	}

	g.Freeze()
	if err := g.GET("/late", h); err != router.ErrFrozen {
		t.Errorf("post-freeze registration err = %v, want ErrFrozen", err)
	}
}

func TestGatewayBodyLimit(t *testing.T) {
	g := newTestGateway(t)
	g.POST("/x", http.HandlerFunc(
		func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
			return c.NoContent(204), nil
		}))
	g.Freeze()
	srv := httptest.NewServer(g)
	defer srv.Close()

	huge := strings.NewReader(strings.Repeat("a", MaxBodyBytes+1))
	resp, err := srv.Client().Post(srv.URL+"/x", "text/plain", huge)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: %d, want 413", resp.StatusCode)
	}
}

func TestGatewayStats(t *testing.T) {
	g := newTestGateway(t)
	g.GET("/a", http.HandlerFunc(
		func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
			return c.NoContent(204), nil
		}))
	g.Freeze()

	s := g.GetStats()
	if s.Routes != 1 || !s.Frozen {
		t.Errorf("stats = %+v", s)
	}
	if len(s.Tiers) != 1 || s.Tiers[0].Name != "memory" {
		t.Errorf("tiers = %+v", s.Tiers)
	}
}
