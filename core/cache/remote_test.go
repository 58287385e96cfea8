package cache

import (
	"bytes"
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newRemotePair(t *testing.T) (*RemoteTier, *MemoryTier) {
	t.Helper()
	backing := NewMemoryTier("backing", 4, 1024)
	srv := httptest.NewServer(NewTierServer(backing, nil))
	t.Cleanup(srv.Close)
	// The test server speaks HTTP/1.1; production uses the h2c default.
	tier := NewRemoteTier("shared", srv.URL, WithHTTPClient(srv.Client()))
	return tier, backing
}

func TestRemoteTierRoundTrip(t *testing.T) {
	tier, backing := newRemotePair(t)
	ctx := context.Background()

	e := &Entry{
		Key:       []byte("remote-key"),
		Value:     []byte("remote-value"),
		CreatedAt: time.Now(),
		TTL:       time.Minute,
		Tags:      []string{"users"},
	}
	if err := tier.Set(ctx, e); err != nil {
		t.Fatal(err)
	}
	if backing.Len() != 1 {
		t.Fatalf("backing Len = %d, want 1", backing.Len())
	}

	got, err := tier.Get(ctx, []byte("remote-key"))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !bytes.Equal(got.Value, e.Value) {
		t.Fatalf("Get = %v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "users" {
		t.Errorf("tags lost in transit: %v", got.Tags)
	}

	if got, err := tier.Get(ctx, []byte("absent")); err != nil || got != nil {
		t.Errorf("Get(absent) = %v, %v; want miss", got, err)
	}

	removed, err := tier.Delete(ctx, []byte("remote-key"))
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	removed, err = tier.Delete(ctx, []byte("remote-key"))
	if err != nil || removed {
		t.Fatalf("second Delete = %v, %v", removed, err)
	}
}

func TestRemoteTierServerHidesExpiredEntries(t *testing.T) {
	tier, backing := newRemotePair(t)
	ctx := context.Background()

	backing.Set(ctx, &Entry{
		Key:       []byte("stale"),
		Value:     []byte("v"),
		CreatedAt: time.Now().Add(-time.Hour),
		TTL:       time.Minute,
	})

	if got, err := tier.Get(ctx, []byte("stale")); err != nil || got != nil {
		t.Errorf("expired entry served: %v, %v", got, err)
	}
}

func TestRemoteTierUnavailable(t *testing.T) {
	srv := httptest.NewServer(nethttp.NotFoundHandler())
	base := srv.URL
	srv.Close() // connection refused from here on

	tier := NewRemoteTier("shared", base, WithHTTPClient(&nethttp.Client{Timeout: time.Second}))
	ctx := context.Background()

	if _, err := tier.Get(ctx, []byte("k")); !errors.Is(err, ErrTierUnavailable) {
		t.Errorf("Get err = %v, want ErrTierUnavailable", err)
	}
	err := tier.Set(ctx, &Entry{Key: []byte("k"), Value: []byte("v"), CreatedAt: time.Now()})
	if !errors.Is(err, ErrTierUnavailable) {
		t.Errorf("Set err = %v, want ErrTierUnavailable", err)
	}
	if _, err := tier.Delete(ctx, []byte("k")); !errors.Is(err, ErrTierUnavailable) {
		t.Errorf("Delete err = %v, want ErrTierUnavailable", err)
	}
}

func TestTierServerRejectsMalformedRequests(t *testing.T) {
	backing := NewMemoryTier("backing", 1, 16)
	srv := httptest.NewServer(NewTierServer(backing, nil))
	defer srv.Close()

	// Non-hex key.
	resp, err := srv.Client().Get(srv.URL + DefaultEntryPath + "zz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("non-hex key: status %d, want 400", resp.StatusCode)
	}

	// Garbage body.
	req, _ := nethttp.NewRequest(nethttp.MethodPut, srv.URL+DefaultEntryPath+"ab", bytes.NewReader([]byte{0xFF, 0xFF}))
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("garbage body: status %d, want 400", resp.StatusCode)
	}
}

// The declared Content-Length is client-controlled; an oversized entry
// is rejected before any buffer is sized from it.
func TestTierServerRejectsOversizedEntries(t *testing.T) {
	backing := NewMemoryTier("backing", 1, 16)
	srv := httptest.NewServer(NewTierServer(backing, nil))
	defer srv.Close()

	big := bytes.NewReader(make([]byte, maxEntryBytes+1))
	req, _ := nethttp.NewRequest(nethttp.MethodPut, srv.URL+DefaultEntryPath+"ab", big)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusRequestEntityTooLarge {
		t.Errorf("oversized entry: status %d, want 413", resp.StatusCode)
	}
	if backing.Len() != 0 {
		t.Error("oversized entry was stored")
	}
}
