package cache

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"time"

	"golang.org/x/net/http2"
)

// DefaultEntryPath is the URL prefix of the tier protocol.
const DefaultEntryPath = "/v1/entries/"

// RemoteTier is a client for a tier hosted in another process, the
// slower shared layer of the chain. Entries travel hex-keyed under
// DefaultEntryPath with protowire bodies; transport failures map to
// ErrTierUnavailable so the coordinator degrades instead of failing
// the request.
type RemoteTier struct {
	name    string
	baseURL string
	client  *nethttp.Client
}

// RemoteOption configures a RemoteTier.
type RemoteOption func(*RemoteTier)

// WithHTTPClient overrides the default h2c client, e.g. for tests or
// TLS deployments.
func WithHTTPClient(c *nethttp.Client) RemoteOption {
	return func(t *RemoteTier) { t.client = c }
}

// NewRemoteTier creates a client tier for the server at baseURL
// (scheme and authority, no trailing slash). The default transport
// speaks HTTP/2 cleartext so many gateway instances can multiplex onto
// one shared-tier connection.
func NewRemoteTier(name, baseURL string, opts ...RemoteOption) *RemoteTier {
	t := &RemoteTier{
		name:    name,
		baseURL: baseURL,
		client: &nethttp.Client{
			Timeout: 5 * time.Second,
			Transport: &http2.Transport{
				AllowHTTP: true,
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, network, addr)
				},
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements Tier.
func (t *RemoteTier) Name() string { return t.name }

func (t *RemoteTier) entryURL(key []byte) string {
	return t.baseURL + DefaultEntryPath + hex.EncodeToString(key)
}

// Get implements Tier. The remote side never returns expired entries,
// but clock skew makes that a best effort; the caller re-checks TTL.
func (t *RemoteTier) Get(ctx context.Context, key []byte) (*Entry, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, t.entryURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("cache: %s: build request: %w", t.name, err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cache: %s: %v: %w", t.name, err, ErrTierUnavailable)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case nethttp.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("cache: %s: read body: %v: %w", t.name, err, ErrTierUnavailable)
		}
		return UnmarshalEntry(body)
	case nethttp.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("cache: %s: unexpected status %d: %w", t.name, resp.StatusCode, ErrTierUnavailable)
	}
}

// Set implements Tier.
func (t *RemoteTier) Set(ctx context.Context, e *Entry) error {
	body := MarshalEntry(e)
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPut, t.entryURL(e.Key), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cache: %s: build request: %w", t.name, err)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("cache: %s: %v: %w", t.name, err, ErrTierUnavailable)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != nethttp.StatusNoContent {
		return fmt.Errorf("cache: %s: unexpected status %d: %w", t.name, resp.StatusCode, ErrTierUnavailable)
	}
	return nil
}

// Delete implements Tier.
func (t *RemoteTier) Delete(ctx context.Context, key []byte) (bool, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodDelete, t.entryURL(key), nil)
	if err != nil {
		return false, fmt.Errorf("cache: %s: build request: %w", t.name, err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("cache: %s: %v: %w", t.name, err, ErrTierUnavailable)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case nethttp.StatusNoContent:
		return true, nil
	case nethttp.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("cache: %s: unexpected status %d: %w", t.name, resp.StatusCode, ErrTierUnavailable)
	}
}

// Len implements Tier. The protocol does not expose a count; the
// coordinator only uses Len for local introspection.
func (t *RemoteTier) Len() int { return 0 }
