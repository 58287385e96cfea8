package cache

import (
	"encoding/hex"
	"io"
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/searchktools/fast-gateway/core/pools"
)

// maxEntryBytes caps an encoded entry accepted over the wire. The
// declared Content-Length is untrusted; it must never size an
// allocation on its own.
const maxEntryBytes = 4 << 20

// TierServer exposes any Tier over the tier protocol, so a plain
// memory tier in one process can serve as the shared tier of many
// gateway instances. Mount it at DefaultEntryPath.
type TierServer struct {
	tier   Tier
	bufs   *pools.BytePool
	logger *slog.Logger
}

// NewTierServer wraps tier in an http.Handler. A nil logger discards
// server-side logs.
func NewTierServer(tier Tier, logger *slog.Logger) *TierServer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	return &TierServer{
		tier:   tier,
		bufs:   pools.NewBytePool(),
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (s *TierServer) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !strings.HasPrefix(r.URL.Path, DefaultEntryPath) {
		nethttp.NotFound(w, r)
		return
	}
	key, err := hex.DecodeString(r.URL.Path[len(DefaultEntryPath):])
	if err != nil || len(key) == 0 {
		nethttp.Error(w, "malformed entry key", nethttp.StatusBadRequest)
		return
	}

	switch r.Method {
	case nethttp.MethodGet:
		s.handleGet(w, r, key)
	case nethttp.MethodPut:
		s.handlePut(w, r)
	case nethttp.MethodDelete:
		s.handleDelete(w, r, key)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
	}
}

func (s *TierServer) handleGet(w nethttp.ResponseWriter, r *nethttp.Request, key []byte) {
	e, err := s.tier.Get(r.Context(), key)
	if err != nil {
		s.logger.Warn("tier get failed", "tier", s.tier.Name(), "err", err)
		nethttp.Error(w, "tier error", nethttp.StatusBadGateway)
		return
	}
	if e == nil || e.Expired(time.Now()) {
		nethttp.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Write(MarshalEntry(e))
}

func (s *TierServer) handlePut(w nethttp.ResponseWriter, r *nethttp.Request) {
	var body []byte
	if n := r.ContentLength; n > 0 {
		if n > maxEntryBytes {
			nethttp.Error(w, "entry too large", nethttp.StatusRequestEntityTooLarge)
			return
		}
		buf := s.bufs.Get(int(n))
		defer s.bufs.Put(buf)
		if _, err := io.ReadFull(r.Body, buf); err != nil {
			nethttp.Error(w, "short body", nethttp.StatusBadRequest)
			return
		}
		body = buf
	} else {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxEntryBytes+1))
		if err != nil {
			nethttp.Error(w, "bad body", nethttp.StatusBadRequest)
			return
		}
		if len(body) > maxEntryBytes {
			nethttp.Error(w, "entry too large", nethttp.StatusRequestEntityTooLarge)
			return
		}
	}

	e, err := UnmarshalEntry(body)
	if err != nil {
		nethttp.Error(w, "malformed entry", nethttp.StatusBadRequest)
		return
	}
	if err := s.tier.Set(r.Context(), e); err != nil {
		s.logger.Warn("tier set failed", "tier", s.tier.Name(), "err", err)
		nethttp.Error(w, "tier error", nethttp.StatusBadGateway)
		return
	}
	w.WriteHeader(nethttp.StatusNoContent)
}

func (s *TierServer) handleDelete(w nethttp.ResponseWriter, r *nethttp.Request, key []byte) {
	removed, err := s.tier.Delete(r.Context(), key)
	if err != nil {
		s.logger.Warn("tier delete failed", "tier", s.tier.Name(), "err", err)
		nethttp.Error(w, "tier error", nethttp.StatusBadGateway)
		return
	}
	if !removed {
		nethttp.NotFound(w, r)
		return
	}
	w.WriteHeader(nethttp.StatusNoContent)
}
