// Package http2 is the listener boundary: it serves any http.Handler
// (the gateway façade, the shared tier server, the metrics endpoint)
// over h2c or, when a TLS config is supplied, h2 via ALPN.
package http2

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Config contains listener configuration.
type Config struct {
	Addr    string
	Handler http.Handler

	// TLSConfig enables h2 over TLS; nil means h2c cleartext.
	TLSConfig *tls.Config

	MaxConcurrentStreams uint32
	MaxReadFrameSize     uint32
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration

	Logger *slog.Logger
}

// Server wraps net/http with an HTTP/2 configuration matching the
// RemoteTier client's h2c transport.
type Server struct {
	addr   string
	server *http.Server
	tls    bool
	logger *slog.Logger
}

// NewServer creates a listener around cfg.Handler.
func NewServer(cfg Config) *Server {
	if cfg.MaxConcurrentStreams == 0 {
		cfg.MaxConcurrentStreams = 250
	}
	if cfg.MaxReadFrameSize == 0 {
		cfg.MaxReadFrameSize = 1 << 20
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	h2 := &http2.Server{
		MaxConcurrentStreams: cfg.MaxConcurrentStreams,
		MaxReadFrameSize:     cfg.MaxReadFrameSize,
		IdleTimeout:          cfg.IdleTimeout,
	}

	s := &Server{
		addr:   cfg.Addr,
		logger: cfg.Logger,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      cfg.Handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	if cfg.TLSConfig != nil {
		s.tls = true
		tc := cfg.TLSConfig.Clone()
		tc.NextProtos = []string{"h2", "http/1.1"}
		s.server.TLSConfig = tc
		http2.ConfigureServer(s.server, h2)
	} else {
		s.server.Handler = h2c.NewHandler(cfg.Handler, h2)
	}
	return s
}

// ListenAndServe blocks serving until Shutdown or a listener error. A
// shutdown-triggered close is reported as nil.
func (s *Server) ListenAndServe() error {
	proto := "h2c"
	if s.tls {
		proto = "h2"
	}
	s.logger.Info("listener starting", "addr", s.addr, "proto", proto)

	var err error
	if s.tls {
		err = s.server.ListenAndServeTLS("", "")
	} else {
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires, then closes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("listener draining", "addr", s.addr)
	return s.server.Shutdown(ctx)
}
