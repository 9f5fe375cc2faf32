package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"

	"github.com/quic-go/quic-go"

	"qrtc/server/internal/authclient"
	"qrtc/server/internal/registry"
)

// Server accepts QUIC connections and hands each one to the connection
// handler. The listener is never blocked by a per-connection operation:
// every accepted connection is dispatched onto its own goroutine.
type Server struct {
	addr      string
	tlsConfig *tls.Config
	quicConf  *quic.Config
	registry  *registry.Registry
	authz     *authclient.Client
}

// NewServer returns a Server ready to Run.
func NewServer(addr string, tlsConfig *tls.Config, reg *registry.Registry, authz *authclient.Client) *Server {
	return &Server{
		addr:      addr,
		tlsConfig: tlsConfig,
		quicConf:  &quic.Config{},
		registry:  reg,
		authz:     authz,
	}
}

// Run listens for QUIC connections on s.addr until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := quic.ListenAddr(s.addr, s.tlsConfig, s.quicConf)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	slog.Info("server: listening", "addr", s.addr)

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				slog.Info("server: listener stopped", "addr", s.addr)
				return nil
			}
			slog.Error("server: accept failed", "error", err)
			continue
		}

		go handleConnection(ctx, conn, s.registry, s.authz)
	}
}
