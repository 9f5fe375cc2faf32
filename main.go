package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrtc/server/internal/authclient"
	"qrtc/server/internal/httpapi"
	"qrtc/server/internal/registry"
)

// version is overridable at link time (-ldflags "-X main.version=...").
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (falls back to RTC_SERVER_* env vars)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	initLogging(cfg.LogLevel)
	slog.Info("main: starting", "quic_port", cfg.QUICPort, "http_port", cfg.HTTPPort, "log_level", cfg.LogLevel)

	tlsConfig, fingerprint, err := generateTLSConfig(certValidity, "")
	if err != nil {
		slog.Error("main: generate TLS config", "error", err)
		os.Exit(1)
	}
	slog.Info("main: TLS certificate fingerprint", "fingerprint", fingerprint)

	reg := registry.New()
	authz := authclient.New(cfg.AuthorizationURI)
	authz.Timeout = authorizationTimeout

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("main: shutdown signal received")
		cancel()
	}()

	go RunMetrics(ctx, reg, 10*time.Second)

	quicAddr := net.JoinHostPort("", fmt.Sprint(cfg.QUICPort))
	quicSrv := NewServer(quicAddr, tlsConfig, reg, authz)

	httpAddr := net.JoinHostPort("", fmt.Sprint(cfg.HTTPPort))
	app := httpapi.AppInfo{Environment: "production", Version: version}
	httpSrv := httpapi.New(reg, app, cfg)

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpSrv.Run(ctx, httpAddr)
	}()

	if err := quicSrv.Run(ctx); err != nil {
		slog.Error("main: quic server stopped", "error", err)
	}

	cancel()
	if err := <-httpDone; err != nil {
		slog.Error("main: http server stopped", "error", err)
	}

	slog.Info("main: shutdown complete")
}
