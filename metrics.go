package main

import (
	"context"
	"log/slog"
	"time"

	"qrtc/server/internal/registry"
)

// RunMetrics logs registry stats every interval until ctx is canceled.
func RunMetrics(ctx context.Context, reg *registry.Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info := reg.StoreInfo()
			if info.ClientCount > 0 || info.ChannelCount > 0 {
				slog.Info("metrics",
					"clients", info.ClientCount,
					"channels", info.ChannelCount,
					"next_client_id", info.NextClientID,
					"uptime", info.Uptime,
				)
			}
		}
	}
}
