package main

import "time"

// Operational limits — named constants for values otherwise scattered
// across the transport code. Protocol-level limits (field/frame lengths,
// the quarantine channel ID) live with the code that enforces them:
// wire.MaxFieldLen, wire.MaxOpusFrameLen, registry.QuarantineChannel.
const (
	// alpnProtocol is the ALPN token negotiated during the QUIC handshake.
	alpnProtocol = "qrtc/1"

	// outboundQueueCapacity is the size of each client's outbound frame
	// queue. A slow peer drops frames rather than stalling its sender.
	outboundQueueCapacity = 128

	// authorizationTimeout bounds the external authorization callout.
	authorizationTimeout = 5 * time.Second

	// certValidity is the lifetime of the ephemeral TLS certificate
	// generated at startup.
	certValidity = 24 * time.Hour
)
