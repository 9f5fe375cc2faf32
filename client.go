package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"qrtc/server/internal/authclient"
	"qrtc/server/internal/registry"
	"qrtc/server/internal/wire"
)

// relayTarget is the capability a peer must expose beyond the registry's
// minimal Client interface to receive fanned-out frames: a non-blocking
// enqueue onto its own outbound queue.
type relayTarget interface {
	Enqueue(frame []byte)
}

// Client drives one QUIC connection from handshake through relay to
// teardown. It is registered in the shared registry only between a
// successful authentication and its own removal on teardown.
type Client struct {
	id         uint32
	alias      string
	remoteAddr string
	echo       bool

	conn    quic.Connection
	control quic.ReceiveStream
	data    quic.Stream

	registry *registry.Registry
	outbound chan []byte

	writeMu sync.Mutex
}

// ID, Alias and RemoteAddr satisfy registry.Client.
func (c *Client) ID() uint32         { return c.id }
func (c *Client) Alias() string      { return c.alias }
func (c *Client) RemoteAddr() string { return c.remoteAddr }

// Enqueue delivers frame to this client's outbound queue without
// blocking the caller. A full queue drops the frame for this peer only
// and logs the overflow; the sender is never stalled by a slow receiver.
func (c *Client) Enqueue(frame []byte) {
	select {
	case c.outbound <- frame:
	default:
		slog.Error("client: outbound queue full, dropping frame", "client_id", c.id, "alias", c.alias)
	}
}

// writeFrame serializes writes to the data stream; both the writer task
// (draining the outbound queue) and the echo-mode direct write path call
// it, so a full frame is never interleaved with another.
func (c *Client) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.data.Write(frame)
	return err
}

// runWriter drains the outbound queue onto the data stream in FIFO
// order. It exits when the queue is closed or a write fails.
func (c *Client) runWriter() {
	for frame := range c.outbound {
		if err := c.writeFrame(frame); err != nil {
			slog.Debug("client: writer task stopped", "client_id", c.id, "error", err)
			return
		}
	}
}

// handleConnection accepts one QUIC connection through to teardown. It
// never blocks the listener: errors here are logged and swallowed, never
// propagated to the caller.
func handleConnection(serverCtx context.Context, conn quic.Connection, reg *registry.Registry, authz *authclient.Client) {
	ctx, cancel := context.WithCancel(serverCtx)
	defer cancel()

	remote := conn.RemoteAddr().String()

	control, err := conn.AcceptUniStream(ctx)
	if err != nil {
		slog.Debug("connection: awaiting control stream", "remote", remote, "error", err)
		return
	}

	auth, err := awaitAuthentication(ctx, control)
	if err != nil {
		slog.Debug("connection: no authentication received", "remote", remote, "error", err)
		return
	}

	if !authz.Authorize(ctx, auth.Username, auth.Password, remote) {
		slog.Info("connection: authorization rejected", "remote", remote, "username", auth.Username)
		conn.CloseWithError(0, "authorization rejected")
		return
	}

	data, err := conn.AcceptStream(ctx)
	if err != nil {
		slog.Debug("connection: awaiting data stream", "remote", remote, "error", err)
		return
	}

	client := &Client{
		id:         reg.AllocateID(),
		alias:      auth.Username,
		remoteAddr: remote,
		echo:       auth.Echo,
		conn:       conn,
		control:    control,
		data:       data,
		registry:   reg,
		outbound:   make(chan []byte, outboundQueueCapacity),
	}

	slog.Info("connection: relaying", "client_id", client.id, "alias", client.alias, "echo", client.echo, "remote", remote)

	go client.runWriter()
	defer func() {
		reg.Remove(client)
		close(client.outbound)
		control.CancelRead(0)
		data.CancelRead(0)
		data.CancelWrite(0)
		slog.Info("connection: disconnected", "client_id", client.id, "remote", remote)
	}()

	relay(ctx, client, control, data)
}

// awaitAuthentication reads control messages until an Authentication
// message arrives. Any other message observed here is ignored, per the
// protocol's "parse but ignore" rule for this state. ctx cancellation
// (server shutdown, or the connection's own teardown) unblocks the
// pending read via CancelRead, since a stream Read has no ctx of its own
// to observe.
func awaitAuthentication(ctx context.Context, control quic.ReceiveStream) (wire.Authentication, error) {
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			control.CancelRead(0)
		case <-watchDone:
		}
	}()

	for {
		msg, err := wire.ReadControlMessage(control)
		if err != nil {
			return wire.Authentication{}, err
		}
		if auth, ok := msg.(wire.Authentication); ok {
			return auth, nil
		}
		slog.Debug("connection: ignoring non-auth control message before authentication")
	}
}

// relay forks the control consumer and the data relay and runs them
// until either completes, then tears down whichever is still blocked.
func relay(ctx context.Context, client *Client, control quic.ReceiveStream, data quic.Stream) {
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()

	go func() {
		<-relayCtx.Done()
		control.CancelRead(0)
		data.CancelRead(0)
	}()

	var g errgroup.Group
	g.Go(func() error {
		defer stopRelay()
		return controlConsumer(client, control)
	})
	g.Go(func() error {
		defer stopRelay()
		return dataRelay(client, data)
	})

	// relayCtx is canceled unconditionally by both goroutines on return
	// (see stopRelay above), so relayCtx.Err() is always non-nil here and
	// cannot be used to detect an externally requested shutdown. ctx — the
	// connection-level context this relay was forked from — is only
	// canceled by server shutdown or the connection's own teardown, so it
	// is the right signal for that case.
	switch err := g.Wait(); {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		slog.Debug("connection: clean teardown", "client_id", client.id, "error", err)
	case errors.Is(err, wire.ErrProtocol):
		slog.Warn("connection: protocol error", "client_id", client.id, "error", err)
	case errors.As(err, new(*quic.IdleTimeoutError)),
		errors.As(err, new(*quic.ApplicationError)),
		errors.As(err, new(*quic.StreamError)):
		slog.Debug("connection: transport closed", "client_id", client.id, "error", err)
	case ctx.Err() != nil:
		slog.Debug("connection: cancellation requested", "client_id", client.id, "error", err)
	default:
		slog.Error("connection: unexpected error", "client_id", client.id, "error", err)
	}
}

// controlConsumer places the client on the quarantine channel, then
// reads control messages for the lifetime of the connection, mutating
// the registry on each JoinChannel.
func controlConsumer(client *Client, control quic.ReceiveStream) error {
	client.registry.Add(client, registry.QuarantineChannel)

	for {
		msg, err := wire.ReadControlMessage(control)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case wire.Authentication:
			slog.Debug("client: ignoring authentication received after handshake", "client_id", client.id)
		case wire.JoinChannel:
			client.registry.Add(client, m.ChannelID)
		case wire.Invalid:
			slog.Warn("client: invalid control message", "client_id", client.id, "type", m.Type)
		}
	}
}

// dataRelay reads data frames from the client's data stream and either
// echoes them back (echo mode) or fans them out to every peer on the
// same channel.
func dataRelay(client *Client, data quic.Stream) error {
	for {
		payload, err := wire.ReadDataFrame(data)
		if err != nil {
			return err
		}
		if payload == nil {
			continue // keep-alive
		}

		frame, err := wire.EncodeDataFrame(client.id, payload)
		if err != nil {
			return err
		}

		if client.echo {
			if err := client.writeFrame(frame); err != nil {
				return err
			}
			continue
		}

		peers := client.registry.PeersOnSameChannel(client, true)
		for _, peer := range peers {
			if target, ok := peer.(relayTarget); ok {
				target.Enqueue(frame)
			}
		}
	}
}
