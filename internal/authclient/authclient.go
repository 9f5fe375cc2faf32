// Package authclient issues the per-connection authorization callout: a
// single POST to an external web service, bounded by a timeout, with no
// retries and no caching.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// request is the JSON body posted to the authorization endpoint.
type request struct {
	Username      string
	Password      string
	RemoteAddress string
}

// Client issues authorization callouts against a fixed URI.
type Client struct {
	URI     string
	Timeout time.Duration
	http    *http.Client
}

// New returns a Client posting to uri with the default 5-second timeout.
func New(uri string) *Client {
	return &Client{
		URI:     uri,
		Timeout: defaultTimeout,
		http:    &http.Client{},
	}
}

// Authorize posts {username, password, remoteAddr} to the configured URI
// and reports whether the response status was 2xx. Any transport error or
// timeout is treated as a failed authorization, never propagated to the
// caller as a separate error — the connection handler only needs the
// boolean verdict.
func (c *Client) Authorize(ctx context.Context, username, password, remoteAddr string) bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(request{
		Username:      username,
		Password:      password,
		RemoteAddress: remoteAddr,
	})
	if err != nil {
		slog.Error("authclient: marshal request", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URI, bytes.NewReader(body))
	if err != nil {
		slog.Error("authclient: build request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("authclient: callout failed", "uri", c.URI, "error", err)
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		slog.Warn("authclient: callout rejected", "uri", c.URI, "status", resp.StatusCode)
	}
	return ok
}
