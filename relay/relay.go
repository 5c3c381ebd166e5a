// Package relay forwards capture requests from the page context to the
// local ingestion service. It models the background half of the pipeline:
// a single consumer of a bounded, ordered request channel, with each
// request carrying its own reply channel so results arrive asynchronously
// after the caller has moved on.
//
// Delivery is best-effort by contract: no retry, no backoff, no circuit
// breaker. A failed relay reports {status: "error"} and the snapshot is
// gone. Results never cross the channel boundary as Go errors.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dimcortex/capture/platform"
	"github.com/dimcortex/capture/snapshot"
)

// Kind tags the request union.
type Kind string

const (
	// KindCapture relays a conversation snapshot to the ingestion endpoint.
	KindCapture Kind = "capture"
	// KindPing is the lighter diagnostic round trip.
	KindPing Kind = "ping"
)

// Request is the tagged union sent from the page context. Snapshot is
// set for KindCapture; Text and Platform for KindPing.
type Request struct {
	Kind     Kind
	Snapshot *snapshot.Snapshot
	Text     string
	Platform platform.Tag
}

// Status is the terminal outcome of a relay. Both values are final:
// callers must not retry on StatusError.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is delivered on the reply channel once the network call settles.
// Data holds the ingestion service's acknowledgment body (opaque JSON)
// on success.
type Result struct {
	Status Status          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type pending struct {
	req   Request
	reply chan Result
}

// Client is the relay client. Create with NewClient, start its loop with
// Run, submit with Relay.
type Client struct {
	requests  chan pending
	httpc     *http.Client
	ingestURL string
	pingURL   string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient overrides the HTTP client (tests, custom transports).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithQueueSize sets the request channel capacity. Default: 64.
func WithQueueSize(n int) Option {
	return func(c *Client) { c.requests = make(chan pending, n) }
}

// NewClient creates a Client targeting the ingestion service at baseURL
// (e.g. "http://localhost:5000"). The endpoint is assumed local and
// low-latency; the 10s client timeout is the only deadline.
func NewClient(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	c := &Client{
		requests:  make(chan pending, 64),
		httpc:     &http.Client{Timeout: 10 * time.Second},
		ingestURL: base + "/ingest",
		pingURL:   base + "/process_interaction",
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run services the request channel until ctx is cancelled. Each request
// dispatches on its own goroutine, so the loop keeps accepting new
// requests while calls are in flight: multiple snapshots may be on the
// wire simultaneously and ingestion-side ordering is not guaranteed to
// match capture order.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-c.requests:
			go c.dispatch(ctx, p)
		}
	}
}

// Relay enqueues a request and immediately returns its reply channel.
// The result arrives after the network call settles; the channel is
// buffered so the background context never blocks on a caller that has
// stopped listening. A full queue drops the request with an error result
// rather than blocking the page context.
func (c *Client) Relay(ctx context.Context, req Request) <-chan Result {
	reply := make(chan Result, 1)

	select {
	case c.requests <- pending{req: req, reply: reply}:
	default:
		c.logger.Warn("relay: queue full, dropping request", "kind", req.Kind)
		reply <- Result{Status: StatusError}
	}
	return reply
}

func (c *Client) dispatch(ctx context.Context, p pending) {
	var res Result
	switch p.req.Kind {
	case KindCapture:
		res = c.doCapture(ctx, p.req)
	case KindPing:
		res = c.doPing(ctx, p.req)
	default:
		c.logger.Warn("relay: unknown request kind", "kind", p.req.Kind)
		res = Result{Status: StatusError}
	}
	p.reply <- res
}
