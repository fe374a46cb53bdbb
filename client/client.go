// Package client implements the runtime behavior a generated Twirp stub must
// exhibit: build the route URL, encode the request in the configured format,
// POST it through an injected transport, and decode the response — or the
// JSON error body — into typed values.
//
// Callers never see raw transport errors: every failure comes back as a
// *twerr.Error, so protocol-level and transport-level problems are handled
// the same way.
package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mini-twirp/codec"
	"mini-twirp/discovery"
	"mini-twirp/loadbalance"
	"mini-twirp/message"
	"mini-twirp/twerr"
)

// HTTPClient is the injected transport adapter. *http.Client satisfies it;
// tests inject fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues Twirp calls against one base URL, or against instances
// resolved per call when a resolver is configured.
type Client struct {
	baseURL    string
	http       HTTPClient
	format     message.Format
	decodeOpts message.DecodeOptions
	log        *zap.Logger

	maxRetries int
	retryBase  time.Duration

	resolver discovery.Resolver
	balancer loadbalance.Balancer
	service  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the transport.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.http = h }
}

// WithFormat selects the request encoding (default Binary).
func WithFormat(f message.Format) Option {
	return func(c *Client) { c.format = f }
}

// WithStrictDecoding makes response decoding reject unknown fields.
func WithStrictDecoding() Option {
	return func(c *Client) { c.decodeOpts.DisallowUnknownFields = true }
}

// WithLogger sets the logger for retry attempts.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRetry retries transient transport failures up to max times with
// exponential backoff starting at base. Only errors raised before any server
// response (refused, reset, EOF) are retried; a response, even an error
// response, is final.
func WithRetry(max int, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBase = base
	}
}

// WithResolver resolves the target base URL per call instead of using a fixed
// one: instances for service come from the resolver, one is picked by the
// balancer.
func WithResolver(r discovery.Resolver, b loadbalance.Balancer, service string) Option {
	return func(c *Client) {
		c.resolver = r
		c.balancer = b
		c.service = service
	}
}

// New creates a client bound to a base URL. With WithResolver the base URL
// may be empty.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		format:  message.Binary,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one RPC: req is encoded and POSTed to base+route, and the
// reply is decoded into resp. The returned error is always nil or a
// *twerr.Error.
func (c *Client) Call(ctx context.Context, route string, req, resp message.Message) error {
	reqBody, err := req.MarshalFormat(c.format)
	if err != nil {
		return twerr.Internalf("failed to encode request body: %v", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff, abandoned immediately on cancellation.
			wait := c.retryBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctxError(ctx)
			case <-time.After(wait):
			}
			c.log.Info("retrying call",
				zap.String("route", route),
				zap.Int("attempt", attempt+1),
				zap.NamedError("last_error", lastErr))
		}

		// Resolved per attempt: with a resolver and a balancer, a retry can
		// land on a different instance than the one that just failed.
		base, terr := c.resolveBase()
		if terr != nil {
			return terr
		}

		// Fresh request per attempt; the body reader is consumed by Do.
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+route, bytes.NewReader(reqBody))
		if err != nil {
			return twerr.Internalf("failed to build request: %v", err)
		}
		contentType := codec.ContentType(c.format)
		httpReq.Header.Set("Content-Type", contentType)
		httpReq.Header.Set("Accept", contentType)

		httpResp, err := c.http.Do(httpReq)
		if err != nil {
			// Caller cancellation wins over any transport diagnosis.
			if ctx.Err() != nil {
				return ctxError(ctx)
			}
			if isRetryable(err) && attempt < c.maxRetries {
				lastErr = err
				continue
			}
			return twerr.Unavailablef("transport failure: %v", err)
		}
		return c.readResponse(httpResp, resp)
	}

	return twerr.Unavailablef("transport failure after %d retries: %v", c.maxRetries, lastErr)
}

// readResponse decodes a success body per the reply's Content-Type (the
// server echoes the negotiated format on success), or the JSON error body on
// non-2xx.
func (c *Client) readResponse(httpResp *http.Response, resp message.Message) error {
	defer drainAndClose(httpResp.Body)

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return twerr.Unavailablef("failed to read response body: %v", err)
	}

	if httpResp.StatusCode >= 200 && httpResp.StatusCode <= 299 {
		replyCT := httpResp.Header.Get("Content-Type")
		format, ok := codec.FromContentType(replyCT)
		if !ok {
			return twerr.Internalf("unexpected Content-Type %q in response", replyCT)
		}
		if terr := codec.Decode(body, resp, format, c.decodeOpts); terr != nil {
			return terr
		}
		return nil
	}

	// Non-2xx always carries a JSON error body. A body that is not a valid
	// error object means a proxy or load balancer answered instead of a
	// Twirp server; synthesize internal with the raw status attached.
	if e, ok := twerr.ParseJSON(body); ok {
		return e
	}
	return twerr.New(twerr.Internal, "received a non-Twirp error response").
		WithMeta("status_code", strconv.Itoa(httpResp.StatusCode)).
		WithMeta("body", truncate(string(body), 1000))
}

// resolveBase picks the target base URL: the fixed one, or a discovered
// instance chosen by the balancer.
func (c *Client) resolveBase() (string, *twerr.Error) {
	if c.resolver == nil {
		if c.baseURL == "" {
			return "", twerr.Internalf("client has neither a base URL nor a resolver")
		}
		return c.baseURL, nil
	}
	instances, err := c.resolver.Discover(c.service)
	if err != nil {
		return "", twerr.Unavailablef("failed to discover service %q: %v", c.service, err)
	}
	inst, err := c.balancer.Pick(instances)
	if err != nil {
		return "", twerr.Unavailablef("failed to pick an instance for service %q: %v", c.service, err)
	}
	return strings.TrimSuffix(inst.BaseURL, "/"), nil
}

func ctxError(ctx context.Context) *twerr.Error {
	if ctx.Err() == context.DeadlineExceeded {
		return twerr.New(twerr.DeadlineExceeded, "deadline exceeded while waiting for response")
	}
	return twerr.New(twerr.Canceled, "call canceled")
}

// isRetryable reports whether a transport error is transient: connection
// never established or torn down before a response.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "EOF") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "broken pipe")
}

// drainAndClose reads the body to the end before closing so the transport
// can reuse the connection.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
