// Package server implements the server-side dispatcher: it routes an inbound
// HTTP request to a registered method, negotiates the encoding, decodes the
// request, invokes the handler inside a cancellable context, and writes
// exactly one response — the encoded result on success, or a JSON error body
// on any failure.
//
// Request pipeline:
//
//	POST /{pkg}.{Service}/{Method}
//	  → Lookup route → negotiate Content-Type → Codec.Decode
//	  → Middleware Chain → Handler (panics converted to internal)
//	  → Codec.Encode → single response write
//
// The HTTP server itself is the external transport adapter: Server is a plain
// http.Handler and imposes no locking beyond the read-only registry; each
// call is handled independently on whatever goroutine net/http provides.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"mini-twirp/codec"
	"mini-twirp/message"
	"mini-twirp/middleware"
	"mini-twirp/registry"
	"mini-twirp/twerr"
)

// Server dispatches Twirp calls to handlers registered in a Registry.
type Server struct {
	reg         *registry.Registry
	log         *zap.Logger
	middlewares []middleware.Middleware
	decodeOpts  message.DecodeOptions

	// The middleware chain is composed once, on the first request. By then
	// registration must have completed; this is the initialization barrier.
	chainOnce sync.Once
	chain     middleware.Middleware
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for internal failures and suppressed writes.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMiddleware appends middlewares, applied in the order given.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *Server) { s.middlewares = append(s.middlewares, mws...) }
}

// WithStrictDecoding makes request decoding reject unknown fields instead of
// ignoring them.
func WithStrictDecoding() Option {
	return func(s *Server) { s.decodeOpts.DisallowUnknownFields = true }
}

// New creates a dispatcher over the given registry. Registration must be
// complete before the first request is served.
func New(reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		reg: reg,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use appends a middleware. Must be called before the first request.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

type callResult struct {
	resp message.Message
	err  error
}

// ServeHTTP runs the per-call state machine. Terminal on any exit: exactly
// one response is written, enforced by the write-once guard even when
// cancellation and completion race.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := newOnceWriter(w)

	// Step 1: route. The protocol is POST-only; anything else is unroutable.
	if r.Method != http.MethodPost {
		s.writeError(rw, twerr.BadRoutef("unsupported method %q (only POST is allowed)", r.Method))
		return
	}
	ep, ok := s.reg.Lookup(r.URL.Path)
	if !ok {
		s.writeError(rw, twerr.BadRoutef("no handler for path %q", r.URL.Path))
		return
	}

	// Step 2: negotiate the encoding from Content-Type. A request whose body
	// format is unknown cannot be routed to a decoder, so this is bad_route
	// (404) by protocol convention, and the handler is never invoked.
	contentType := r.Header.Get("Content-Type")
	format, ok := codec.FromContentType(contentType)
	if !ok {
		s.writeError(rw, twerr.BadRoutef("unexpected Content-Type %q", contentType))
		return
	}

	// Step 3: decode the request body into a fresh request message.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(rw, twerr.Malformedf("failed to read request body: %v", err))
		return
	}
	req := ep.Method.NewRequest()
	if terr := codec.Decode(body, req, format, s.decodeOpts); terr != nil {
		s.writeError(rw, terr)
		return
	}

	// Step 4: invoke. The context carries the call identifiers and headers;
	// its cancellation signal comes from the transport (client disconnect).
	ctx := registry.WithCall(r.Context(), ep, r.Header)
	if ctx.Err() != nil {
		s.writeError(rw, cancellationError(ctx))
		return
	}

	// The handler runs in its own goroutine so the dispatcher can observe
	// cancellation without waiting for it. The channel is buffered: a late
	// completion after cancellation is parked there, never delivered, and
	// never written (the guard would refuse it anyway).
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				s.log.Error("handler panic",
					zap.String("route", ep.Route),
					zap.Any("panic", p))
				// Internal details must not leak to the wire.
				done <- callResult{err: twerr.New(twerr.Internal, "internal service error")}
			}
		}()
		resp, err := s.handler(ep)(ctx, req)
		done <- callResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		s.writeError(rw, cancellationError(ctx))
	case res := <-done:
		if res.err != nil {
			s.writeError(rw, twerr.FromError(res.err))
			return
		}
		if res.resp == nil {
			s.writeError(rw, twerr.Internalf("handler for %q returned no response", ep.Route))
			return
		}
		// Step 5: respond with the same negotiated format.
		data, terr := codec.Encode(res.resp, format)
		if terr != nil {
			s.log.Error("response encoding failed",
				zap.String("route", ep.Route),
				zap.Error(terr))
			s.writeError(rw, terr)
			return
		}
		if !rw.write(http.StatusOK, codec.ContentType(format), data) {
			s.log.Warn("response already written", zap.String("route", ep.Route))
		}
	}
}

// handler wraps an endpoint's handler in the composed middleware chain.
func (s *Server) handler(ep *registry.Endpoint) registry.Handler {
	s.chainOnce.Do(func() {
		s.chain = middleware.Chain(s.middlewares...)
	})
	return s.chain(ep.Method.Handler)
}

// writeError writes the step-6 error response: always JSON, status per the
// code mapping, regardless of the request's negotiated format.
func (s *Server) writeError(rw *onceWriter, e *twerr.Error) {
	status := twerr.ServerHTTPStatus(e.Code())
	if !rw.write(status, codec.ContentTypeJSON, twerr.WireJSON(e)) {
		s.log.Warn("error response suppressed, response already written",
			zap.String("code", string(e.Code())))
	}
}

func cancellationError(ctx context.Context) *twerr.Error {
	if ctx.Err() == context.DeadlineExceeded {
		return twerr.New(twerr.DeadlineExceeded, "deadline exceeded")
	}
	return twerr.New(twerr.Canceled, "request canceled")
}
