package registry

import (
	"context"
	"net/http"
)

// The dispatcher attaches call identifiers and the request headers to the
// context before invoking the handler. Handlers and middleware read them back
// through these accessors; the context is the only request-scoped state and
// is discarded when the call completes.

type ctxKey int

const (
	ctxKeyEndpoint ctxKey = iota
	ctxKeyHeader
)

// WithCall returns a context carrying the resolved endpoint and the inbound
// request headers.
func WithCall(ctx context.Context, ep *Endpoint, header http.Header) context.Context {
	ctx = context.WithValue(ctx, ctxKeyEndpoint, ep)
	return context.WithValue(ctx, ctxKeyHeader, header)
}

func endpointFrom(ctx context.Context) (*Endpoint, bool) {
	ep, ok := ctx.Value(ctxKeyEndpoint).(*Endpoint)
	return ep, ok
}

// PackageName returns the package name of the call in progress.
func PackageName(ctx context.Context) (string, bool) {
	ep, ok := endpointFrom(ctx)
	if !ok {
		return "", false
	}
	return ep.Service.Package, true
}

// ServiceName returns the service name of the call in progress.
func ServiceName(ctx context.Context) (string, bool) {
	ep, ok := endpointFrom(ctx)
	if !ok {
		return "", false
	}
	return ep.Service.Service, true
}

// MethodName returns the method name of the call in progress.
func MethodName(ctx context.Context) (string, bool) {
	ep, ok := endpointFrom(ctx)
	if !ok {
		return "", false
	}
	return ep.Method.Name, true
}

// Header returns the inbound request headers of the call in progress.
func Header(ctx context.Context) (http.Header, bool) {
	h, ok := ctx.Value(ctxKeyHeader).(http.Header)
	return h, ok
}
