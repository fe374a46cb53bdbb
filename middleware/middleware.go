// Package middleware is the dispatcher's single extension point: an onion of
// functions wrapped around every handler.
//
// Chain(A, B, C)(handler) → A(B(C(handler))), so A sees the request first and
// the response last.
package middleware

import "mini-twirp/registry"

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(next registry.Handler) registry.Handler

// Chain composes middlewares into one, applied in the order given.
func Chain(middlewares ...Middleware) Middleware {
	return func(next registry.Handler) registry.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
