package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"mini-twirp/message"
	"mini-twirp/registry"
	"mini-twirp/twerr"
)

// RateLimit rejects calls above a token-bucket rate with resource_exhausted.
// One limiter is shared by every handler behind the middleware.
func RateLimit(rps float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next registry.Handler) registry.Handler {
		return func(ctx context.Context, req message.Message) (message.Message, error) {
			if !limiter.Allow() {
				return nil, twerr.New(twerr.ResourceExhausted, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
