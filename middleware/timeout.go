package middleware

import (
	"context"
	"time"

	"mini-twirp/message"
	"mini-twirp/registry"
	"mini-twirp/twerr"
)

// Timeout bounds handler execution. The deadline is attached to the context
// so the handler can observe it; if the handler does not return in time the
// call fails with deadline_exceeded and the late result is discarded.
func Timeout(d time.Duration) Middleware {
	return func(next registry.Handler) registry.Handler {
		return func(ctx context.Context, req message.Message) (message.Message, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				resp message.Message
				err  error
			}
			done := make(chan result, 1)
			go func() {
				resp, err := next(ctx, req)
				done <- result{resp, err}
			}()

			select {
			case r := <-done:
				return r.resp, r.err
			case <-ctx.Done():
				if ctx.Err() == context.Canceled {
					return nil, twerr.New(twerr.Canceled, "request canceled")
				}
				return nil, twerr.Newf(twerr.DeadlineExceeded, "handler exceeded %s timeout", d)
			}
		}
	}
}
