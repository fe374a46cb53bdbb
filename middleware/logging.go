package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mini-twirp/message"
	"mini-twirp/registry"
	"mini-twirp/twerr"
)

// Logging logs one line per call: service, method, duration, and the error
// code if the handler failed.
func Logging(log *zap.Logger) Middleware {
	return func(next registry.Handler) registry.Handler {
		return func(ctx context.Context, req message.Message) (message.Message, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			service, _ := registry.ServiceName(ctx)
			method, _ := registry.MethodName(ctx)
			fields := []zap.Field{
				zap.String("service", service),
				zap.String("method", method),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				te := twerr.FromError(err)
				fields = append(fields,
					zap.String("code", string(te.Code())),
					zap.String("msg", te.Msg()),
				)
				log.Warn("call failed", fields...)
				return resp, err
			}
			log.Info("call ok", fields...)
			return resp, nil
		}
	}
}
