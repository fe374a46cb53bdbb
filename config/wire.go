package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mini-twirp/client"
	"mini-twirp/middleware"
	"mini-twirp/server"
)

// NewLogger builds the zap logger described by a LogConfig.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// ServerOptions translates a ServerConfig into dispatcher options, including
// the middleware the config enables.
func ServerOptions(cfg ServerConfig, log *zap.Logger) []server.Option {
	opts := []server.Option{server.WithLogger(log)}
	if cfg.StrictDecoding {
		opts = append(opts, server.WithStrictDecoding())
	}
	mws := []middleware.Middleware{middleware.Logging(log)}
	if cfg.RateLimit.RPS > 0 {
		mws = append(mws, middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	if cfg.HandlerTimeout > 0 {
		mws = append(mws, middleware.Timeout(cfg.HandlerTimeout.Std()))
	}
	return append(opts, server.WithMiddleware(mws...))
}

// ClientOptions translates a ClientConfig into client options. Discovery
// wiring (WithResolver) is left to the caller, which owns the resolver.
func ClientOptions(cfg ClientConfig, log *zap.Logger) ([]client.Option, error) {
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	opts := []client.Option{
		client.WithFormat(format),
		client.WithLogger(log),
	}
	if cfg.StrictDecoding {
		opts = append(opts, client.WithStrictDecoding())
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, client.WithRetry(cfg.MaxRetries, cfg.RetryBase.Std()))
	}
	return opts, nil
}
