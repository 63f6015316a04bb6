package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Option configures NewClient.
type Option func(*options)

type options struct {
	tracing bool
}

// WithTracing instruments the client with OpenTelemetry tracing and metrics.
func WithTracing(enabled bool) Option {
	return func(o *options) { o.tracing = enabled }
}

// NewClient creates a new Redis client.
func NewClient(ctx context.Context, redisURL string, opts ...Option) (*redis.Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)

	if o.tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
		}
	}

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
