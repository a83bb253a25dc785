package testutil

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// StartRedis runs a disposable redis container and returns a connected client.
func StartRedis(ctx context.Context) (func(context.Context, ...testcontainers.TerminateOption) error, *redis.Client, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, nil, err
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		return container.Terminate, nil, err
	}

	opts, err := redis.ParseURL(uri)
	if err != nil {
		return container.Terminate, nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return container.Terminate, nil, fmt.Errorf("ping redis: %w", err)
	}
	return container.Terminate, client, nil
}
