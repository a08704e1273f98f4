package redis

import (
	"context"
	"fmt"
	"time"

	"smart2onyma/common/config"

	"github.com/go-redis/redis/v8"
)

// connectTimeout bounds the initial ping
const connectTimeout = 5 * time.Second

// Connect creates a client for cfg and pings it. The client is closed when the ping fails.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: connectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
