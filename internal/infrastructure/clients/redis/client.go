package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/pkg/config"
	"github.com/zatekoja/Receptionqueue/backend/pkg/retry"
)

// Client represents a Redis client
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client, retrying the initial ping with backoff
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = 5
	retryConfig.MaxTotalTimeout = 15 * time.Second
	retryConfig.AttemptTimeout = 2 * time.Second

	err := retry.Do(context.Background(), retryConfig, "Redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", cfg.RedisAddr()).Msg("Connected to Redis")
	return &Client{client: client}, nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(client *redis.Client) *Client {
	return &Client{client: client}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
