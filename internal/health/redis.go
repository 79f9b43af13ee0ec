// Package health provides readiness checks for the service's external
// dependencies: Postgres, Redis, and the Ollama model server.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker reports Redis reachability.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck issues a PING against the Redis server.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
