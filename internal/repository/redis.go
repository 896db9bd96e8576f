package repository

import (
	"context"
	"fmt"
	"time"

	"carrental/internal/config"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "booking_attempts"

// RedisAttemptRepository counts booking attempts with INCR and a window TTL.
type RedisAttemptRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisAttemptRepository(client *redis.Client) *RedisAttemptRepository {
	return &RedisAttemptRepository{
		client: client,
		prefix: attemptKeyPrefix,
	}
}

func (r *RedisAttemptRepository) key(userID int64) string {
	return fmt.Sprintf("%s:%d", r.prefix, userID)
}

// CheckRateLimit records one attempt and reports whether it is within limit.
func (r *RedisAttemptRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := r.key(userID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment booking attempts: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set booking attempts window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Reset drops the attempt counter of a user.
func (r *RedisAttemptRepository) Reset(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to reset booking attempts: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
