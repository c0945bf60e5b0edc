package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/bloodlink-backend/config"
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// Store is the injectable view of the connection used by services and middleware.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps an initialized client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// RevokeToken adds a token to the revocation list until it would have expired anyway.
func (s *Store) RevokeToken(ctx context.Context, token string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	logger.Debug("Adding token to revocation list", map[string]interface{}{
		"expiry": expiry.String(),
	})

	key := fmt.Sprintf("revoked:%s", token)
	if err := s.rdb.Set(ctx, key, "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to revoke token", err, nil)
		return err
	}
	return nil
}

// IsTokenRevoked checks the revocation list
func (s *Store) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	key := fmt.Sprintf("revoked:%s", token)
	val, err := s.rdb.Get(ctx, key).Result()

	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token revocation", err, nil)
		return false, err
	}
	return val == "revoked", nil
}

// AcquireCooldown returns true when no cooldown was running for key and starts one for ttl.
func (s *Store) AcquireCooldown(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, "cooldown:"+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		logger.Error("Failed to set cooldown", err, map[string]interface{}{
			"key": key,
		})
		return false, err
	}
	return ok, nil
}
