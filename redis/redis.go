package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

type RedisConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Password  string `json:"password"`
	DB        int    `json:"db,omitempty"`
	Namespace string `json:"namespace"`
}

type RedisSentinelConfig struct {
	SentinelHost     string `json:"sentinel_host"`
	SentinelPort     int    `json:"sentinel_port"`
	Password         string `json:"password"`
	MasterName       string `json:"master_name"`
	SentinelUsername string `json:"sentinel_username"`
	Namespace        string `json:"namespace"`
}

// NewRedisClient connects to a single redis node and verifies the
// connection with a PING.
func NewRedisClient(config *RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	slog.Debug("Connecting to redis", "address", addr, "db", config.DB)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	slog.Info("Connected to redis", "address", addr)
	return client, nil
}

// NewRedisSentinelClient connects to the master behind a sentinel.
func NewRedisSentinelClient(config *RedisSentinelConfig) (*redis.Client, error) {
	if config.MasterName == "" {
		return nil, fmt.Errorf("failed to connect to Redis through Sentinel: master name is empty")
	}

	addr := fmt.Sprintf("%s:%d", config.SentinelHost, config.SentinelPort)
	slog.Debug("Connecting to redis through sentinel", "sentinel_address", addr, "master_name", config.MasterName)

	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       config.MasterName,
		SentinelAddrs:    []string{addr},
		SentinelUsername: config.SentinelUsername,
		SentinelPassword: config.Password,
		Password:         config.Password,
	})

	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis through Sentinel at %s: %w", addr, err)
	}

	slog.Info("Connected to redis through sentinel", "sentinel_address", addr, "master_name", config.MasterName)
	return client, nil
}

func ping(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
