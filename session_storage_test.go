package main

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"go-passport-preview/redis"

	"github.com/stretchr/testify/require"
)

// redisTestClientConfig points at REDIS_TEST_HOST, the tests using it are
// skipped when no redis is reachable.
func redisTestClientConfig(t *testing.T) *redis.RedisConfig {
	t.Helper()
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" {
		t.Skip("REDIS_TEST_HOST not set")
	}
	port := 6379
	if p := os.Getenv("REDIS_TEST_PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		require.NoError(t, err)
	}
	return &redis.RedisConfig{Host: host, Port: port, Namespace: "test-" + GenerateSessionId()}
}

func sessionStorages(t *testing.T) map[string]SessionStorage {
	t.Helper()
	storages := map[string]SessionStorage{"memory": NewInMemorySessionStorage()}
	if os.Getenv("REDIS_TEST_HOST") != "" {
		config := redisTestClientConfig(t)
		client, err := redis.NewRedisClient(config)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		storages["redis"] = NewRedisSessionStorage(client, config.Namespace)
	}
	return storages
}

func TestSessionStorage(t *testing.T) {
	for name, storage := range sessionStorages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sid := GenerateSessionId()

			_, err := storage.RetrieveSession(ctx, sid)
			require.ErrorIs(t, err, ErrSessionNotFound)

			require.NoError(t, storage.StoreSession(ctx, sid, testEmail, time.Minute))
			email, err := storage.RetrieveSession(ctx, sid)
			require.NoError(t, err)
			require.Equal(t, testEmail, email)

			require.NoError(t, storage.StoreSession(ctx, sid, "bob@example.com", time.Minute))
			email, err = storage.RetrieveSession(ctx, sid)
			require.NoError(t, err)
			require.Equal(t, "bob@example.com", email)

			require.NoError(t, storage.RemoveSession(ctx, sid))
			_, err = storage.RetrieveSession(ctx, sid)
			require.ErrorIs(t, err, ErrSessionNotFound)
			require.ErrorIs(t, storage.RemoveSession(ctx, sid), ErrSessionNotFound)
		})
	}
}

func TestInMemorySessionStorageExpiry(t *testing.T) {
	storage := NewInMemorySessionStorage()
	current := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, storage.StoreSession(ctx, "sid", testEmail, time.Hour))

	current = current.Add(59 * time.Minute)
	email, err := storage.RetrieveSession(ctx, "sid")
	require.NoError(t, err)
	require.Equal(t, testEmail, email)

	current = current.Add(time.Minute)
	_, err = storage.RetrieveSession(ctx, "sid")
	require.ErrorIs(t, err, ErrSessionNotFound)

	// expired sessions are dropped on read
	require.ErrorIs(t, storage.RemoveSession(ctx, "sid"), ErrSessionNotFound)
}

func TestInMemorySessionStorageConcurrentUse(t *testing.T) {
	storage := NewInMemorySessionStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := strconv.Itoa(i)
			require.NoError(t, storage.StoreSession(ctx, sid, testEmail, time.Minute))
			_, err := storage.RetrieveSession(ctx, sid)
			require.NoError(t, err)
			require.NoError(t, storage.RemoveSession(ctx, sid))
		}(i)
	}
	wg.Wait()
}
