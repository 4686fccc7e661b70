package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Should be safe to use in concurrency
type SessionStorage interface {
	// Store the email of the logged in user for the given session id.
	// The session expires after ttl. Storing an existing session id
	// overwrites it.
	StoreSession(ctx context.Context, sessionId, email string, ttl time.Duration) error

	// Retrieve the email for the session id. Unknown or expired sessions
	// return ErrSessionNotFound.
	RetrieveSession(ctx context.Context, sessionId string) (string, error)

	// Remove the session. Removing an unknown session returns
	// ErrSessionNotFound.
	RemoveSession(ctx context.Context, sessionId string) error
}

type InMemorySessionStorage struct {
	sessions map[string]memorySession
	mutex    sync.Mutex
	now      func() time.Time
}

type memorySession struct {
	email     string
	expiresAt time.Time
}

func NewInMemorySessionStorage() *InMemorySessionStorage {
	return &InMemorySessionStorage{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

type RedisSessionStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisSessionStorage(client *redis.Client, namespace string) *RedisSessionStorage {
	return &RedisSessionStorage{client: client, namespace: namespace}
}

// ------------------------------------------------------------------------------

func sessionKey(namespace, sessionId string) string {
	return fmt.Sprintf("%s:session:%s", namespace, sessionId)
}

func (s *RedisSessionStorage) StoreSession(ctx context.Context, sessionId, email string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(s.namespace, sessionId), email, ttl).Err()
}

func (s *RedisSessionStorage) RetrieveSession(ctx context.Context, sessionId string) (string, error) {
	email, err := s.client.Get(ctx, sessionKey(s.namespace, sessionId)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	return email, err
}

func (s *RedisSessionStorage) RemoveSession(ctx context.Context, sessionId string) error {
	removed, err := s.client.Del(ctx, sessionKey(s.namespace, sessionId)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ------------------------------------------------------------------------------

func (s *InMemorySessionStorage) StoreSession(_ context.Context, sessionId, email string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[sessionId] = memorySession{email: email, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemorySessionStorage) RetrieveSession(_ context.Context, sessionId string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, ok := s.sessions[sessionId]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !s.now().Before(session.expiresAt) {
		delete(s.sessions, sessionId)
		return "", ErrSessionNotFound
	}
	return session.email, nil
}

func (s *InMemorySessionStorage) RemoveSession(_ context.Context, sessionId string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.sessions[sessionId]; !ok {
		return fmt.Errorf("failed to remove session %s: %w", sessionId, ErrSessionNotFound)
	}
	delete(s.sessions, sessionId)
	return nil
}
