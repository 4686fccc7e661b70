package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-passport-preview/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserStorage looks up and registers accounts by their identifier, the
// normalised email address. Should be safe to use in concurrency.
type UserStorage interface {
	// FindByIdentifier returns ErrUserNotFound for unknown identifiers.
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)

	// Insert returns ErrUserExists when the identifier is already taken.
	Insert(ctx context.Context, user models.User) error
}

type InMemoryUserStorage struct {
	users map[string]models.User
	mutex sync.RWMutex
}

func NewInMemoryUserStorage() *InMemoryUserStorage {
	return &InMemoryUserStorage{users: make(map[string]models.User)}
}

func (s *InMemoryUserStorage) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, ok := s.users[identifier]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *InMemoryUserStorage) Insert(_ context.Context, user models.User) error {
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user identifier is empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return ErrUserExists
	}
	s.users[user.Email] = user
	return nil
}

// ------------------------------------------------------------------------------

type RedisUserStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisUserStorage(client *redis.Client, namespace string) *RedisUserStorage {
	return &RedisUserStorage{client: client, namespace: namespace}
}

// redisUser is the stored representation; models.User hides the hash from JSON.
type redisUser struct {
	Email        string    `json:"email"`
	FullName     string    `json:"fullname"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(namespace, identifier string) string {
	return fmt.Sprintf("%s:user:%s", namespace, identifier)
}

func (s *RedisUserStorage) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	raw, err := s.client.Get(ctx, userKey(s.namespace, identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	var stored redisUser
	if err := json.Unmarshal(raw, &stored); err != nil {
		return models.User{}, fmt.Errorf("failed to decode user: %w", err)
	}
	return models.User(stored), nil
}

func (s *RedisUserStorage) Insert(ctx context.Context, user models.User) error {
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user identifier is empty")
	}

	raw, err := json.Marshal(redisUser(user))
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	created, err := s.client.SetNX(ctx, userKey(s.namespace, user.Email), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	if !created {
		return ErrUserExists
	}
	return nil
}
