package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/transferdesk/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// TokenStore implements ports.TokenStorage using Redis.
// Useful when several console hosts share one operator identity.
type TokenStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*TokenStore)

// WithTTL sets the expiration for stored tokens.
func WithTTL(ttl time.Duration) Option {
	return func(s *TokenStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for tokens.
func WithPrefix(prefix string) Option {
	return func(s *TokenStore) {
		s.prefix = prefix
	}
}

// New creates a new Redis token store with options.
func New(address, password string, db int, opts ...Option) *TokenStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis token store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *TokenStore {
	store := &TokenStore{
		client: client,
		prefix: "transferdesk:token:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *TokenStore) Client() *backend.Client {
	return s.client
}

func (s *TokenStore) key(slot ports.TokenSlot) string {
	return s.prefix + string(slot)
}

// Store writes the token to Redis.
func (s *TokenStore) Store(ctx context.Context, slot ports.TokenSlot, token string) error {
	if err := s.client.Set(ctx, s.key(slot), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}
	return nil
}

// Retrieve reads the token from Redis.
func (s *TokenStore) Retrieve(ctx context.Context, slot ports.TokenSlot) (string, error) {
	val, err := s.client.Get(ctx, s.key(slot)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", ports.ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to get token from redis: %w", err)
	}
	return val, nil
}

// Remove deletes the token.
func (s *TokenStore) Remove(ctx context.Context, slot ports.TokenSlot) error {
	if err := s.client.Del(ctx, s.key(slot)).Err(); err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *TokenStore) Close() error {
	return s.client.Close()
}
