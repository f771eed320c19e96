package memory

import (
	"context"
	"sync"

	"github.com/aretw0/transferdesk/pkg/ports"
)

// TokenStore implements ports.TokenStorage in memory.
// Safe for concurrent use. Tokens do not survive the process.
type TokenStore struct {
	data map[ports.TokenSlot]string
	mu   sync.RWMutex
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[ports.TokenSlot]string),
	}
}

// Store keeps the token in memory.
func (s *TokenStore) Store(ctx context.Context, slot ports.TokenSlot, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[slot] = token
	return nil
}

// Retrieve reads the slot.
func (s *TokenStore) Retrieve(ctx context.Context, slot ports.TokenSlot) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.data[slot]
	if !ok {
		return "", ports.ErrTokenNotFound
	}
	return token, nil
}

// Remove clears the slot.
func (s *TokenStore) Remove(ctx context.Context, slot ports.TokenSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, slot)
	return nil
}
