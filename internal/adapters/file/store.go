package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/aretw0/transferdesk/pkg/ports"
)

// TokenStore implements ports.TokenStorage on the local filesystem.
// Each slot is a small JSON file inside BasePath, readable by the owner only.
type TokenStore struct {
	BasePath string
	mu       sync.Mutex
}

type tokenFile struct {
	Token string `json:"token"`
}

// New creates a TokenStore rooted at basePath.
// If basePath is empty, it defaults to ".transferdesk/tokens".
func New(basePath string) *TokenStore {
	if basePath == "" {
		basePath = filepath.Join(".transferdesk", "tokens")
	}
	return &TokenStore{BasePath: basePath}
}

func (s *TokenStore) path(slot ports.TokenSlot) (string, error) {
	if slot == "" {
		return "", fmt.Errorf("token slot cannot be empty")
	}
	return filepath.Join(s.BasePath, string(slot)+".json"), nil
}

// Store writes the token atomically: temp file, fsync, rename.
func (s *TokenStore) Store(ctx context.Context, slot ports.TokenSlot, token string) error {
	destPath, err := s.path(slot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.BasePath, 0o700); err != nil {
		return fmt.Errorf("failed to ensure token directory: %w", err)
	}

	data, err := json.Marshal(tokenFile{Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+string(slot)+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to restrict temp file: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename replaces the destination atomically except on Windows.
	if runtime.GOOS == "windows" {
		if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing token file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to token file: %w", err)
	}
	return nil
}

// Retrieve reads the slot's token file.
func (s *TokenStore) Retrieve(ctx context.Context, slot ports.TokenSlot) (string, error) {
	filePath, err := s.path(slot)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ports.ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("failed to unmarshal token file: %w", err)
	}
	if tf.Token == "" {
		return "", ports.ErrTokenNotFound
	}
	return tf.Token, nil
}

// Remove deletes the slot's token file.
func (s *TokenStore) Remove(ctx context.Context, slot ports.TokenSlot) error {
	filePath, err := s.path(slot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
