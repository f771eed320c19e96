package file_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/transferdesk/internal/adapters/file"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore_Contract(t *testing.T) {
	ports.RunTokenStorageContract(t, file.New(t.TempDir()))
}

func TestFileTokenStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, file.New(dir).Store(ctx, ports.SlotPrimary, "persisted"))

	got, err := file.New(dir).Retrieve(ctx, ports.SlotPrimary)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "primary.json", entries[0].Name())
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tfa.json"), []byte("{not json"), 0o600))

	_, err := file.New(dir).Retrieve(context.Background(), ports.SlotTFA)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrTokenNotFound)
}

func TestFileTokenStore_OverwriteKeepsTokenReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename cannot replace an existing file on Windows")
	}
	store := file.New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, ports.SlotPrimary, "v0"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 200; i++ {
			if err := store.Store(ctx, ports.SlotPrimary, fmt.Sprintf("v%d", i)); err != nil {
				t.Errorf("store v%d: %v", i, err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			got, err := store.Retrieve(ctx, ports.SlotPrimary)
			require.NoError(t, err)
			assert.Equal(t, "v200", got)
			return
		default:
		}
		if _, err := store.Retrieve(ctx, ports.SlotPrimary); err != nil {
			<-done
			t.Fatalf("slot unreadable during overwrite: %v", err)
		}
	}
}
