package keylock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_NoLeak(t *testing.T) {
	set := New()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		require.NoError(t, set.Do(ctx, fmt.Sprintf("users:%d", i), func(context.Context) error { return nil }))
	}
	assert.Zero(t, set.Len())
}

func TestSet_SerializesSameKey(t *testing.T) {
	set := New()
	ctx := context.Background()

	var (
		inside  int32
		overlap int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = set.Do(ctx, "transfer_accounts:1", func(context.Context) error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlap), "two holders ran at once")
	assert.Zero(t, set.Len())
}

func TestSet_DifferentKeysRunConcurrently(t *testing.T) {
	set := New()
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = set.Do(ctx, "a", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		_ = set.Do(ctx, "b", func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key b blocked behind key a")
	}
	close(release)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked []string
	err      error
}

func (f *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.locked = append(f.locked, key)
	f.mu.Unlock()
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unlocked = append(f.unlocked, key)
		return nil
	}, nil
}

func TestSet_DistributedLocker(t *testing.T) {
	fl := &fakeLocker{}
	set := New(WithLocker(fl))

	require.NoError(t, set.Do(context.Background(), "users:7", func(context.Context) error { return nil }))
	assert.Equal(t, []string{"users:7"}, fl.locked)
	assert.Equal(t, []string{"users:7"}, fl.unlocked)

	fl.err = errors.New("redis down")
	called := false
	err := set.Do(context.Background(), "users:7", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockAcquire)
	assert.False(t, called)
	assert.Zero(t, set.Len())
}
