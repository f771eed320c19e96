package bus_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/transferdesk/pkg/bus"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	actions []domain.Action
	// state seen by the observer at notification time
	auth []domain.AuthState
	st   *store.Store
}

func (r *recorder) Observe(_ context.Context, a domain.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	r.auth = append(r.auth, r.st.Snapshot().Auth)
}

func TestBus_ApplyThenNotify(t *testing.T) {
	s := store.New()
	b := bus.New(s)
	rec := &recorder{st: s}
	b.Register(rec)

	a, err := b.Dispatch(context.Background(), domain.NewAction(domain.LoginRequest, domain.LoginCredentials{Username: "a@b.com", Password: "x"}))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), a.Seq)
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.DispatchedAt.IsZero())

	require.Len(t, rec.actions, 1)
	assert.Equal(t, domain.StateAuthenticating, rec.auth[0], "store is updated before observers run")
	assert.Equal(t, uint64(1), s.Snapshot().Seq)
}

func TestBus_TypedPayloadFromJSON(t *testing.T) {
	s := store.New()
	b := bus.New(s)
	rec := &recorder{st: s}
	b.Register(rec)

	_, err := b.Dispatch(context.Background(), domain.NewAction(domain.ValidateTFARequest, map[string]any{
		"otp":                 "123456",
		"otp_expiry_interval": float64(9999),
	}))
	require.NoError(t, err)

	require.Len(t, rec.actions, 1)
	p, ok := rec.actions[0].Payload.(domain.TFAPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TFARememberInterval, p.ExpiryInterval)
}

func TestBus_ValidationShortCircuits(t *testing.T) {
	s := store.New()
	b := bus.New(s)
	rec := &recorder{st: s}
	b.Register(rec)

	_, err := b.Dispatch(context.Background(), domain.NewAction(domain.ValidateTFARequest, domain.NewTFAPayload("", true)))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Please Enter a Validation Code", ve.Message)

	assert.Empty(t, rec.actions)
	assert.True(t, s.Snapshot().Request(domain.FlowValidateTFA).Idle(), "status stays idle")
	assert.Zero(t, s.Snapshot().Seq)
}

func TestBus_UnknownAction(t *testing.T) {
	b := bus.New(store.New())
	_, err := b.Dispatch(context.Background(), domain.NewAction("BOGUS", nil))
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestBus_TotalOrder(t *testing.T) {
	s := store.New()
	b := bus.New(s)
	rec := &recorder{st: s}
	b.Register(rec)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Dispatch(context.Background(), domain.NewAction(domain.AddFlashMessage, domain.FlashMessage{Message: "x"}))
		}()
	}
	wg.Wait()

	require.Len(t, rec.actions, 50)
	for i, a := range rec.actions {
		assert.Equal(t, uint64(i+1), a.Seq)
	}
}

func TestBus_Close(t *testing.T) {
	b := bus.New(store.New())
	b.Close()
	_, err := b.Dispatch(context.Background(), domain.NewAction(domain.Logout, nil))
	assert.ErrorIs(t, err, bus.ErrClosed)
}
