// Package bus is the single ingress point for actions. It stamps each action,
// applies it to the store and then hands it to observers, in one total order.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/google/uuid"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("bus closed")

// Observer reacts to applied actions. Observe is called with the bus lock
// held: it must return quickly and must not dispatch synchronously.
type Observer interface {
	Observe(ctx context.Context, a domain.Action)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, a domain.Action)

func (f ObserverFunc) Observe(ctx context.Context, a domain.Action) { f(ctx, a) }

// Bus serializes every dispatch.
type Bus struct {
	mu        sync.Mutex
	store     *store.Store
	observers []Observer
	seq       uint64
	closed    bool

	logger *slog.Logger
	onAct  func(context.Context, *domain.Action)
	now    func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithActionHook is called for every applied action.
func WithActionHook(fn func(context.Context, *domain.Action)) Option {
	return func(b *Bus) {
		b.onAct = fn
	}
}

// New creates a bus feeding s.
func New(s *store.Store, opts ...Option) *Bus {
	b := &Bus{
		store:  s,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds an observer. Observers are called in registration order.
func (b *Bus) Register(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Store returns the store the bus feeds.
func (b *Bus) Store() *store.Store {
	return b.store
}

// Dispatch validates, stamps and applies the action, then notifies observers.
// Trigger payloads are converted to their typed form first; a payload that
// fails validation returns a *domain.ValidationError and nothing is dispatched.
func (b *Bus) Dispatch(ctx context.Context, a domain.Action) (domain.Action, error) {
	if !store.Known(a.Type) {
		return a, fmt.Errorf("%w: %s", domain.ErrUnknownAction, a.Type)
	}

	payload, err := domain.TypedPayload(a.Type, a.Payload)
	if err != nil {
		return a, &domain.ValidationError{Message: fmt.Sprintf("invalid %s payload: %v", a.Type, err)}
	}
	a.Payload = payload

	if v, ok := payload.(domain.Validator); ok && a.Type.IsTrigger() {
		if err := v.Validate(); err != nil {
			b.logger.Debug("action rejected by validation", "type", a.Type, "error", err)
			return a, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return a, ErrClosed
	}

	b.seq++
	a.Seq = b.seq
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.DispatchedAt = b.now()

	if err := b.store.Apply(a); err != nil {
		b.seq--
		return a, fmt.Errorf("failed to apply %s: %w", a.Type, err)
	}

	b.logger.Debug("action dispatched", "type", a.Type, "seq", a.Seq, "id", a.ID)
	if b.onAct != nil {
		b.onAct(ctx, &a)
	}
	for _, o := range b.observers {
		o.Observe(ctx, a)
	}
	return a, nil
}

// Close rejects further dispatches.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
