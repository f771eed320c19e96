package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/transferdesk/internal/keylock"
	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/pkg/ports"
)

// Tokens is the content of both slots. Empty means absent.
type Tokens struct {
	Primary string
	TFA     string
}

// Manager orchestrates token persistence.
type Manager struct {
	storage ports.TokenStorage
	locks   *keylock.Set
	locker  ports.DistributedLocker
	logger  *slog.Logger
	onWrite func(op string, slot ports.TokenSlot)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking of slots.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithWriteHook observes every completed Persist ("store") and Clear ("remove").
func WithWriteHook(fn func(op string, slot ports.TokenSlot)) Option {
	return func(m *Manager) {
		m.onWrite = fn
	}
}

// NewManager creates a Manager over storage.
func NewManager(storage ports.TokenStorage, opts ...Option) *Manager {
	m := &Manager{
		storage: storage,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	lockOpts := []keylock.Option{keylock.WithLogger(m.logger)}
	if m.locker != nil {
		lockOpts = append(lockOpts, keylock.WithLocker(m.locker))
	}
	m.locks = keylock.New(lockOpts...)
	return m
}

func lockKey(slot ports.TokenSlot) string {
	return "token:" + string(slot)
}

// Persist writes token to slot. It returns only once the write is durable.
func (m *Manager) Persist(ctx context.Context, slot ports.TokenSlot, token string) error {
	if token == "" {
		return fmt.Errorf("refusing to persist an empty %s token", slot)
	}
	return m.locks.Do(ctx, lockKey(slot), func(ctx context.Context) error {
		if err := m.storage.Store(ctx, slot, token); err != nil {
			return fmt.Errorf("failed to persist %s token: %w", slot, err)
		}
		m.wrote("store", slot)
		return nil
	})
}

// Retrieve reads slot. An empty slot yields "" and no error.
func (m *Manager) Retrieve(ctx context.Context, slot ports.TokenSlot) (string, error) {
	var token string
	err := m.locks.Do(ctx, lockKey(slot), func(ctx context.Context) error {
		var err error
		token, err = m.storage.Retrieve(ctx, slot)
		if errors.Is(err, ports.ErrTokenNotFound) {
			token, err = "", nil
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to retrieve %s token: %w", slot, err)
	}
	return token, nil
}

// Load reads both slots.
func (m *Manager) Load(ctx context.Context) (Tokens, error) {
	primary, err := m.Retrieve(ctx, ports.SlotPrimary)
	if err != nil {
		return Tokens{}, err
	}
	tfa, err := m.Retrieve(ctx, ports.SlotTFA)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Primary: primary, TFA: tfa}, nil
}

// Clear empties the given slots, or every slot when none is given.
// Clearing empty slots is a no-op. All slots are attempted even if one fails.
func (m *Manager) Clear(ctx context.Context, slots ...ports.TokenSlot) error {
	if len(slots) == 0 {
		slots = ports.Slots
	}
	var errs []error
	for _, slot := range slots {
		err := m.locks.Do(ctx, lockKey(slot), func(ctx context.Context) error {
			if err := m.storage.Remove(ctx, slot); err != nil {
				return fmt.Errorf("failed to clear %s token: %w", slot, err)
			}
			m.wrote("remove", slot)
			return nil
		})
		if err != nil {
			m.logger.Warn("token clear failed", "slot", slot, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) wrote(op string, slot ports.TokenSlot) {
	if m.onWrite != nil {
		m.onWrite(op, slot)
	}
}
