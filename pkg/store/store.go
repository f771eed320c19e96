package store

import (
	"log/slog"
	"sync"

	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/pkg/domain"
)

// Change is delivered to subscribers after an action has been applied.
type Change struct {
	Seq    uint64
	Action domain.Action
}

// Store holds the canonical application state. Apply is the only mutator.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state State

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int

	flashLimit int
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithFlashLimit sets how many flash messages are retained.
func WithFlashLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.flashLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty store in the logged-out state.
func New(opts ...Option) *Store {
	s := &Store{
		state:      newState(),
		subs:       make(map[int]chan Change),
		flashLimit: DefaultFlashLimit,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply reduces the action into the state and notifies subscribers.
// A rejected action leaves the state untouched.
func (s *Store) Apply(a domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reducers decode the payload before touching the state.
	if err := s.reduce(&s.state, a); err != nil {
		s.logger.Warn("action rejected by store", "type", a.Type, "error", err)
		return err
	}
	s.state.Seq = a.Seq

	// Published under the state lock so subscribers see changes in apply order.
	s.publish(Change{Seq: a.Seq, Action: a})
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// LogoutSeq returns the sequence number of the last applied LOGOUT, zero
// when there was none.
func (s *Store) LogoutSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LogoutSeq
}

// Subscribe returns a channel of changes and a function that cancels the
// subscription. Changes are dropped for a subscriber whose buffer is full;
// Apply never blocks on readers.
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- c:
		default:
			s.logger.Debug("subscriber lagging, change dropped", "subscriber", id, "seq", c.Seq)
		}
	}
}
