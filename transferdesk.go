package transferdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/aretw0/transferdesk/internal/keylock"
	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/internal/runtime"
	"github.com/aretw0/transferdesk/pkg/adapters/gateway"
	"github.com/aretw0/transferdesk/pkg/adapters/memory"
	"github.com/aretw0/transferdesk/pkg/bus"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/aretw0/transferdesk/pkg/session"
	"github.com/aretw0/transferdesk/pkg/store"
	"golang.org/x/time/rate"
)

// ErrNotStarted is returned by Dispatch before Start has finished.
var ErrNotStarted = errors.New("console not started")

// Console is the high-level entry point of the library. It wires the store,
// the dispatch bus, the orchestrator and the adapters around them.
type Console struct {
	store  *store.Store
	bus    *bus.Bus
	orch   *runtime.Orchestrator
	tokens *session.Manager
	gw     ports.Gateway

	started atomic.Bool

	// construction-time settings
	storage    ports.TokenStorage
	bridge     ports.NotificationBridge
	pushPath   string
	push       bool
	locker     ports.DistributedLocker
	httpClient *http.Client
	limit      rate.Limit
	burst      int
	flashLimit int
	hooks      domain.FlowHooks
	onWrite    func(string, ports.TokenSlot)
	logger     *slog.Logger
}

// Option defines a functional option for configuring the Console.
type Option func(*Console)

// WithGateway injects a custom API gateway, bypassing the HTTP client.
func WithGateway(gw ports.Gateway) Option {
	return func(c *Console) {
		c.gw = gw
	}
}

// WithTokenStorage sets where session tokens are persisted (default: in memory).
func WithTokenStorage(s ports.TokenStorage) Option {
	return func(c *Console) {
		c.storage = s
	}
}

// WithBridge sets the push-notification bridge.
func WithBridge(b ports.NotificationBridge) Option {
	return func(c *Console) {
		c.bridge = b
	}
}

// WithPushRegistration registers push channels through the API gateway at path
// (empty for the default) when no explicit bridge is set.
func WithPushRegistration(path string) Option {
	return func(c *Console) {
		c.push = true
		c.pushPath = path
	}
}

// WithDistributedLocker serializes token writes and entity edits across
// processes sharing the same storage.
func WithDistributedLocker(l ports.DistributedLocker) Option {
	return func(c *Console) {
		c.locker = l
	}
}

// WithHTTPClient sets the http.Client of the default gateway.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Console) {
		c.httpClient = hc
	}
}

// WithRateLimit caps the default gateway's request rate.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Console) {
		c.limit = limit
		c.burst = burst
	}
}

// WithFlashLimit sets how many flash messages the store keeps.
func WithFlashLimit(n int) Option {
	return func(c *Console) {
		c.flashLimit = n
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.FlowHooks) Option {
	return func(c *Console) {
		c.hooks = hooks
	}
}

// WithTokenWriteHook is called after every token store or remove.
func WithTokenWriteHook(fn func(op string, slot ports.TokenSlot)) Option {
	return func(c *Console) {
		c.onWrite = fn
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// New builds a Console talking to the API at baseURL.
// If WithGateway is provided, baseURL can be empty.
func New(baseURL string, opts ...Option) (*Console, error) {
	c := &Console{}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.NewNop()
	}

	if c.gw == nil {
		if baseURL == "" {
			return nil, fmt.Errorf("baseURL is required when no custom gateway is provided")
		}
		gwOpts := []gateway.Option{
			gateway.WithLogger(c.logger),
			gateway.WithCallHook(c.hooks.OnGatewayCall),
		}
		if c.httpClient != nil {
			gwOpts = append(gwOpts, gateway.WithHTTPClient(c.httpClient))
		}
		if c.limit > 0 {
			gwOpts = append(gwOpts, gateway.WithRateLimit(c.limit, c.burst))
		}
		c.gw = gateway.New(baseURL, gwOpts...)
	}

	if c.storage == nil {
		c.storage = memory.NewTokenStore()
	}
	if c.bridge == nil && c.push {
		c.bridge = gateway.NewBridge(c.gw, c.pushPath)
	}

	storeOpts := []store.Option{store.WithLogger(c.logger)}
	if c.flashLimit > 0 {
		storeOpts = append(storeOpts, store.WithFlashLimit(c.flashLimit))
	}
	c.store = store.New(storeOpts...)
	c.bus = bus.New(c.store, bus.WithLogger(c.logger), bus.WithActionHook(c.hooks.OnAction))

	sessOpts := []session.Option{session.WithLogger(c.logger)}
	lockOpts := []keylock.Option{keylock.WithLogger(c.logger)}
	if c.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(c.locker))
		lockOpts = append(lockOpts, keylock.WithLocker(c.locker))
	}
	if c.onWrite != nil {
		sessOpts = append(sessOpts, session.WithWriteHook(c.onWrite))
	}
	c.tokens = session.NewManager(c.storage, sessOpts...)

	runOpts := []runtime.Option{
		runtime.WithLogger(c.logger),
		runtime.WithHooks(c.hooks),
		runtime.WithKeyLocks(keylock.New(lockOpts...)),
	}
	if c.bridge != nil {
		runOpts = append(runOpts, runtime.WithBridge(c.bridge))
	}
	c.orch = runtime.New(c.bus, c.gw, c.tokens, runOpts...)

	return c, nil
}

// Start runs the silent session refresh and then accepts triggers. It returns
// the resulting state: LoggedIn when a stored token was still valid.
func (c *Console) Start(ctx context.Context) store.State {
	c.orch.Refresh(ctx)
	c.orch.Wait()
	c.started.Store(true)
	return c.store.Snapshot()
}

// Dispatch sends an action through the bus. Triggers start their flow in the
// background; use Wait or Subscribe to follow it. Only triggers and LOGOUT are
// accepted: outcomes are issued by flows, and anything else returns
// domain.ErrNotTrigger.
func (c *Console) Dispatch(ctx context.Context, a domain.Action) (domain.Action, error) {
	if !c.started.Load() {
		return a, ErrNotStarted
	}
	if store.Known(a.Type) && !a.Type.HostDispatchable() {
		return a, fmt.Errorf("%w: %s", domain.ErrNotTrigger, a.Type)
	}
	return c.bus.Dispatch(ctx, a)
}

// Send is Dispatch for a fresh action of type t.
func (c *Console) Send(ctx context.Context, t domain.ActionType, payload any) (domain.Action, error) {
	return c.Dispatch(ctx, domain.NewAction(t, payload))
}

// Do dispatches a trigger and waits for every flow to settle. Concurrent
// callers are safe; each returns once no flow is running.
func (c *Console) Do(ctx context.Context, t domain.ActionType, payload any) (store.State, error) {
	if _, err := c.Send(ctx, t, payload); err != nil {
		return c.store.Snapshot(), err
	}
	c.orch.Wait()
	return c.store.Snapshot(), nil
}

// State returns a snapshot of the current state.
func (c *Console) State() store.State {
	return c.store.Snapshot()
}

// Subscribe streams applied actions. See store.Store.Subscribe.
func (c *Console) Subscribe(buffer int) (<-chan store.Change, func()) {
	return c.store.Subscribe(buffer)
}

// Wait blocks until every in-flight flow has finished.
func (c *Console) Wait() {
	c.orch.Wait()
}

// BridgeErrors reports push registration failures.
func (c *Console) BridgeErrors() <-chan error {
	return c.orch.BridgeErrors()
}

// Tokens returns the session token manager.
func (c *Console) Tokens() *session.Manager {
	return c.tokens
}

// Close cancels in-flight flows, waits for them and stops accepting actions.
func (c *Console) Close() {
	c.orch.Close()
	c.bus.Close()
}
