// Package runtime runs the effect orchestrator: one process per trigger
// action, each instance in its own goroutine, talking to the API gateway and
// feeding results back through the bus.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/transferdesk/internal/keylock"
	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/pkg/bus"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/normalize"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/aretw0/transferdesk/pkg/session"
)

// process drives one flow instance to completion. It dispatches its own
// outcome actions; the returned values only feed hooks and logs.
type process func(ctx context.Context, trigger domain.Action) (domain.Outcome, error)

// Orchestrator is the process manager. It observes the bus and never blocks it.
type Orchestrator struct {
	bus    *bus.Bus
	gw     ports.Gateway
	tokens *session.Manager
	bridge ports.NotificationBridge
	locks  *keylock.Set

	routes map[domain.ActionType]process

	ctx    context.Context
	cancel context.CancelFunc
	flows  *inflight

	bridgeErrs chan error
	hooks      domain.FlowHooks
	logger     *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithBridge enables push-notification registration after login.
func WithBridge(b ports.NotificationBridge) Option {
	return func(o *Orchestrator) {
		o.bridge = b
	}
}

// WithKeyLocks replaces the per-entity lock set (e.g. one backed by Redis).
func WithKeyLocks(l *keylock.Set) Option {
	return func(o *Orchestrator) {
		o.locks = l
	}
}

// WithHooks sets observability callbacks.
func WithHooks(h domain.FlowHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator and registers it on b.
func New(b *bus.Bus, gw ports.Gateway, tokens *session.Manager, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		bus:        b,
		gw:         gw,
		tokens:     tokens,
		ctx:        ctx,
		cancel:     cancel,
		flows:      newInflight(),
		bridgeErrs: make(chan error, 16),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.locks == nil {
		o.locks = keylock.New(keylock.WithLogger(o.logger))
	}

	o.routes = map[domain.ActionType]process{
		domain.LoginRequest:                o.login,
		domain.Logout:                      o.logoutCleanup,
		domain.LoginFailure:                o.logoutCleanup,
		domain.RegisterRequest:             o.register,
		domain.ActivateRequest:             o.activate,
		domain.RequestResetRequest:         o.requestReset,
		domain.ResetPasswordRequest:        o.resetPassword,
		domain.ValidateTFARequest:          o.validateTFA,
		domain.UserListRequest:             o.userList,
		domain.UpdateUserRequest:           o.updateUser,
		domain.InviteUserRequest:           o.inviteUser,
		domain.CreateUserRequest:           o.createUser,
		domain.LoadUserRequest:             o.loadUser,
		domain.EditUserRequest:             o.editUser,
		domain.LoadTransferAccountsRequest: o.loadTransferAccounts,
		domain.EditTransferAccountRequest:  o.editTransferAccount,
	}

	b.Register(o)
	return o
}

// Observe implements bus.Observer. Each matching action starts an
// independent instance; nothing is de-duplicated or cancelled.
func (o *Orchestrator) Observe(_ context.Context, a domain.Action) {
	p, ok := o.routes[a.Type]
	if !ok {
		return
	}
	o.flows.add()
	go o.run(a, p)
}

func (o *Orchestrator) run(trigger domain.Action, p process) {
	defer o.flows.done()

	ctx := o.ctx
	start := time.Now()
	ev := &domain.FlowEvent{Timestamp: start, Trigger: trigger.Type, ActionID: trigger.ID}
	if o.hooks.OnFlowStart != nil {
		o.hooks.OnFlowStart(ctx, ev)
	}

	outcome, err := o.safely(ctx, trigger, p)

	ev.Outcome = outcome
	ev.Duration = time.Since(start)
	if err != nil {
		ev.Error = domain.Normalize(err).Message
		o.logger.Info("flow failed", "trigger", trigger.Type, "action_id", trigger.ID, "error", err)
	} else {
		o.logger.Debug("flow finished", "trigger", trigger.Type, "action_id", trigger.ID, "outcome", outcome)
	}
	if o.hooks.OnFlowEnd != nil {
		o.hooks.OnFlowEnd(ctx, ev)
	}
}

// safely keeps a panicking flow from taking the process down.
func (o *Orchestrator) safely(ctx context.Context, trigger domain.Action, p process) (outcome domain.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("flow panicked", "trigger", trigger.Type, "panic", r)
			outcome, err = domain.OutcomeFailure, fmt.Errorf("flow %s panicked: %v", trigger.Type, r)
		}
	}()
	return p(ctx, trigger)
}

// Wait blocks until every in-flight flow and push registration has finished.
// It is safe to call from several goroutines while others dispatch; each
// caller returns once nothing is running, so it may also wait on flows it
// did not start.
func (o *Orchestrator) Wait() {
	o.flows.wait()
}

// Close cancels in-flight gateway calls and waits for flows to settle.
func (o *Orchestrator) Close() {
	o.cancel()
	o.flows.wait()
}

// BridgeErrors reports push registration failures. Errors are dropped when
// nobody drains the channel.
func (o *Orchestrator) BridgeErrors() <-chan error {
	return o.bridgeErrs
}

// put dispatches an outcome action. Dispatch failures are logged: the flow
// has nowhere else to report them.
func (o *Orchestrator) put(ctx context.Context, t domain.ActionType, payload any) {
	o.emit(ctx, domain.NewAction(t, payload))
}

func (o *Orchestrator) emit(ctx context.Context, a domain.Action) {
	if _, err := o.bus.Dispatch(ctx, a); err != nil {
		o.logger.Warn("dispatch from flow failed", "type", a.Type, "error", err)
	}
}

func (o *Orchestrator) flash(ctx context.Context, isErr bool, msg string) {
	if msg == "" {
		return
	}
	o.put(ctx, domain.AddFlashMessage, domain.FlashMessage{Error: isErr, Message: msg})
}

// fail publishes the normalized error on the flow's failure action and,
// when notify is set, as an error flash message.
func (o *Orchestrator) fail(ctx context.Context, failure domain.ActionType, err error, notify bool) (domain.Outcome, error) {
	fe := domain.Normalize(err)
	o.put(ctx, failure, fe)
	if notify {
		o.flash(ctx, true, fe.Message)
	}
	return domain.OutcomeFailure, err
}

// publish normalizes entity data and dispatches one update per populated type.
func (o *Orchestrator) publish(ctx context.Context, schema *normalize.Schema, in normalize.Input) error {
	res, err := normalize.Normalize(schema, in)
	if err != nil {
		return fmt.Errorf("failed to normalize %s: %w", schema.Entity, err)
	}
	if res.Empty() {
		o.logger.Debug("nothing to publish", "entity", schema.Entity)
		return nil
	}
	for _, a := range res.Actions() {
		o.emit(ctx, a)
	}
	return nil
}

// sessionToken returns the token for authenticated calls: the live session's
// token, or the persisted primary token.
func (o *Orchestrator) sessionToken(ctx context.Context) (string, error) {
	if tok := o.bus.Store().Snapshot().Session.AuthToken; tok != "" {
		return tok, nil
	}
	tok, err := o.tokens.Retrieve(ctx, ports.SlotPrimary)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", domain.ErrNotAuthenticated
	}
	return tok, nil
}

// authorized performs a call with the session token attached.
func (o *Orchestrator) authorized(ctx context.Context, req ports.Request) (*ports.Response, error) {
	tok, err := o.sessionToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Token = tok
	return o.gw.Do(ctx, req)
}

// registerPush runs the notification bridge without blocking the caller.
func (o *Orchestrator) registerPush(token string) {
	if o.bridge == nil || token == "" {
		return
	}
	o.flows.add()
	go func() {
		defer o.flows.done()
		if err := o.bridge.Register(o.ctx, token); err != nil {
			o.logger.Warn("push registration failed", "error", err)
			select {
			case o.bridgeErrs <- err:
			default:
			}
		}
	}()
}
