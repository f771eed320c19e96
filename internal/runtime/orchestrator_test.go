package runtime_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/aretw0/transferdesk/internal/runtime"
	"github.com/aretw0/transferdesk/pkg/adapters/memory"
	"github.com/aretw0/transferdesk/pkg/bus"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/aretw0/transferdesk/pkg/session"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// eventLog records storage writes, gateway calls and applied actions in the
// order they happened.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *eventLog) index(entry string) int {
	for i, e := range l.all() {
		if e == entry {
			return i
		}
	}
	return -1
}

func (l *eventLog) lastIndex(entry string) int {
	entries := l.all()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i] == entry {
			return i
		}
	}
	return -1
}

type route func(req ports.Request) (*ports.Response, error)

func reply(status int, body string) route {
	return func(ports.Request) (*ports.Response, error) {
		return &ports.Response{StatusCode: status, Body: []byte(body)}, nil
	}
}

func failWith(status int, serverMessage string) route {
	return func(ports.Request) (*ports.Response, error) {
		return nil, &domain.TransportError{
			StatusCode:    status,
			StatusText:    http.StatusText(status),
			ServerMessage: serverMessage,
		}
	}
}

// heldRoute answers with next once released, so a test can act while the
// call is in flight.
type heldRoute struct {
	entered chan struct{}
	release chan struct{}
	next    route
}

func hold(next route) *heldRoute {
	return &heldRoute{entered: make(chan struct{}), release: make(chan struct{}), next: next}
}

func (r *heldRoute) route(req ports.Request) (*ports.Response, error) {
	close(r.entered)
	<-r.release
	return r.next(req)
}

type fakeGateway struct {
	mu     sync.Mutex
	routes map[string]route
	calls  []ports.Request
	log    *eventLog
}

func (g *fakeGateway) on(method, path string, r route) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[method+" "+path] = r
}

func (g *fakeGateway) Do(_ context.Context, req ports.Request) (*ports.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	r := g.routes[req.Method+" "+req.Path]
	g.mu.Unlock()

	g.log.add("call %s %s", req.Method, req.Path)
	if r == nil {
		return nil, &domain.TransportError{StatusCode: http.StatusNotFound, StatusText: "Not Found"}
	}
	return r(req)
}

func (g *fakeGateway) Calls() []ports.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.Request(nil), g.calls...)
}

func (g *fakeGateway) lastCall(t *testing.T, method, path string) ports.Request {
	t.Helper()
	calls := g.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method && calls[i].Path == path {
			return calls[i]
		}
	}
	t.Fatalf("no %s %s call recorded", method, path)
	return ports.Request{}
}

// spyStorage is an in-memory token storage that logs every write.
type spyStorage struct {
	inner *memory.TokenStore
	log   *eventLog
}

func (s *spyStorage) Store(ctx context.Context, slot ports.TokenSlot, token string) error {
	s.log.add("store %s %s", slot, token)
	return s.inner.Store(ctx, slot, token)
}

func (s *spyStorage) Retrieve(ctx context.Context, slot ports.TokenSlot) (string, error) {
	return s.inner.Retrieve(ctx, slot)
}

func (s *spyStorage) Remove(ctx context.Context, slot ports.TokenSlot) error {
	s.log.add("remove %s", slot)
	return s.inner.Remove(ctx, slot)
}

type fakeBridge struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (b *fakeBridge) Register(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, token)
	return b.err
}

func (b *fakeBridge) Tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

const sessionWithoutToken = "violation: session without stored token"

type harness struct {
	bus     *bus.Bus
	orch    *runtime.Orchestrator
	gw      *fakeGateway
	storage *spyStorage
	log     *eventLog
}

func newHarness(t *testing.T, opts ...runtime.Option) *harness {
	t.Helper()
	log := &eventLog{}
	h := &harness{
		gw:      &fakeGateway{routes: map[string]route{}, log: log},
		storage: &spyStorage{inner: memory.NewTokenStore(), log: log},
		log:     log,
	}
	h.bus = bus.New(store.New(), bus.WithActionHook(func(_ context.Context, a *domain.Action) {
		log.add("action %s", a.Type)
		if a.Type != domain.LoginSuccess {
			return
		}
		// A published session always has a durable token behind it.
		if tok, err := h.storage.inner.Retrieve(context.Background(), ports.SlotPrimary); err != nil || tok == "" {
			log.add(sessionWithoutToken)
		}
	}))
	h.orch = runtime.New(h.bus, h.gw, session.NewManager(h.storage), opts...)
	t.Cleanup(func() {
		h.orch.Close()
		assert.Equal(t, -1, log.index(sessionWithoutToken), "LOGIN_SUCCESS applied with an empty primary slot")
	})
	return h
}

// dispatch sends an action and waits for every flow it started to settle.
func (h *harness) dispatch(t *testing.T, typ domain.ActionType, payload any) {
	t.Helper()
	_, err := h.bus.Dispatch(context.Background(), domain.NewAction(typ, payload))
	require.NoError(t, err)
	h.orch.Wait()
}

// send dispatches without waiting for the flow it starts.
func (h *harness) send(t *testing.T, typ domain.ActionType, payload any) {
	t.Helper()
	_, err := h.bus.Dispatch(context.Background(), domain.NewAction(typ, payload))
	require.NoError(t, err)
}

func (h *harness) state() store.State {
	return h.bus.Store().Snapshot()
}

func (h *harness) token(t *testing.T, slot ports.TokenSlot) string {
	t.Helper()
	tok, err := h.storage.inner.Retrieve(context.Background(), slot)
	if err != nil {
		require.ErrorIs(t, err, ports.ErrTokenNotFound)
		return ""
	}
	return tok
}

func (h *harness) seedToken(t *testing.T, slot ports.TokenSlot, token string) {
	t.Helper()
	require.NoError(t, h.storage.inner.Store(context.Background(), slot, token))
}

const loginOK = `{"status":"success","message":"Successfully logged in.","auth_token":"T1","user_id":7,"email":"admin@example.com","admin_tier":"superadmin"}`

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.gw.on(http.MethodPost, "/auth/request_api_token/", reply(http.StatusOK, loginOK))
	h.dispatch(t, domain.LoginRequest, domain.LoginCredentials{Username: "admin@example.com", Password: "secret"})
	require.Equal(t, domain.StateLoggedIn, h.state().Auth)
}

// bodyField reads a field of the JSON encoding of a recorded request body.
func bodyField(t *testing.T, req ports.Request, path string) gjson.Result {
	t.Helper()
	raw, err := json.Marshal(req.Body)
	require.NoError(t, err)
	return gjson.GetBytes(raw, path)
}
