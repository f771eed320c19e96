package runtime_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/transferdesk/internal/runtime"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditTransferAccount_MergesAndFlashes(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.dispatch(t, domain.UpdateTransferAccounts, domain.EntityUpdate{
		Entity:  domain.EntityTransferAccounts,
		Records: domain.Table{"5": {"id": 5, "name": "Corner Shop", "balance": 10}},
	})
	h.gw.on(http.MethodPut, "/transfer_account/5/",
		reply(http.StatusOK, `{"status":"success","message":"Account updated","data":{"transfer_account":{"id":5,"balance":250}}}`))

	h.dispatch(t, domain.EditTransferAccountRequest, domain.EditTransferAccountPayload{
		TransferAccountID: 5,
		Body:              domain.Record{"approve": true},
	})

	req := h.gw.lastCall(t, http.MethodPut, "/transfer_account/5/")
	assert.Equal(t, "T1", req.Token)
	assert.True(t, bodyField(t, req, "approve").Bool())

	snap := h.state()
	account := snap.TransferAccounts["5"]
	assert.Equal(t, "Corner Shop", account["name"])
	assert.EqualValues(t, 250, account["balance"])
	assert.True(t, snap.Request(domain.FlowEditTransferAccount).Success)
	require.NotEmpty(t, snap.Flash)
	assert.Equal(t, domain.FlashMessage{Message: "Account updated"}, snap.Flash[len(snap.Flash)-1])
}

func TestEditTransferAccount_FailureFlashes(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodPut, "/transfer_account/5/", failWith(http.StatusInternalServerError, ""))

	h.dispatch(t, domain.EditTransferAccountRequest, domain.EditTransferAccountPayload{TransferAccountID: 5})

	snap := h.state()
	assert.Equal(t, "Internal Server Error", snap.Request(domain.FlowEditTransferAccount).Error)
	require.Len(t, snap.Flash, 1)
	assert.Equal(t, domain.FlashMessage{Error: true, Message: "Internal Server Error"}, snap.Flash[0])
}

func TestEditTransferAccount_SerializesPerAccount(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	var inflight, peak int32
	h.gw.on(http.MethodPut, "/transfer_account/5/", func(ports.Request) (*ports.Response, error) {
		n := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return &ports.Response{StatusCode: http.StatusOK, Body: []byte(`{"status":"success"}`)}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.bus.Dispatch(context.Background(), domain.NewAction(domain.EditTransferAccountRequest,
				domain.EditTransferAccountPayload{TransferAccountID: 5, Body: domain.Record{"name": "x"}}))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	h.orch.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Len(t, h.gw.Calls(), 4) // login + three edits
}

func TestLoadTransferAccounts_NormalizesNestedEntities(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodGet, "/transfer_account/", reply(http.StatusOK, `{
		"status": "success",
		"data": {"transfer_accounts": [
			{"id": 3, "balance": 40, "primary_user": {"id": 8, "first_name": "Ann"},
			 "credit_sends": [{"id": 100, "transfer_amount": 5}], "credit_receives": []}
		]}
	}`))

	h.dispatch(t, domain.LoadTransferAccountsRequest, domain.LoadTransferAccountsPayload{AccountType: "vendor"})

	req := h.gw.lastCall(t, http.MethodGet, "/transfer_account/")
	assert.Equal(t, "vendor", req.Query.Get("account_type"))

	snap := h.state()
	require.Contains(t, snap.TransferAccounts, "3")
	assert.EqualValues(t, 8, snap.TransferAccounts["3"]["primary_user"])
	require.Contains(t, snap.Users, "8")
	assert.Equal(t, "Ann", snap.Users["8"]["first_name"])
	assert.Contains(t, snap.CreditTransfers, "100")
	assert.True(t, snap.Request(domain.FlowLoadTransferAccounts).Success)

	// The nested user is published before the account that points at it.
	assert.Less(t, h.log.lastIndex("action UPDATE_USER_LIST"), h.log.lastIndex("action UPDATE_TRANSFER_ACCOUNTS"))
}

func TestLoadTransferAccounts_RequiresSession(t *testing.T) {
	h := newHarness(t)

	h.dispatch(t, domain.LoadTransferAccountsRequest, domain.LoadTransferAccountsPayload{TransferAccountID: 3})

	assert.Empty(t, h.gw.Calls())
	snap := h.state()
	assert.Equal(t, domain.ErrNotAuthenticated.Error(), snap.Request(domain.FlowLoadTransferAccounts).Error)
	require.Len(t, snap.Flash, 1)
	assert.True(t, snap.Flash[0].Error)
}

func TestUpdateUser_ReloadsList(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodPut, "/auth/permissions/", reply(http.StatusOK, `{"status":"success","message":"Account status modified"}`))
	h.gw.on(http.MethodGet, "/auth/permissions/",
		reply(http.StatusOK, `{"admin_list":[{"id":7,"email":"admin@example.com","admin_tier":"superadmin"},{"id":8,"email":"view@example.com","admin_tier":"view"}]}`))

	h.dispatch(t, domain.UpdateUserRequest, domain.UpdateUserPayload{UserID: 8, AdminTier: "view"})

	put := h.gw.lastCall(t, http.MethodPut, "/auth/permissions/")
	assert.EqualValues(t, 8, bodyField(t, put, "user_id").Int())

	snap := h.state()
	assert.True(t, snap.Request(domain.FlowUpdateUser).Success)
	assert.True(t, snap.Request(domain.FlowUserList).Success)
	require.Contains(t, snap.Users, "8")
	assert.Equal(t, "view", snap.Users["8"]["admin_tier"])
	assert.Equal(t, -1, h.log.index("action USER_LIST_REQUEST"))
	assert.Less(t, h.log.index("call PUT /auth/permissions/"), h.log.index("call GET /auth/permissions/"))
}

func TestUserList_EmptyPublishesNothing(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodGet, "/auth/permissions/", reply(http.StatusOK, `{"status":"success","admin_list":[]}`))
	before := h.log.lastIndex("action UPDATE_USER_LIST")

	h.dispatch(t, domain.UserListRequest, nil)

	assert.True(t, h.state().Request(domain.FlowUserList).Success)
	assert.Equal(t, before, h.log.lastIndex("action UPDATE_USER_LIST"))
	assert.Contains(t, h.state().Users, "7")
}

func TestUpdateUser_DomainFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodPut, "/auth/permissions/", reply(http.StatusOK, `{"status":"fail","message":"Cannot modify own tier"}`))

	h.dispatch(t, domain.UpdateUserRequest, domain.UpdateUserPayload{UserID: 7, AdminTier: "view"})

	snap := h.state()
	assert.Equal(t, "Cannot modify own tier", snap.Request(domain.FlowUpdateUser).Error)
	assert.Equal(t, -1, h.log.index("call GET /auth/permissions/"))
	require.NotEmpty(t, snap.Flash)
	assert.True(t, snap.Flash[len(snap.Flash)-1].Error)
}

func TestInviteUser_NavigatesToSettings(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodPost, "/auth/permissions/", reply(http.StatusOK, `{"status":"success","message":"An invite has been sent!"}`))

	h.dispatch(t, domain.InviteUserRequest, domain.InviteUserPayload{Email: "new@example.com", Tier: "admin"})

	snap := h.state()
	assert.True(t, snap.Request(domain.FlowInviteUser).Success)
	assert.Equal(t, runtime.SettingsPath, snap.Route)
	require.NotEmpty(t, snap.Flash)
	assert.Equal(t, domain.FlashMessage{Message: "An invite has been sent!"}, snap.Flash[len(snap.Flash)-1])
}

func TestCreateAndLoadUser(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodPost, "/user/",
		reply(http.StatusOK, `{"status":"success","data":{"user":{"id":12,"first_name":"Bo"}}}`))
	h.gw.on(http.MethodGet, "/user/12/",
		reply(http.StatusOK, `{"status":"success","data":{"user":{"id":12,"last_name":"Li"}}}`))

	h.dispatch(t, domain.CreateUserRequest, domain.CreateUserPayload{Attributes: domain.Record{"first_name": "Bo"}})
	h.dispatch(t, domain.LoadUserRequest, domain.LoadUserPayload{UserID: 12})

	snap := h.state()
	assert.True(t, snap.Request(domain.FlowCreateUser).Success)
	assert.True(t, snap.Request(domain.FlowLoadUser).Success)
	assert.Equal(t, "Bo", snap.Users["12"]["first_name"])
	assert.Equal(t, "Li", snap.Users["12"]["last_name"])
}

func TestEditUser(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.gw.on(http.MethodPut, "/user/12/",
		reply(http.StatusOK, `{"status":"success","message":"User updated","data":{"user":{"id":12,"is_disabled":true}}}`))

	h.dispatch(t, domain.EditUserRequest, domain.EditUserPayload{UserID: 12, Body: domain.Record{"is_disabled": true}})

	snap := h.state()
	assert.True(t, snap.Request(domain.FlowEditUser).Success)
	assert.Equal(t, true, snap.Users["12"]["is_disabled"])
	require.NotEmpty(t, snap.Flash)
	assert.Equal(t, "User updated", snap.Flash[len(snap.Flash)-1].Message)
}

func TestFlowHooks(t *testing.T) {
	var (
		mu     sync.Mutex
		ended  []domain.FlowEvent
		starts int
	)
	h := newHarness(t, runtime.WithHooks(domain.FlowHooks{
		OnFlowStart: func(context.Context, *domain.FlowEvent) {
			mu.Lock()
			defer mu.Unlock()
			starts++
		},
		OnFlowEnd: func(_ context.Context, e *domain.FlowEvent) {
			mu.Lock()
			defer mu.Unlock()
			ended = append(ended, *e)
		},
	}))

	h.login(t)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ended, 1)
	assert.Equal(t, 1, starts)
	assert.Equal(t, domain.LoginRequest, ended[0].Trigger)
	assert.Equal(t, domain.OutcomeSuccess, ended[0].Outcome)
	assert.Empty(t, ended[0].Error)
}

func TestFlowPanicIsContained(t *testing.T) {
	var (
		mu       sync.Mutex
		outcomes []domain.Outcome
	)
	h := newHarness(t, runtime.WithHooks(domain.FlowHooks{
		OnFlowEnd: func(_ context.Context, e *domain.FlowEvent) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, e.Outcome)
		},
	}))
	h.login(t)
	h.gw.on(http.MethodGet, "/transfer_account/", func(ports.Request) (*ports.Response, error) {
		panic("boom")
	})

	h.dispatch(t, domain.LoadTransferAccountsRequest, nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.Outcome{domain.OutcomeSuccess, domain.OutcomeFailure}, outcomes)
}
