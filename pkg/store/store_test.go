package store_test

import (
	"testing"

	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, s *store.Store, typ domain.ActionType, payload any) {
	t.Helper()
	require.NoError(t, s.Apply(domain.NewAction(typ, payload)))
}

func TestStore_LoginLifecycle(t *testing.T) {
	s := store.New()
	assert.Equal(t, domain.StateLoggedOut, s.Snapshot().Auth)

	apply(t, s, domain.LoginRequest, domain.LoginCredentials{Username: "a@b.com", Password: "x"})
	snap := s.Snapshot()
	assert.Equal(t, domain.StateAuthenticating, snap.Auth)
	assert.True(t, snap.Request(domain.FlowLogin).IsRequesting)
	assert.True(t, snap.Session.IsLoggingIn)

	apply(t, s, domain.LoginSuccess, domain.Session{AuthToken: "T1", UserID: 7, AdminTier: "superadmin"})
	snap = s.Snapshot()
	assert.Equal(t, domain.StateLoggedIn, snap.Auth)
	assert.True(t, snap.Session.Authenticated())
	assert.Equal(t, int64(7), snap.Session.UserID)
	assert.False(t, snap.Session.IsLoggingIn)
	assert.Equal(t, domain.RequestStatus{Success: true}, snap.Request(domain.FlowLogin))

	apply(t, s, domain.Logout, nil)
	snap = s.Snapshot()
	assert.Equal(t, domain.StateLoggedOut, snap.Auth)
	assert.False(t, snap.Session.Authenticated())
	assert.Empty(t, snap.Session.AuthToken)
	assert.True(t, snap.Request(domain.FlowLogin).Idle())
}

func TestStore_RecordsLogoutSeq(t *testing.T) {
	s := store.New()
	assert.Zero(t, s.LogoutSeq())

	a := domain.NewAction(domain.LoginRequest, nil)
	a.Seq = 4
	require.NoError(t, s.Apply(a))
	assert.Zero(t, s.LogoutSeq())

	a = domain.NewAction(domain.Logout, nil)
	a.Seq = 5
	require.NoError(t, s.Apply(a))
	assert.Equal(t, uint64(5), s.LogoutSeq())
	assert.Equal(t, uint64(5), s.Snapshot().LogoutSeq)
}

func TestStore_TFAChallenge(t *testing.T) {
	s := store.New()
	apply(t, s, domain.LoginRequest, nil)
	apply(t, s, domain.LoginPartial, domain.LoginPartialPayload{Message: "scan", TFAURL: "https://x/tfa"})

	snap := s.Snapshot()
	assert.Equal(t, domain.StateTfaPending, snap.Auth)
	assert.False(t, snap.Session.Authenticated())
	assert.True(t, snap.Session.IsTFAPending)
	require.NotNil(t, snap.Challenge)
	assert.Equal(t, "https://x/tfa", snap.Challenge.TFAURL)

	apply(t, s, domain.ValidateTFARequest, domain.NewTFAPayload("123456", false))
	apply(t, s, domain.ValidateTFAFailure, domain.FlowError{Message: "Invalid code"})
	snap = s.Snapshot()
	assert.Equal(t, domain.StateTfaPending, snap.Auth, "failed validation keeps the challenge open")
	assert.Equal(t, "Invalid code", snap.Request(domain.FlowValidateTFA).Error)

	apply(t, s, domain.ValidateTFASuccess, domain.FlowResult{})
	apply(t, s, domain.LoginSuccess, domain.Session{UserID: 7, TFAToken: "T3"})
	snap = s.Snapshot()
	assert.Equal(t, domain.StateLoggedIn, snap.Auth)
	assert.Nil(t, snap.Challenge)
	assert.False(t, snap.Session.IsTFAPending)
}

func TestStore_LoginFailureClearsSession(t *testing.T) {
	s := store.New()
	apply(t, s, domain.LoginSuccess, domain.Session{AuthToken: "T1", UserID: 7})
	apply(t, s, domain.LoginFailure, domain.FlowError{Message: "Invalid username or password"})

	snap := s.Snapshot()
	assert.Equal(t, domain.StateLoggedOut, snap.Auth)
	assert.Zero(t, snap.Session.UserID)
	assert.Equal(t, "Invalid username or password", snap.Request(domain.FlowLogin).Error)
}

func TestStore_RequestStatusRearms(t *testing.T) {
	s := store.New()
	apply(t, s, domain.EditTransferAccountRequest, nil)
	apply(t, s, domain.EditTransferAccountFailure, map[string]any{"message": "boom"})
	assert.Equal(t, "boom", s.Snapshot().Request(domain.FlowEditTransferAccount).Error)

	apply(t, s, domain.EditTransferAccountRequest, nil)
	assert.Equal(t, domain.RequestStatus{IsRequesting: true}, s.Snapshot().Request(domain.FlowEditTransferAccount))

	apply(t, s, domain.EditTransferAccountSuccess, nil)
	assert.Equal(t, domain.RequestStatus{Success: true}, s.Snapshot().Request(domain.FlowEditTransferAccount))
}

func TestStore_EntityMerge(t *testing.T) {
	s := store.New()
	apply(t, s, domain.UpdateTransferAccounts, domain.EntityUpdate{
		Entity: domain.EntityTransferAccounts,
		Records: domain.Table{
			"1": {"id": float64(1), "balance": float64(10), "name": "Alice", "is_approved": true},
		},
	})
	apply(t, s, domain.UpdateTransferAccounts, domain.EntityUpdate{
		Records: domain.Table{"1": {"id": float64(1), "balance": float64(99)}},
	})

	rec := s.Snapshot().TransferAccounts["1"]
	assert.Equal(t, float64(99), rec["balance"])
	assert.Equal(t, "Alice", rec["name"])
	assert.Equal(t, true, rec["is_approved"])

	accounts, err := s.Snapshot().TransferAccountList()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, 99.0, accounts[0].Balance)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := store.New()
	apply(t, s, domain.UpdateUserList, domain.EntityUpdate{
		Entity:  domain.EntityUsers,
		Records: domain.Table{"7": {"id": float64(7), "email": "a@b.com"}},
	})

	snap := s.Snapshot()
	snap.Users["7"]["email"] = "mutated"
	delete(snap.Users, "7")

	assert.Equal(t, "a@b.com", s.Snapshot().Users["7"]["email"])
}

func TestStore_FlashLimit(t *testing.T) {
	s := store.New(store.WithFlashLimit(3))
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		apply(t, s, domain.AddFlashMessage, domain.FlashMessage{Message: m})
	}
	flash := s.Snapshot().Flash
	require.Len(t, flash, 3)
	assert.Equal(t, "c", flash[0].Message)
	assert.Equal(t, "e", flash[2].Message)
}

func TestStore_Navigate(t *testing.T) {
	s := store.New()
	apply(t, s, domain.Navigate, domain.NavigatePayload{Path: "/settings"})
	assert.Equal(t, "/settings", s.Snapshot().Route)
}

func TestStore_RejectsUnknownAndBadPayload(t *testing.T) {
	s := store.New()
	err := s.Apply(domain.NewAction("NOPE", nil))
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.False(t, store.Known("NOPE"))
	assert.True(t, store.Known(domain.InviteUserSuccess))

	err = s.Apply(domain.NewAction(domain.AddFlashMessage, "not an object"))
	assert.Error(t, err)
	assert.Empty(t, s.Snapshot().Flash)
}

func TestStore_Subscribe(t *testing.T) {
	s := store.New()
	ch, cancel := s.Subscribe(1)

	a := domain.NewAction(domain.Navigate, domain.NavigatePayload{Path: "/a"})
	a.Seq = 1
	require.NoError(t, s.Apply(a))
	// Buffer is full: this change is dropped instead of blocking Apply.
	b := domain.NewAction(domain.Navigate, domain.NavigatePayload{Path: "/b"})
	b.Seq = 2
	require.NoError(t, s.Apply(b))

	got := <-ch
	assert.Equal(t, uint64(1), got.Seq)
	assert.Equal(t, uint64(2), s.Snapshot().Seq)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestSortedIDs(t *testing.T) {
	ids := store.SortedIDs(domain.Table{"10": nil, "2": nil, "b": nil, "1": nil, "a": nil})
	assert.Equal(t, []string{"1", "2", "10", "a", "b"}, ids)
}
