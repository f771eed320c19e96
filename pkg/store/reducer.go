package store

import (
	"fmt"

	"github.com/aretw0/transferdesk/pkg/domain"
)

type phase int

const (
	phaseRequest phase = iota
	phaseSuccess
	phaseFailure
)

type flowStep struct {
	flow  domain.Flow
	phase phase
}

// flowSteps maps every *_REQUEST/_SUCCESS/_FAILURE action to its status slot.
var flowSteps = map[domain.ActionType]flowStep{}

func registerFlow(f domain.Flow, req, ok, fail domain.ActionType) {
	flowSteps[req] = flowStep{f, phaseRequest}
	flowSteps[ok] = flowStep{f, phaseSuccess}
	flowSteps[fail] = flowStep{f, phaseFailure}
}

func init() {
	registerFlow(domain.FlowRegister, domain.RegisterRequest, domain.RegisterSuccess, domain.RegisterFailure)
	registerFlow(domain.FlowActivate, domain.ActivateRequest, domain.ActivateSuccess, domain.ActivateFailure)
	registerFlow(domain.FlowRequestReset, domain.RequestResetRequest, domain.RequestResetSuccess, domain.RequestResetFailure)
	registerFlow(domain.FlowResetPassword, domain.ResetPasswordRequest, domain.ResetPasswordSuccess, domain.ResetPasswordFailure)
	registerFlow(domain.FlowValidateTFA, domain.ValidateTFARequest, domain.ValidateTFASuccess, domain.ValidateTFAFailure)
	registerFlow(domain.FlowUserList, domain.UserListRequest, domain.UserListSuccess, domain.UserListFailure)
	registerFlow(domain.FlowUpdateUser, domain.UpdateUserRequest, domain.UpdateUserSuccess, domain.UpdateUserFailure)
	registerFlow(domain.FlowInviteUser, domain.InviteUserRequest, domain.InviteUserSuccess, domain.InviteUserFailure)
	registerFlow(domain.FlowCreateUser, domain.CreateUserRequest, domain.CreateUserSuccess, domain.CreateUserFailure)
	registerFlow(domain.FlowLoadUser, domain.LoadUserRequest, domain.LoadUserSuccess, domain.LoadUserFailure)
	registerFlow(domain.FlowEditUser, domain.EditUserRequest, domain.EditUserSuccess, domain.EditUserFailure)
	registerFlow(domain.FlowLoadTransferAccounts, domain.LoadTransferAccountsRequest, domain.LoadTransferAccountsSuccess, domain.LoadTransferAccountsFailure)
	registerFlow(domain.FlowEditTransferAccount, domain.EditTransferAccountRequest, domain.EditTransferAccountSuccess, domain.EditTransferAccountFailure)
}

// Known reports whether the store has a reduction for t.
func Known(t domain.ActionType) bool {
	if _, ok := flowSteps[t]; ok {
		return true
	}
	switch t {
	case domain.LoginRequest, domain.LoginSuccess, domain.LoginPartial, domain.LoginFailure,
		domain.Logout, domain.ReauthRequest,
		domain.UpdateUserList, domain.UpdateTransferAccounts, domain.UpdateCreditTransferList,
		domain.AddFlashMessage, domain.Navigate:
		return true
	}
	return false
}

// reduce applies a to s in place.
func (st *Store) reduce(s *State, a domain.Action) error {
	switch a.Type {
	case domain.LoginRequest:
		s.Auth = domain.StateAuthenticating
		s.Session.IsLoggingIn = true
		s.Requests[domain.FlowLogin] = domain.RequestStatus{IsRequesting: true}
		return nil

	case domain.ReauthRequest:
		s.Auth = domain.StateReauthenticating
		s.Session.IsLoggingIn = true
		return nil

	case domain.LoginSuccess:
		sess, err := domain.PayloadAs[domain.Session](a.Payload)
		if err != nil {
			return err
		}
		sess.IsLoggingIn = false
		sess.IsTFAPending = false
		s.Session = sess
		s.Auth = domain.StateLoggedIn
		s.Challenge = nil
		s.Requests[domain.FlowLogin] = domain.RequestStatus{Success: true}
		return nil

	case domain.LoginPartial:
		p, err := domain.PayloadAs[domain.LoginPartialPayload](a.Payload)
		if err != nil {
			return err
		}
		s.Session = domain.Session{IsTFAPending: true}
		s.Auth = domain.StateTfaPending
		s.Challenge = &p
		s.Requests[domain.FlowLogin] = domain.RequestStatus{}
		return nil

	case domain.LoginFailure:
		fe, err := domain.PayloadAs[domain.FlowError](a.Payload)
		if err != nil {
			return err
		}
		s.Session = domain.Session{}
		s.Auth = domain.StateLoggedOut
		s.Challenge = nil
		s.Requests[domain.FlowLogin] = domain.RequestStatus{Error: fe.Message}
		return nil

	case domain.Logout:
		s.Session = domain.Session{}
		s.Auth = domain.StateLoggedOut
		s.Challenge = nil
		delete(s.Requests, domain.FlowLogin)
		delete(s.Requests, domain.FlowValidateTFA)
		s.LogoutSeq = a.Seq
		return nil

	case domain.UpdateUserList, domain.UpdateTransferAccounts, domain.UpdateCreditTransferList:
		upd, err := domain.PayloadAs[domain.EntityUpdate](a.Payload)
		if err != nil {
			return err
		}
		entity := upd.Entity
		if entity == "" {
			entity = entityFor(a.Type)
		}
		table := s.Table(entity)
		if table == nil {
			return fmt.Errorf("%s: unknown entity %q", a.Type, entity)
		}
		table.Merge(upd.Records)
		return nil

	case domain.AddFlashMessage:
		msg, err := domain.PayloadAs[domain.FlashMessage](a.Payload)
		if err != nil {
			return err
		}
		s.Flash = append(s.Flash, msg)
		if over := len(s.Flash) - st.flashLimit; over > 0 {
			s.Flash = append([]domain.FlashMessage(nil), s.Flash[over:]...)
		}
		return nil

	case domain.Navigate:
		nav, err := domain.PayloadAs[domain.NavigatePayload](a.Payload)
		if err != nil {
			return err
		}
		s.Route = nav.Path
		return nil
	}

	step, ok := flowSteps[a.Type]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownAction, a.Type)
	}
	switch step.phase {
	case phaseRequest:
		s.Requests[step.flow] = domain.RequestStatus{IsRequesting: true}
	case phaseSuccess:
		s.Requests[step.flow] = domain.RequestStatus{Success: true}
	case phaseFailure:
		fe, err := domain.PayloadAs[domain.FlowError](a.Payload)
		if err != nil {
			return err
		}
		s.Requests[step.flow] = domain.RequestStatus{Error: fe.Message}
	}
	return nil
}

func entityFor(t domain.ActionType) domain.EntityType {
	switch t {
	case domain.UpdateUserList:
		return domain.EntityUsers
	case domain.UpdateTransferAccounts:
		return domain.EntityTransferAccounts
	}
	return domain.EntityCreditTransfers
}
