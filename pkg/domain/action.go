package domain

import (
	"strings"
	"time"
)

// ActionType names an entry of the action catalog.
type ActionType string

// Action is the single message kind that flows through the dispatch bus.
// Triggers are issued by hosts, everything else is issued by orchestrator
// processes. The store applies every action; processes only react to triggers.
type Action struct {
	// ID is a correlation id assigned by the bus at ingress.
	ID string `json:"id,omitempty"`

	// Seq is the position of the action in the dispatch order.
	Seq uint64 `json:"seq,omitempty"`

	Type    ActionType `json:"type"`
	Payload any        `json:"payload,omitempty"`

	// DispatchedAt is stamped by the bus.
	DispatchedAt time.Time `json:"dispatched_at,omitempty"`
}

// NewAction builds an action of the given type.
func NewAction(t ActionType, payload any) Action {
	return Action{Type: t, Payload: payload}
}

// IsTrigger reports whether the action starts a flow.
func (t ActionType) IsTrigger() bool {
	return strings.HasSuffix(string(t), "_REQUEST") && t != ReauthRequest
}

// HostDispatchable reports whether hosts may dispatch t: triggers and LOGOUT.
// Outcomes and REAUTH_REQUEST are issued by flows only.
func (t ActionType) HostDispatchable() bool {
	return t.IsTrigger() || t == Logout
}

// Authentication catalog.
const (
	LoginRequest ActionType = "LOGIN_REQUEST"
	LoginSuccess ActionType = "LOGIN_SUCCESS"
	// LoginPartial means the credentials were accepted but a TFA challenge is pending.
	LoginPartial ActionType = "LOGIN_PARTIAL"
	LoginFailure ActionType = "LOGIN_FAILURE"
	Logout       ActionType = "LOGOUT"

	// ReauthRequest marks the boot-time silent refresh. It is published by the
	// orchestrator itself, never by hosts.
	ReauthRequest ActionType = "REAUTH_REQUEST"

	RegisterRequest ActionType = "REGISTER_REQUEST"
	RegisterSuccess ActionType = "REGISTER_SUCCESS"
	RegisterFailure ActionType = "REGISTER_FAILURE"

	ActivateRequest ActionType = "ACTIVATE_REQUEST"
	ActivateSuccess ActionType = "ACTIVATE_SUCCESS"
	ActivateFailure ActionType = "ACTIVATE_FAILURE"

	RequestResetRequest ActionType = "REQUEST_RESET_REQUEST"
	RequestResetSuccess ActionType = "REQUEST_RESET_SUCCESS"
	RequestResetFailure ActionType = "REQUEST_RESET_FAILURE"

	ResetPasswordRequest ActionType = "RESET_PASSWORD_REQUEST"
	ResetPasswordSuccess ActionType = "RESET_PASSWORD_SUCCESS"
	ResetPasswordFailure ActionType = "RESET_PASSWORD_FAILURE"

	ValidateTFARequest ActionType = "VALIDATE_TFA_REQUEST"
	ValidateTFASuccess ActionType = "VALIDATE_TFA_SUCCESS"
	ValidateTFAFailure ActionType = "VALIDATE_TFA_FAILURE"
)

// Admin user catalog.
const (
	UserListRequest ActionType = "USER_LIST_REQUEST"
	UserListSuccess ActionType = "USER_LIST_SUCCESS"
	UserListFailure ActionType = "USER_LIST_FAILURE"

	UpdateUserRequest ActionType = "UPDATE_USER_REQUEST"
	UpdateUserSuccess ActionType = "UPDATE_USER_SUCCESS"
	UpdateUserFailure ActionType = "UPDATE_USER_FAILURE"

	InviteUserRequest ActionType = "INVITE_USER_REQUEST"
	InviteUserSuccess ActionType = "INVITE_USER_SUCCESS"
	InviteUserFailure ActionType = "INVITE_USER_FAILURE"

	CreateUserRequest ActionType = "CREATE_USER_REQUEST"
	CreateUserSuccess ActionType = "CREATE_USER_SUCCESS"
	CreateUserFailure ActionType = "CREATE_USER_FAILURE"

	LoadUserRequest ActionType = "LOAD_USER_REQUEST"
	LoadUserSuccess ActionType = "LOAD_USER_SUCCESS"
	LoadUserFailure ActionType = "LOAD_USER_FAILURE"

	EditUserRequest ActionType = "EDIT_USER_REQUEST"
	EditUserSuccess ActionType = "EDIT_USER_SUCCESS"
	EditUserFailure ActionType = "EDIT_USER_FAILURE"
)

// Transfer account catalog.
const (
	LoadTransferAccountsRequest ActionType = "LOAD_TRANSFER_ACCOUNTS_REQUEST"
	LoadTransferAccountsSuccess ActionType = "LOAD_TRANSFER_ACCOUNTS_SUCCESS"
	LoadTransferAccountsFailure ActionType = "LOAD_TRANSFER_ACCOUNTS_FAILURE"

	EditTransferAccountRequest ActionType = "EDIT_TRANSFER_ACCOUNT_REQUEST"
	EditTransferAccountSuccess ActionType = "EDIT_TRANSFER_ACCOUNT_SUCCESS"
	EditTransferAccountFailure ActionType = "EDIT_TRANSFER_ACCOUNT_FAILURE"
)

// Entity updates, notifications and navigation.
const (
	UpdateUserList           ActionType = "UPDATE_USER_LIST"
	UpdateTransferAccounts   ActionType = "UPDATE_TRANSFER_ACCOUNTS"
	UpdateCreditTransferList ActionType = "UPDATE_CREDIT_TRANSFER_LIST"
	AddFlashMessage          ActionType = "ADD_FLASH_MESSAGE"
	Navigate                 ActionType = "NAVIGATE"
)

// Validator is implemented by trigger payloads that can be checked
// before any network call is made.
type Validator interface {
	Validate() error
}

// PayloadAs returns the action payload as T. Typed payloads pass through;
// loosely typed ones (JSON objects from a host) are decoded.
func PayloadAs[T any](payload any) (T, error) {
	switch p := payload.(type) {
	case T:
		return p, nil
	case *T:
		if p != nil {
			return *p, nil
		}
	}
	var zero T
	if payload == nil {
		return zero, nil
	}
	return Decode[T](payload)
}
