package domain

// AuthState is the position of the authentication state machine.
type AuthState string

const (
	StateLoggedOut        AuthState = "logged_out"
	StateAuthenticating   AuthState = "authenticating"
	StateTfaPending       AuthState = "tfa_pending"
	StateLoggedIn         AuthState = "logged_in"
	StateReauthenticating AuthState = "reauthenticating"
)

// Session is the process-wide record of the authenticated identity.
type Session struct {
	AuthToken    string `json:"auth_token,omitempty" mapstructure:"auth_token"`
	TFAToken     string `json:"tfa_token,omitempty" mapstructure:"tfa_auth_token"`
	UserID       int64  `json:"user_id,omitempty" mapstructure:"user_id"`
	VendorID     int64  `json:"vendor_id,omitempty" mapstructure:"vendor_id"`
	Email        string `json:"email,omitempty" mapstructure:"email"`
	AdminTier    string `json:"admin_tier,omitempty" mapstructure:"admin_tier"`
	IsLoggingIn  bool   `json:"is_logging_in"`
	IsTFAPending bool   `json:"is_tfa_pending"`
}

// Authenticated reports whether the session identifies a user.
func (s Session) Authenticated() bool {
	return s.UserID != 0
}

// Flow names a request status slot in the store.
type Flow string

const (
	FlowLogin                Flow = "login"
	FlowRegister             Flow = "register"
	FlowActivate             Flow = "activate"
	FlowRequestReset         Flow = "requestReset"
	FlowResetPassword        Flow = "resetPassword"
	FlowValidateTFA          Flow = "validateTFA"
	FlowUserList             Flow = "userList"
	FlowUpdateUser           Flow = "updateUser"
	FlowInviteUser           Flow = "inviteUser"
	FlowCreateUser           Flow = "createUser"
	FlowLoadUser             Flow = "loadUser"
	FlowEditUser             Flow = "editUser"
	FlowLoadTransferAccounts Flow = "loadTransferAccounts"
	FlowEditTransferAccount  Flow = "editTransferAccount"
)

// RequestStatus tracks one flow: idle → requesting → (success | failure),
// re-armable back to requesting.
type RequestStatus struct {
	IsRequesting bool   `json:"is_requesting"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// Idle reports whether the flow was never triggered.
func (r RequestStatus) Idle() bool {
	return !r.IsRequesting && !r.Success && r.Error == ""
}
