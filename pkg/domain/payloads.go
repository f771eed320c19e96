package domain

import (
	"regexp"
	"strings"
)

// Expiry intervals accepted by the TFA endpoint.
const (
	TFARememberInterval  = 9999
	TFASingleUseInterval = 1
)

// MinPasswordLength mirrors the server-side rule so that obviously short
// passwords never reach the network.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$")

// LoginCredentials is the LOGIN_REQUEST payload.
type LoginCredentials struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
}

func (p LoginCredentials) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return &ValidationError{Field: "username", Message: "Please enter your email"}
	}
	if p.Password == "" {
		return &ValidationError{Field: "password", Message: "Please enter your password"}
	}
	return nil
}

// RegisterPayload is the REGISTER_REQUEST payload.
// ConfirmPassword is optional; when set it must match Password.
type RegisterPayload struct {
	Username        string `json:"username" mapstructure:"username"`
	Password        string `json:"password" mapstructure:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty" mapstructure:"confirm_password"`
}

func (p RegisterPayload) Validate() error {
	if p.Username == "" {
		return &ValidationError{Field: "username", Message: "Please enter your email"}
	}
	if !emailPattern.MatchString(p.Username) {
		return &ValidationError{Field: "username", Message: "Please enter a valid email"}
	}
	if p.Password == "" {
		return &ValidationError{Field: "password", Message: "Please enter a password"}
	}
	if len(p.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters long"}
	}
	if p.ConfirmPassword != "" && p.ConfirmPassword != p.Password {
		return &ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	return nil
}

// ActivatePayload is the ACTIVATE_REQUEST payload.
type ActivatePayload struct {
	ActivationToken string `json:"activation_token" mapstructure:"activation_token"`
}

func (p ActivatePayload) Validate() error {
	if p.ActivationToken == "" {
		return &ValidationError{Field: "activation_token", Message: "Provide a valid activation token"}
	}
	return nil
}

// ResetEmailPayload is the REQUEST_RESET_REQUEST payload.
type ResetEmailPayload struct {
	Email string `json:"email" mapstructure:"email"`
}

func (p ResetEmailPayload) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return &ValidationError{Field: "email", Message: "Please enter your email"}
	}
	return nil
}

// ResetPasswordPayload is the RESET_PASSWORD_REQUEST payload.
type ResetPasswordPayload struct {
	NewPassword        string `json:"new_password" mapstructure:"new_password"`
	ResetPasswordToken string `json:"reset_password_token,omitempty" mapstructure:"reset_password_token"`
	OldPassword        string `json:"old_password,omitempty" mapstructure:"old_password"`
}

func (p ResetPasswordPayload) Validate() error {
	if len(p.NewPassword) < MinPasswordLength {
		return &ValidationError{Field: "new_password", Message: "Password must be at least 6 characters long"}
	}
	if p.ResetPasswordToken == "" && p.OldPassword == "" {
		return &ValidationError{Field: "reset_password_token", Message: "Missing token."}
	}
	return nil
}

// TFAPayload is the VALIDATE_TFA_REQUEST payload.
type TFAPayload struct {
	OTP            string `json:"otp" mapstructure:"otp"`
	ExpiryInterval int    `json:"otp_expiry_interval" mapstructure:"otp_expiry_interval"`
}

// NewTFAPayload picks the expiry interval from the "remember this computer" choice.
func NewTFAPayload(otp string, remember bool) TFAPayload {
	interval := TFASingleUseInterval
	if remember {
		interval = TFARememberInterval
	}
	return TFAPayload{OTP: otp, ExpiryInterval: interval}
}

func (p TFAPayload) Validate() error {
	if p.OTP == "" {
		return &ValidationError{Field: "otp", Message: "Please Enter a Validation Code"}
	}
	if len(p.OTP) < 6 {
		return &ValidationError{Field: "otp", Message: "Validation Code is 6 digits long"}
	}
	return nil
}

// UpdateUserPayload is the UPDATE_USER_REQUEST payload (admin permissions).
type UpdateUserPayload struct {
	UserID      int64  `json:"user_id" mapstructure:"user_id"`
	AdminTier   string `json:"admin_tier,omitempty" mapstructure:"admin_tier"`
	Deactivated *bool  `json:"deactivated,omitempty" mapstructure:"deactivated"`
}

func (p UpdateUserPayload) Validate() error {
	if p.UserID <= 0 {
		return &ValidationError{Field: "user_id", Message: "User not found"}
	}
	return nil
}

// InviteUserPayload is the INVITE_USER_REQUEST payload.
type InviteUserPayload struct {
	Email string `json:"email" mapstructure:"email"`
	Tier  string `json:"tier" mapstructure:"tier"`
}

func (p InviteUserPayload) Validate() error {
	if p.Email == "" || p.Tier == "" {
		return &ValidationError{Field: "email", Message: "No email or tier provided"}
	}
	return nil
}

// CreateUserPayload is the CREATE_USER_REQUEST payload. Attributes are sent
// verbatim, the server owns their schema.
type CreateUserPayload struct {
	Attributes Record `json:"attributes" mapstructure:"attributes"`
}

// LoadUserPayload is the LOAD_USER_REQUEST payload. A zero UserID loads the list.
type LoadUserPayload struct {
	UserID      int64  `json:"user_id,omitempty" mapstructure:"user_id"`
	AccountType string `json:"account_type,omitempty" mapstructure:"account_type"`
}

// EditUserPayload is the EDIT_USER_REQUEST payload.
type EditUserPayload struct {
	UserID int64  `json:"user_id" mapstructure:"user_id"`
	Body   Record `json:"body" mapstructure:"body"`
}

func (p EditUserPayload) Validate() error {
	if p.UserID <= 0 {
		return &ValidationError{Field: "user_id", Message: "User not found"}
	}
	return nil
}

// LoadTransferAccountsPayload is the LOAD_TRANSFER_ACCOUNTS_REQUEST payload.
// A zero TransferAccountID loads the (optionally filtered) list.
type LoadTransferAccountsPayload struct {
	TransferAccountID int64  `json:"transfer_account_id,omitempty" mapstructure:"transfer_account_id"`
	AccountType       string `json:"account_type,omitempty" mapstructure:"account_type"`
}

// EditTransferAccountPayload is the EDIT_TRANSFER_ACCOUNT_REQUEST payload.
type EditTransferAccountPayload struct {
	TransferAccountID int64  `json:"transfer_account_id" mapstructure:"transfer_account_id"`
	Body              Record `json:"body" mapstructure:"body"`
}

func (p EditTransferAccountPayload) Validate() error {
	if p.TransferAccountID <= 0 {
		return &ValidationError{Field: "transfer_account_id", Message: "Transfer account not found"}
	}
	return nil
}

// LoginPartialPayload describes a pending TFA challenge.
type LoginPartialPayload struct {
	Message    string `json:"message"`
	TFAURL     string `json:"tfa_url,omitempty"`
	TFAFailure bool   `json:"tfa_failure"`
}

// FlowResult is the payload of most *_SUCCESS actions.
type FlowResult struct {
	Message string `json:"message,omitempty"`
}

// EntityUpdate is the payload of UPDATE_* actions.
type EntityUpdate struct {
	Entity  EntityType `json:"entity"`
	Records Table      `json:"records"`
}

// FlashMessage is the ADD_FLASH_MESSAGE payload.
type FlashMessage struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// NavigatePayload is the NAVIGATE payload.
type NavigatePayload struct {
	Path string `json:"path"`
}

// TypedPayload converts a trigger payload into its typed form so that hosts
// may dispatch loosely typed JSON. Non-trigger actions are returned unchanged.
func TypedPayload(t ActionType, payload any) (any, error) {
	switch t {
	case LoginRequest:
		return PayloadAs[LoginCredentials](payload)
	case RegisterRequest:
		return PayloadAs[RegisterPayload](payload)
	case ActivateRequest:
		return PayloadAs[ActivatePayload](payload)
	case RequestResetRequest:
		return PayloadAs[ResetEmailPayload](payload)
	case ResetPasswordRequest:
		return PayloadAs[ResetPasswordPayload](payload)
	case ValidateTFARequest:
		return PayloadAs[TFAPayload](payload)
	case UpdateUserRequest:
		return PayloadAs[UpdateUserPayload](payload)
	case InviteUserRequest:
		return PayloadAs[InviteUserPayload](payload)
	case CreateUserRequest:
		return PayloadAs[CreateUserPayload](payload)
	case LoadUserRequest:
		return PayloadAs[LoadUserPayload](payload)
	case EditUserRequest:
		return PayloadAs[EditUserPayload](payload)
	case LoadTransferAccountsRequest:
		return PayloadAs[LoadTransferAccountsPayload](payload)
	case EditTransferAccountRequest:
		return PayloadAs[EditTransferAccountPayload](payload)
	}
	return payload, nil
}
