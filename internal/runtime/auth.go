package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/ports"
)

// authLockKey serializes every flow that writes the token storage.
const authLockKey = "auth:tokens"

// Auth endpoints.
const (
	pathLogin       = "/auth/request_api_token/"
	pathRefresh     = "/auth/refresh_api_token/"
	pathLogout      = "/auth/logout/"
	pathRegister    = "/auth/register/"
	pathActivate    = "/auth/activate/"
	pathResetEmail  = "/auth/request_reset_email/"
	pathResetPass   = "/auth/reset_password/"
	pathTFA         = "/auth/tfa/"
	pathPermissions = "/auth/permissions/"
)

// userFields are copied from an auth reply into the users table.
var userFields = []string{"email", "admin_tier", "first_name", "last_name"}

// sessionFrom derives the session published on LOGIN_SUCCESS.
func sessionFrom(res *ports.Response, token string) (domain.Session, error) {
	body, err := res.Object("")
	if err != nil {
		return domain.Session{}, err
	}
	sess, err := domain.Decode[domain.Session](body)
	if err != nil {
		return domain.Session{}, err
	}
	sess.AuthToken = token
	return sess, nil
}

// userFrom builds the logged-in user's record out of an auth reply.
func userFrom(res *ports.Response) (domain.Record, bool) {
	body, err := res.Object("")
	if err != nil {
		return nil, false
	}
	id, ok := body["user_id"]
	if !ok || id == nil {
		return nil, false
	}
	rec := domain.Record{domain.KeyID: id}
	for _, k := range userFields {
		if v, ok := body[k]; ok {
			rec[k] = v
		}
	}
	return rec, true
}

// loggedOutSince reports whether a LOGOUT was applied after trigger. A flow
// that obtained a token in the meantime drops it rather than undo the logout.
func (o *Orchestrator) loggedOutSince(trigger domain.Action) bool {
	if o.bus.Store().LogoutSeq() <= trigger.Seq {
		return false
	}
	o.logger.Debug("auth result dropped after logout", "trigger", trigger.Type, "action_id", trigger.ID)
	return true
}

// establish publishes an authenticated session. The token it carries must
// already be persisted.
func (o *Orchestrator) establish(ctx context.Context, res *ports.Response, token string) error {
	sess, err := sessionFrom(res, token)
	if err != nil {
		return fmt.Errorf("failed to derive session: %w", err)
	}
	if !sess.Authenticated() {
		return &domain.DomainError{Message: "Login response did not identify a user"}
	}
	if rec, ok := userFrom(res); ok {
		if key, ok := rec.ID(); ok {
			o.put(ctx, domain.UpdateUserList, domain.EntityUpdate{
				Entity:  domain.EntityUsers,
				Records: domain.Table{key: rec},
			})
		}
	}
	o.put(ctx, domain.LoginSuccess, sess)
	o.registerPush(token)
	return nil
}

func (o *Orchestrator) login(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	creds, err := domain.PayloadAs[domain.LoginCredentials](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.LoginFailure, err, false)
	}

	var (
		outcome domain.Outcome
		flowErr error
	)
	if err := o.locks.Do(ctx, authLockKey, func(ctx context.Context) error {
		outcome, flowErr = o.requestToken(ctx, trigger, creds)
		return nil
	}); err != nil {
		return o.fail(ctx, domain.LoginFailure, err, false)
	}
	return outcome, flowErr
}

func (o *Orchestrator) requestToken(ctx context.Context, trigger domain.Action, creds domain.LoginCredentials) (domain.Outcome, error) {
	body := map[string]any{
		"username": creds.Username,
		"password": creds.Password,
	}
	// A remembered TFA token lets the server skip the challenge.
	if tfa, err := o.tokens.Retrieve(ctx, ports.SlotTFA); err != nil {
		o.logger.Warn("could not read tfa token", "error", err)
	} else if tfa != "" {
		body["tfa_token"] = tfa
	}

	res, err := o.gw.Do(ctx, ports.Request{Method: http.MethodPost, Path: pathLogin, Body: body})
	if o.loggedOutSince(trigger) {
		return domain.OutcomeRejected, nil
	}
	if err != nil {
		return o.fail(ctx, domain.LoginFailure, err, false)
	}

	token := res.Field("auth_token").String()
	switch {
	case res.Succeeded():
		if token == "" {
			return o.fail(ctx, domain.LoginFailure, &domain.DomainError{Message: "Login response carried no token"}, false)
		}
		if err := o.tokens.Persist(ctx, ports.SlotPrimary, token); err != nil {
			return o.fail(ctx, domain.LoginFailure, err, false)
		}
		if err := o.establish(ctx, res, token); err != nil {
			return o.fail(ctx, domain.LoginFailure, err, false)
		}
		return domain.OutcomeSuccess, nil

	case res.Challenged():
		if token != "" {
			if err := o.tokens.Persist(ctx, ports.SlotPrimary, token); err != nil {
				return o.fail(ctx, domain.LoginFailure, err, false)
			}
		}
		o.put(ctx, domain.LoginPartial, domain.LoginPartialPayload{
			Message:    res.Message(),
			TFAURL:     res.TFAURL(),
			TFAFailure: true,
		})
		return domain.OutcomePartial, nil
	}

	return o.fail(ctx, domain.LoginFailure, &domain.DomainError{Message: res.Message()}, false)
}

// Refresh is the boot-time silent re-authentication. It runs synchronously
// and never surfaces an error to the user: any failure logs out.
func (o *Orchestrator) Refresh(ctx context.Context) {
	o.flows.add()
	o.run(domain.NewAction(domain.ReauthRequest, nil), func(_ context.Context, _ domain.Action) (domain.Outcome, error) {
		var (
			outcome domain.Outcome
			flowErr error
		)
		if err := o.locks.Do(ctx, authLockKey, func(ctx context.Context) error {
			outcome, flowErr = o.refresh(ctx)
			return nil
		}); err != nil {
			o.put(ctx, domain.Logout, nil)
			return domain.OutcomeFailure, err
		}
		return outcome, flowErr
	})
}

func (o *Orchestrator) refresh(ctx context.Context) (domain.Outcome, error) {
	stored, err := o.tokens.Retrieve(ctx, ports.SlotPrimary)
	if err != nil || stored == "" {
		o.put(ctx, domain.Logout, nil)
		return domain.OutcomeRejected, err
	}

	o.put(ctx, domain.ReauthRequest, nil)

	err = func() error {
		res, err := o.gw.Do(ctx, ports.Request{Method: http.MethodGet, Path: pathRefresh, Token: stored})
		if err != nil {
			return err
		}
		token := res.Field("auth_token").String()
		if token == "" {
			return &domain.DomainError{Message: "Refresh response carried no token"}
		}
		if err := o.tokens.Persist(ctx, ports.SlotPrimary, token); err != nil {
			return err
		}
		return o.establish(ctx, res, token)
	}()
	if err == nil {
		return domain.OutcomeSuccess, nil
	}

	// Silent: the token goes, the user lands on the login form.
	if clearErr := o.tokens.Clear(ctx); clearErr != nil {
		err = errors.Join(err, clearErr)
	}
	o.put(ctx, domain.Logout, nil)
	return domain.OutcomeFailure, err
}

// logoutCleanup runs on LOGOUT and LOGIN_FAILURE. It clears every slot and,
// on an explicit logout, revokes the old token server-side on a best-effort basis.
func (o *Orchestrator) logoutCleanup(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	var revoke string
	err := o.locks.Do(ctx, authLockKey, func(ctx context.Context) error {
		if trigger.Type == domain.Logout {
			tok, err := o.tokens.Retrieve(ctx, ports.SlotPrimary)
			if err != nil {
				o.logger.Warn("could not read token before logout", "error", err)
			}
			revoke = tok
		}
		return o.tokens.Clear(ctx)
	})
	if err != nil {
		return domain.OutcomeFailure, err
	}

	if revoke != "" {
		if _, err := o.gw.Do(ctx, ports.Request{Method: http.MethodPost, Path: pathLogout, Token: revoke}); err != nil {
			o.logger.Debug("server-side logout failed", "error", err)
		}
	}
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) register(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.RegisterPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.RegisterFailure, err, false)
	}

	res, err := o.gw.Do(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   pathRegister,
		Body:   map[string]string{"email": p.Username, "password": p.Password},
	})
	if err != nil {
		return o.fail(ctx, domain.RegisterFailure, err, false)
	}
	if !res.Succeeded() {
		return o.fail(ctx, domain.RegisterFailure, &domain.DomainError{Message: res.Message()}, false)
	}

	o.put(ctx, domain.RegisterSuccess, domain.FlowResult{Message: res.Message()})
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) activate(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.ActivatePayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.ActivateFailure, err, false)
	}

	res, err := o.gw.Do(ctx, ports.Request{Method: http.MethodPost, Path: pathActivate, Body: p})
	if err != nil {
		return o.fail(ctx, domain.ActivateFailure, err, false)
	}

	o.put(ctx, domain.ActivateSuccess, domain.FlowResult{Message: res.Message()})

	token := res.Field("auth_token").String()
	if token == "" {
		return domain.OutcomeSuccess, nil
	}
	rejected := false
	err = o.locks.Do(ctx, authLockKey, func(ctx context.Context) error {
		if rejected = o.loggedOutSince(trigger); rejected {
			return nil
		}
		if err := o.tokens.Persist(ctx, ports.SlotPrimary, token); err != nil {
			return err
		}
		return o.establish(ctx, res, token)
	})
	if err != nil {
		o.logger.Warn("activated account could not be logged in", "error", err)
		return domain.OutcomePartial, err
	}
	if rejected {
		return domain.OutcomePartial, nil
	}
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) requestReset(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.ResetEmailPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.RequestResetFailure, err, false)
	}

	res, err := o.gw.Do(ctx, ports.Request{Method: http.MethodPost, Path: pathResetEmail, Body: p})
	if err != nil {
		return o.fail(ctx, domain.RequestResetFailure, err, false)
	}

	o.put(ctx, domain.RequestResetSuccess, domain.FlowResult{Message: res.Message()})
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) resetPassword(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.ResetPasswordPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.ResetPasswordFailure, err, false)
	}

	req := ports.Request{Method: http.MethodPost, Path: pathResetPass, Body: p}
	// Changing a known password is an authenticated call.
	if p.OldPassword != "" {
		if tok, err := o.sessionToken(ctx); err == nil {
			req.Token = tok
		}
	}

	res, err := o.gw.Do(ctx, req)
	if err != nil {
		return o.fail(ctx, domain.ResetPasswordFailure, err, false)
	}

	o.put(ctx, domain.ResetPasswordSuccess, domain.FlowResult{Message: res.Message()})
	o.put(ctx, domain.Logout, nil)
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) validateTFA(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.TFAPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.ValidateTFAFailure, err, false)
	}

	var (
		outcome domain.Outcome
		flowErr error
	)
	if err := o.locks.Do(ctx, authLockKey, func(ctx context.Context) error {
		outcome, flowErr = o.submitTFA(ctx, trigger, p)
		return nil
	}); err != nil {
		return o.fail(ctx, domain.ValidateTFAFailure, err, false)
	}
	return outcome, flowErr
}

func (o *Orchestrator) submitTFA(ctx context.Context, trigger domain.Action, p domain.TFAPayload) (domain.Outcome, error) {
	limited, err := o.tokens.Retrieve(ctx, ports.SlotPrimary)
	if err != nil {
		return o.fail(ctx, domain.ValidateTFAFailure, err, false)
	}
	if limited == "" {
		return o.fail(ctx, domain.ValidateTFAFailure, domain.ErrNotAuthenticated, false)
	}

	res, err := o.gw.Do(ctx, ports.Request{Method: http.MethodPost, Path: pathTFA, Body: p, Token: limited})
	if o.loggedOutSince(trigger) {
		return domain.OutcomeRejected, nil
	}
	if err != nil {
		return o.fail(ctx, domain.ValidateTFAFailure, err, false)
	}

	tfaToken := res.Field("tfa_auth_token").String()
	if tfaToken == "" {
		msg := res.Message()
		if msg == "" {
			msg = "Validation failed. Please try again."
		}
		return o.fail(ctx, domain.ValidateTFAFailure, &domain.DomainError{Message: msg}, false)
	}
	if err := o.tokens.Persist(ctx, ports.SlotTFA, tfaToken); err != nil {
		return o.fail(ctx, domain.ValidateTFAFailure, err, false)
	}

	o.put(ctx, domain.ValidateTFASuccess, domain.FlowResult{Message: res.Message()})

	// The reply carries a full session token; the primary slot keeps the
	// login token and the next login presents the TFA token instead.
	token := res.Field("auth_token").String()
	if token == "" {
		token = limited
	}
	if err := o.establish(ctx, res, token); err != nil {
		return o.fail(ctx, domain.ValidateTFAFailure, err, false)
	}
	return domain.OutcomeSuccess, nil
}
