package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/normalize"
	"github.com/aretw0/transferdesk/pkg/ports"
)

// SettingsPath is where hosts should go after inviting an admin.
const SettingsPath = "/settings"

const pathUser = "/user/"

func userPath(id int64) string {
	return fmt.Sprintf("%s%d/", pathUser, id)
}

func entityLockKey(t domain.EntityType, id int64) string {
	return fmt.Sprintf("%s:%d", t, id)
}

// publishData normalizes the entities found under the reply's "data" wrapper.
// A reply without entities is not an error.
func (o *Orchestrator) publishData(ctx context.Context, res *ports.Response, schema *normalize.Schema, singular, plural string) error {
	data, err := res.Data()
	if err != nil {
		return err
	}
	in, err := normalize.FromData(data, singular, plural)
	if errors.Is(err, normalize.ErrNoEntities) {
		return nil
	}
	if err != nil {
		return err
	}
	return o.publish(ctx, schema, in)
}

// fetchAdmins loads the admin list and publishes it into the users table.
func (o *Orchestrator) fetchAdmins(ctx context.Context) (*ports.Response, error) {
	res, err := o.authorized(ctx, ports.Request{Method: http.MethodGet, Path: pathPermissions})
	if err != nil {
		return nil, err
	}
	admins, err := res.List("admin_list")
	if err != nil {
		return nil, err
	}
	if err := o.publish(ctx, normalize.UserSchema, normalize.Many(admins)); err != nil {
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) userList(ctx context.Context, _ domain.Action) (domain.Outcome, error) {
	res, err := o.fetchAdmins(ctx)
	if err != nil {
		return o.fail(ctx, domain.UserListFailure, err, true)
	}
	o.put(ctx, domain.UserListSuccess, domain.FlowResult{Message: res.Message()})
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) updateUser(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.UpdateUserPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.UpdateUserFailure, err, true)
	}

	var res *ports.Response
	err = o.locks.Do(ctx, entityLockKey(domain.EntityUsers, p.UserID), func(ctx context.Context) error {
		var err error
		res, err = o.authorized(ctx, ports.Request{Method: http.MethodPut, Path: pathPermissions, Body: p})
		if err != nil {
			return err
		}
		if !res.Succeeded() {
			return &domain.DomainError{Message: res.Message()}
		}
		return nil
	})
	if err != nil {
		return o.fail(ctx, domain.UpdateUserFailure, err, true)
	}
	o.put(ctx, domain.UpdateUserSuccess, domain.FlowResult{Message: res.Message()})

	// The list is reloaded and republished so hosts never refetch by hand.
	list, err := o.fetchAdmins(ctx)
	if err != nil {
		o.put(ctx, domain.UserListFailure, domain.Normalize(err))
		return domain.OutcomePartial, err
	}
	o.put(ctx, domain.UserListSuccess, domain.FlowResult{Message: list.Message()})
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) inviteUser(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.InviteUserPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.InviteUserFailure, err, true)
	}

	res, err := o.authorized(ctx, ports.Request{Method: http.MethodPost, Path: pathPermissions, Body: p})
	if err != nil {
		return o.fail(ctx, domain.InviteUserFailure, err, true)
	}

	o.put(ctx, domain.InviteUserSuccess, domain.FlowResult{Message: res.Message()})
	o.flash(ctx, false, res.Message())
	o.put(ctx, domain.Navigate, domain.NavigatePayload{Path: SettingsPath})
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) createUser(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.CreateUserPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.CreateUserFailure, err, true)
	}

	res, err := o.authorized(ctx, ports.Request{Method: http.MethodPost, Path: pathUser, Body: p.Attributes})
	if err != nil {
		return o.fail(ctx, domain.CreateUserFailure, err, true)
	}
	if err := o.publishData(ctx, res, normalize.UserSchema, "user", "users"); err != nil {
		return o.fail(ctx, domain.CreateUserFailure, err, true)
	}

	o.put(ctx, domain.CreateUserSuccess, domain.FlowResult{Message: res.Message()})
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) loadUser(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.LoadUserPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.LoadUserFailure, err, true)
	}

	req := ports.Request{Method: http.MethodGet, Path: pathUser}
	if p.UserID > 0 {
		req.Path = userPath(p.UserID)
	}
	if p.AccountType != "" {
		req.Query = url.Values{"account_type": {p.AccountType}}
	}

	res, err := o.authorized(ctx, req)
	if err != nil {
		return o.fail(ctx, domain.LoadUserFailure, err, true)
	}
	if err := o.publishData(ctx, res, normalize.UserSchema, "user", "users"); err != nil {
		return o.fail(ctx, domain.LoadUserFailure, err, true)
	}

	o.put(ctx, domain.LoadUserSuccess, domain.FlowResult{Message: res.Message()})
	return domain.OutcomeSuccess, nil
}

func (o *Orchestrator) editUser(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.EditUserPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.EditUserFailure, err, true)
	}

	var res *ports.Response
	err = o.locks.Do(ctx, entityLockKey(domain.EntityUsers, p.UserID), func(ctx context.Context) error {
		var err error
		res, err = o.authorized(ctx, ports.Request{Method: http.MethodPut, Path: userPath(p.UserID), Body: p.Body})
		if err != nil {
			return err
		}
		return o.publishData(ctx, res, normalize.UserSchema, "user", "users")
	})
	if err != nil {
		return o.fail(ctx, domain.EditUserFailure, err, true)
	}

	o.put(ctx, domain.EditUserSuccess, domain.FlowResult{Message: res.Message()})
	o.flash(ctx, false, res.Message())
	return domain.OutcomeSuccess, nil
}
