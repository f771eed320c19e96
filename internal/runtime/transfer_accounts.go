package runtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/normalize"
	"github.com/aretw0/transferdesk/pkg/ports"
)

const pathTransferAccount = "/transfer_account/"

func transferAccountPath(id int64) string {
	return fmt.Sprintf("%s%d/", pathTransferAccount, id)
}

func (o *Orchestrator) loadTransferAccounts(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.LoadTransferAccountsPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.LoadTransferAccountsFailure, err, true)
	}

	req := ports.Request{Method: http.MethodGet, Path: pathTransferAccount}
	if p.TransferAccountID > 0 {
		req.Path = transferAccountPath(p.TransferAccountID)
	}
	if p.AccountType != "" {
		req.Query = url.Values{"account_type": {p.AccountType}}
	}

	res, err := o.authorized(ctx, req)
	if err != nil {
		return o.fail(ctx, domain.LoadTransferAccountsFailure, err, true)
	}
	if err := o.publishData(ctx, res, normalize.TransferAccountSchema, "transfer_account", "transfer_accounts"); err != nil {
		return o.fail(ctx, domain.LoadTransferAccountsFailure, err, true)
	}

	o.put(ctx, domain.LoadTransferAccountsSuccess, domain.FlowResult{Message: res.Message()})
	return domain.OutcomeSuccess, nil
}

// editTransferAccount holds the account's lock for the round trip, so two
// edits of one account apply in the order they reach the server.
func (o *Orchestrator) editTransferAccount(ctx context.Context, trigger domain.Action) (domain.Outcome, error) {
	p, err := domain.PayloadAs[domain.EditTransferAccountPayload](trigger.Payload)
	if err != nil {
		return o.fail(ctx, domain.EditTransferAccountFailure, err, true)
	}

	var res *ports.Response
	err = o.locks.Do(ctx, entityLockKey(domain.EntityTransferAccounts, p.TransferAccountID), func(ctx context.Context) error {
		var err error
		res, err = o.authorized(ctx, ports.Request{
			Method: http.MethodPut,
			Path:   transferAccountPath(p.TransferAccountID),
			Body:   p.Body,
		})
		if err != nil {
			return err
		}
		return o.publishData(ctx, res, normalize.TransferAccountSchema, "transfer_account", "transfer_accounts")
	})
	if err != nil {
		return o.fail(ctx, domain.EditTransferAccountFailure, err, true)
	}

	o.put(ctx, domain.EditTransferAccountSuccess, domain.FlowResult{Message: res.Message()})
	o.flash(ctx, false, res.Message())
	return domain.OutcomeSuccess, nil
}
