package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// EntityType names an entity table.
type EntityType string

const (
	EntityUsers            EntityType = "users"
	EntityTransferAccounts EntityType = "transfer_accounts"
	EntityCreditTransfers  EntityType = "credit_transfers"
)

// KeyID is the field every entity record is keyed by.
const KeyID = "id"

// Record holds one entity's fields exactly as received from the API,
// with nested entities replaced by their ids.
type Record map[string]any

// Table is an entity table keyed by id.
type Table map[string]Record

// IDKey renders an id value as a table key. It accepts the numeric shapes
// produced by JSON decoders and plain strings.
func IDKey(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case json.Number:
		return id.String(), id != ""
	case float64:
		if math.Trunc(id) != id {
			return strconv.FormatFloat(id, 'f', -1, 64), true
		}
		return strconv.FormatInt(int64(id), 10), true
	case float32:
		return IDKey(float64(id))
	case int:
		return strconv.Itoa(id), true
	case int32:
		return strconv.FormatInt(int64(id), 10), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case uint64:
		return strconv.FormatUint(id, 10), true
	}
	return "", false
}

// ID returns the record's table key.
func (r Record) ID() (string, bool) {
	v, ok := r[KeyID]
	if !ok || v == nil {
		return "", false
	}
	return IDKey(v)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Overlay returns a copy of r with every field of in written over it.
// Fields absent from in are kept.
func (r Record) Overlay(in Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(in))
	}
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge shallow-merges incoming records into t by id.
func (t Table) Merge(in Table) {
	for id, rec := range in {
		if existing, ok := t[id]; ok {
			t[id] = existing.Overlay(rec)
			continue
		}
		t[id] = rec.Clone()
	}
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for id, rec := range t {
		out[id] = rec.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(Record(val).Clone())
	case Record:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

// User is a typed read view over a users record.
type User struct {
	ID          int64  `json:"id" mapstructure:"id"`
	Email       string `json:"email" mapstructure:"email"`
	FirstName   string `json:"first_name" mapstructure:"first_name"`
	LastName    string `json:"last_name" mapstructure:"last_name"`
	AdminTier   string `json:"admin_tier" mapstructure:"admin_tier"`
	IsActivated bool   `json:"is_activated" mapstructure:"is_activated"`
	IsDisabled  bool   `json:"is_disabled" mapstructure:"is_disabled"`
}

// TransferAccount is a typed read view over a transfer_accounts record.
// PrimaryUser is the id of the referenced user, not an owned copy.
type TransferAccount struct {
	ID                  int64   `json:"id" mapstructure:"id"`
	Name                string  `json:"name" mapstructure:"name"`
	Balance             float64 `json:"balance" mapstructure:"balance"`
	IsApproved          bool    `json:"is_approved" mapstructure:"is_approved"`
	IsVendor            bool    `json:"is_vendor" mapstructure:"is_vendor"`
	PayablePeriodType   string  `json:"payable_period_type" mapstructure:"payable_period_type"`
	PayablePeriodLength int     `json:"payable_period_length" mapstructure:"payable_period_length"`
	PayableEpoch        string  `json:"payable_epoch" mapstructure:"payable_epoch"`
	PrimaryUser         int64   `json:"primary_user" mapstructure:"primary_user"`
	BlockchainAddress   string  `json:"blockchain_address" mapstructure:"blockchain_address"`
}

// CreditTransfer is a typed read view over a credit_transfers record.
type CreditTransfer struct {
	ID                         int64   `json:"id" mapstructure:"id"`
	TransferType               string  `json:"transfer_type" mapstructure:"transfer_type"`
	TransferAmount             float64 `json:"transfer_amount" mapstructure:"transfer_amount"`
	TransferStatus             string  `json:"transfer_status" mapstructure:"transfer_status"`
	SenderTransferAccountID    int64   `json:"sender_transfer_account_id" mapstructure:"sender_transfer_account_id"`
	RecipientTransferAccountID int64   `json:"recipient_transfer_account_id" mapstructure:"recipient_transfer_account_id"`
}

// Decode maps a loosely typed value (a Record, a JSON object, an action payload)
// onto a typed struct. Numeric strings and floats are coerced.
func Decode[T any](input any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonNumberHook,
		),
	})
	if err != nil {
		return out, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return out, fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return out, nil
}

func jsonNumberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	return n.Float64()
}
