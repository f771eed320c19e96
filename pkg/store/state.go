package store

import (
	"sort"
	"strconv"

	"github.com/aretw0/transferdesk/pkg/domain"
)

// DefaultFlashLimit is how many flash messages the store keeps.
const DefaultFlashLimit = 20

// State is the canonical application state. Values returned by Store.Snapshot
// are deep copies and safe to keep.
type State struct {
	Seq     uint64           `json:"seq"`
	Auth    domain.AuthState `json:"auth"`
	Session domain.Session   `json:"session"`

	// Challenge is set while a TFA challenge is pending.
	Challenge *domain.LoginPartialPayload `json:"challenge,omitempty"`

	Users            domain.Table `json:"users"`
	TransferAccounts domain.Table `json:"transfer_accounts"`
	CreditTransfers  domain.Table `json:"credit_transfers"`

	Requests map[domain.Flow]domain.RequestStatus `json:"requests"`
	Flash    []domain.FlashMessage                `json:"flash"`

	// Route is the last path requested through NAVIGATE.
	Route string `json:"route,omitempty"`

	// LogoutSeq is the sequence number of the last LOGOUT applied.
	LogoutSeq uint64 `json:"logout_seq,omitempty"`
}

func newState() State {
	return State{
		Auth:             domain.StateLoggedOut,
		Users:            domain.Table{},
		TransferAccounts: domain.Table{},
		CreditTransfers:  domain.Table{},
		Requests:         map[domain.Flow]domain.RequestStatus{},
	}
}

func (s State) clone() State {
	out := s
	if s.Challenge != nil {
		c := *s.Challenge
		out.Challenge = &c
	}
	out.Users = s.Users.Clone()
	out.TransferAccounts = s.TransferAccounts.Clone()
	out.CreditTransfers = s.CreditTransfers.Clone()
	out.Requests = make(map[domain.Flow]domain.RequestStatus, len(s.Requests))
	for k, v := range s.Requests {
		out.Requests[k] = v
	}
	out.Flash = append([]domain.FlashMessage(nil), s.Flash...)
	return out
}

// Table returns the entity table for t.
func (s State) Table(t domain.EntityType) domain.Table {
	switch t {
	case domain.EntityUsers:
		return s.Users
	case domain.EntityTransferAccounts:
		return s.TransferAccounts
	case domain.EntityCreditTransfers:
		return s.CreditTransfers
	}
	return nil
}

// Request returns the status of a flow; the zero value means idle.
func (s State) Request(f domain.Flow) domain.RequestStatus {
	return s.Requests[f]
}

// UserList decodes the users table, ordered by id.
func (s State) UserList() ([]domain.User, error) {
	return decodeTable[domain.User](s.Users)
}

// TransferAccountList decodes the transfer accounts table, ordered by id.
func (s State) TransferAccountList() ([]domain.TransferAccount, error) {
	return decodeTable[domain.TransferAccount](s.TransferAccounts)
}

// CreditTransferList decodes the credit transfers table, ordered by id.
func (s State) CreditTransferList() ([]domain.CreditTransfer, error) {
	return decodeTable[domain.CreditTransfer](s.CreditTransfers)
}

func decodeTable[T any](t domain.Table) ([]T, error) {
	out := make([]T, 0, len(t))
	for _, id := range SortedIDs(t) {
		v, err := domain.Decode[T](t[id])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SortedIDs returns the table keys in numeric order, non-numeric keys last.
func SortedIDs(t domain.Table) []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}
