package ports

import (
	"context"
	"errors"
)

// TokenSlot names one of the persisted tokens.
type TokenSlot string

const (
	// SlotPrimary holds the session token (or the limited login token while a TFA challenge is pending).
	SlotPrimary TokenSlot = "primary"
	// SlotTFA holds the long-lived "remember this computer" token.
	SlotTFA TokenSlot = "tfa"
)

// Slots lists every token slot.
var Slots = []TokenSlot{SlotPrimary, SlotTFA}

// ErrTokenNotFound is returned by Retrieve when a slot is empty.
var ErrTokenNotFound = errors.New("token not found")

// TokenStorage persists session tokens across restarts.
type TokenStorage interface {
	// Store writes the token to the slot, replacing any previous value.
	Store(ctx context.Context, slot TokenSlot, token string) error

	// Retrieve reads the slot. Returns ErrTokenNotFound if it is empty.
	Retrieve(ctx context.Context, slot TokenSlot) (string, error)

	// Remove clears the slot. Removing an empty slot is not an error.
	Remove(ctx context.Context, slot TokenSlot) error
}
