package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned when an action type is not in the catalog.
var ErrUnknownAction = errors.New("unknown action")

// ErrNotTrigger is returned when a host dispatches an action that only
// flows may issue.
var ErrNotTrigger = errors.New("action is not a trigger")

// ErrNotAuthenticated is returned when a flow needs a session token and none is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError is a client-side pre-flight rejection. It never reaches
// the network and leaves the flow status idle.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TransportError is a network or HTTP-level failure. It is always retryable.
type TransportError struct {
	StatusCode int
	StatusText string
	// ServerMessage is the "message" field of a JSON error body, if any.
	ServerMessage string
	Err           error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport: %s", e.StatusText)
	}
	return fmt.Sprintf("transport: %d %s", e.StatusCode, e.StatusText)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DomainError is a structured failure returned by the server
// (status other than "success"). Its message is shown verbatim.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// FlowError is the normalized {message} shape attached to failure actions.
type FlowError struct {
	Message string `json:"message"`
}

func (e FlowError) Error() string { return e.Message }

// Normalize converts any error caught at a process boundary into a FlowError.
// Server-provided messages win over status text, which wins over the raw error.
func Normalize(err error) FlowError {
	if err == nil {
		return FlowError{}
	}

	var fe FlowError
	if errors.As(err, &fe) {
		return fe
	}

	var de *DomainError
	if errors.As(err, &de) {
		return FlowError{Message: de.Message}
	}

	var te *TransportError
	if errors.As(err, &te) {
		switch {
		case te.ServerMessage != "":
			return FlowError{Message: te.ServerMessage}
		case te.StatusText != "":
			return FlowError{Message: te.StatusText}
		}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return FlowError{Message: ve.Message}
	}

	return FlowError{Message: err.Error()}
}
