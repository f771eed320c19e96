package domain

import (
	"context"
	"time"
)

// Outcome is how a flow instance ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePartial  Outcome = "partial"
	OutcomeFailure  Outcome = "failure"
	OutcomeRejected Outcome = "rejected"
)

// FlowEvent describes one flow instance.
type FlowEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Trigger   ActionType    `json:"trigger"`
	ActionID  string        `json:"action_id"`
	Outcome   Outcome       `json:"outcome,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// GatewayEvent describes one API round trip.
type GatewayEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	Method     string        `json:"method"`
	Endpoint   string        `json:"endpoint"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration"`
	IsError    bool          `json:"is_error,omitempty"`
}

// FlowHooks defines callbacks for orchestrator observability.
// Every field is optional.
type FlowHooks struct {
	OnFlowStart   func(context.Context, *FlowEvent)
	OnFlowEnd     func(context.Context, *FlowEvent)
	OnGatewayCall func(context.Context, *GatewayEvent)
	OnAction      func(context.Context, *Action)
}
