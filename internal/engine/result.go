package engine

import (
	"time"

	"github.com/roach88/manifest/internal/ir"
)

// CommandResult is the domain-level outcome of one command execution.
// Success is false exactly when GuardFailure or PolicyDenial is set;
// infrastructure failures never produce a CommandResult at all.
type CommandResult struct {
	Entity       string         `json:"entity"`
	Command      string         `json:"command"`
	InstanceID   string         `json:"instance_id"`
	Success      bool           `json:"success"`
	GuardFailure *GuardFailure  `json:"guard_failure,omitempty"`
	PolicyDenial *PolicyDenial  `json:"policy_denial,omitempty"`
	Events       []EmittedEvent `json:"events,omitempty"`
}

// GuardFailure identifies the first guard that evaluated false. Index
// is the guard's position in declaration order; Expression is the
// source text exactly as written.
type GuardFailure struct {
	Index      int    `json:"index"`
	Expression string `json:"expression"`
	Message    string `json:"message"`
}

// PolicyDenial reports a policy that rejected the command before any
// guard ran.
type PolicyDenial struct {
	Policy  string `json:"policy"`
	Message string `json:"message"`
}

// EmittedEvent is one event produced by a successful command, in
// emit-declaration order. Type is the wire event type: the declared
// channel when the event was declared with one, otherwise derived from
// the entity and event names.
type EmittedEvent struct {
	Name    string      `json:"name"`
	Type    string      `json:"type"`
	Payload ir.IRObject `json:"payload"`
	At      time.Time   `json:"at"`
}
