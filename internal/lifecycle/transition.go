package lifecycle

import (
	"fmt"
	"strings"
)

// Status is a task lifecycle status. The set is closed; ParseStatus is
// the only way to obtain one from untrusted input.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCanceled   Status = "canceled"
)

// validTransitions is the fixed per-entity status graph. Terminal
// statuses (done, canceled) map to empty slices, never missing keys,
// so "no outgoing edges" is explicit.
var validTransitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusCanceled},
	StatusInProgress: {StatusDone, StatusCanceled, StatusOpen},
	StatusDone:       {},
	StatusCanceled:   {},
}

// ParseStatus converts a raw string to a Status.
// Unknown strings are an error, not a silent passthrough.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusDone, StatusCanceled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ValidTargets returns the statuses reachable from the given status, in
// fixed declaration order. Unknown statuses have no targets.
func ValidTargets(from Status) []Status {
	targets := validTransitions[from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// IsValidTransition reports whether from -> to is an edge of the status
// graph. Unknown from values yield false.
func IsValidTransition(from, to Status) bool {
	for _, target := range validTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// TransitionRequest asks to move a task between statuses.
type TransitionRequest struct {
	CurrentStatus Status
	TargetStatus  Status
	Note          string
}

// Transition is the validated outcome of a TransitionRequest.
type Transition struct {
	FromStatus Status
	ToStatus   Status
	Note       string
}

// ValidateTransition checks a requested status change against the
// graph. On violation the error enumerates the valid targets so callers
// can surface an actionable message.
func ValidateTransition(req TransitionRequest) (*Transition, error) {
	if !IsValidTransition(req.CurrentStatus, req.TargetStatus) {
		targets := validTransitions[req.CurrentStatus]
		var detail string
		if len(targets) == 0 {
			detail = fmt.Sprintf("%q is terminal", req.CurrentStatus)
		} else {
			names := make([]string, len(targets))
			for i, t := range targets {
				names[i] = string(t)
			}
			detail = fmt.Sprintf("valid targets from %q: %s", req.CurrentStatus, strings.Join(names, ", "))
		}
		return nil, &RuleError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("cannot transition from %q to %q (%s)", req.CurrentStatus, req.TargetStatus, detail),
		}
	}

	return &Transition{
		FromStatus: req.CurrentStatus,
		ToStatus:   req.TargetStatus,
		Note:       req.Note,
	}, nil
}
