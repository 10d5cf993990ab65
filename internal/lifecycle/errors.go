package lifecycle

import (
	"errors"
	"fmt"
)

// Code categorizes rule violations. Codes are part of the public
// contract: callers surface them verbatim to command callers.
type Code string

const (
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeClaimConflict     Code = "CLAIM_CONFLICT"
	CodeNoActiveClaim     Code = "NO_ACTIVE_CLAIM"
)

// RuleError is a structured rule violation. It is an expected outcome,
// not an infrastructure failure; callers should branch on Code rather
// than retry.
type RuleError struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the rule code from an error, or "" if the error is
// not a RuleError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsRuleError reports whether err is (or wraps) a RuleError.
func IsRuleError(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}
