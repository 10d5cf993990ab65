package lifecycle

import (
	"fmt"
	"time"
)

// Claim is an active single-owner claim on a task-like entity.
// A released claim must not appear in the active set passed to the
// validators; filtering on release timestamps is the store's job.
type Claim struct {
	ClaimID   string
	UserID    string
	ClaimedAt time.Time
}

// ValidateClaim checks whether userID may claim a task given its active
// claims. Re-claiming by the same user is idempotent and always
// succeeds; a different user's active claim is a conflict. The conflict
// message carries the existing claim's timestamp for diagnosability.
func ValidateClaim(activeClaims []Claim, userID string) error {
	for _, c := range activeClaims {
		if c.UserID != userID {
			return &RuleError{
				Code: CodeClaimConflict,
				Message: fmt.Sprintf("task already claimed by another user at %s",
					c.ClaimedAt.UTC().Format(time.RFC3339)),
			}
		}
	}
	return nil
}

// ValidateRelease checks whether userID may release their claim.
// Success returns the user's own active claim.
func ValidateRelease(activeClaims []Claim, userID string) (*Claim, error) {
	for i := range activeClaims {
		if activeClaims[i].UserID == userID {
			return &activeClaims[i], nil
		}
	}
	return nil, &RuleError{
		Code:    CodeNoActiveClaim,
		Message: "no active claim held by this user",
	}
}

// HasActiveClaimConflict reports whether any active claim exists,
// excluding excludeUserID's own if non-empty.
func HasActiveClaimConflict(activeClaims []Claim, excludeUserID string) bool {
	for _, c := range activeClaims {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		return true
	}
	return false
}
