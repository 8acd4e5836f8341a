package circulation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned for transitions the current state does not
	// allow, such as returning a loan twice.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrActiveLoan blocks clearing a fine while its loan is still open.
	ErrActiveLoan = fmt.Errorf("%w: an active loan still exists for this item", ErrInvalidState)

	// ErrRuleViolation rejects an edit that would break a catalog rule. The
	// edit is discarded.
	ErrRuleViolation = errors.New("business rule violation")

	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
