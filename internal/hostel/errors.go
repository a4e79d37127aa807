package hostel

import (
	"errors"
	"fmt"
)

// ErrTokenInvalid is the only token failure guests ever see. Used, expired
// and unknown tokens are deliberately indistinguishable in this error so an
// unauthenticated caller cannot probe token state; the precise cause goes to
// the log instead.
var ErrTokenInvalid = errors.New("token is invalid or expired")

// ValidationError reports a missing or malformed required field. The caller
// can correct the input and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
