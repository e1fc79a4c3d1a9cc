package draw

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewGivers is returned for fewer than two givers; nobody can
	// draw themselves.
	ErrTooFewGivers = errors.New("at least two givers are required")

	// ErrDuplicateGiver means the caller passed the same identity twice.
	ErrDuplicateGiver = errors.New("duplicate giver identity")

	// ErrEmptyGiver means an identity was the empty string.
	ErrEmptyGiver = errors.New("empty giver identity")

	// ErrUnsatisfiable is returned when no derangement was found within the
	// attempt ceiling.
	ErrUnsatisfiable = errors.New("no valid assignment found within attempt limit")
)

// ValidationError reports input the engine refuses to draw from.
// It wraps one of ErrTooFewGivers, ErrDuplicateGiver or ErrEmptyGiver.
type ValidationError struct {
	Err   error
	Giver string // offending identity, when there is one
}

func (e *ValidationError) Error() string {
	if e.Giver != "" {
		return fmt.Sprintf("draw: %v: %q", e.Err, e.Giver)
	}
	return "draw: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
