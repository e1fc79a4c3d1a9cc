// internal/app/features/drawing/errors.go
package drawing

import (
	"errors"
	"fmt"
)

var (
	// ErrGroupNotFound is returned when the group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrAlreadyDrawn is wrapped in a *draw.ValidationError when the group
	// is already marked drawn.
	ErrAlreadyDrawn = errors.New("draw already done for this group")

	// ErrInsufficientParticipants is wrapped in a *draw.ValidationError when
	// fewer than two participants are approved.
	ErrInsufficientParticipants = errors.New("at least two approved participants are required")

	// ErrDrawInProgress is returned when another draw holds the group.
	ErrDrawInProgress = errors.New("a draw is already running for this group")

	// ErrRosterChanged is wrapped with storeapi.ErrVersionConflict when the
	// approved participants changed while a draw was running.
	ErrRosterChanged = errors.New("approved participants changed during the draw")
)

// PartialFailureError reports a draw whose persist phase did not write every
// assignment. The group is left open and the whole draw can be retried.
type PartialFailureError struct {
	GroupID       string
	Total         int
	Failed        int
	ResetFailures int
	Err           error // every individual write error, combined
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("draw for group %s saved %d of %d assignments (%d failed)",
		e.GroupID, e.Total-e.Failed, e.Total, e.Failed)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsPartialFailure reports whether err is (or wraps) a *PartialFailureError.
func IsPartialFailure(err error) bool {
	var pf *PartialFailureError
	return errors.As(err, &pf)
}
