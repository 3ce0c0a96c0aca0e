package directory

import (
	"errors"
	"fmt"
)

// Outcome is the terminal result of a mutating directory operation. The
// dedup signals (AlreadyPending, AlreadyConnected) are outcomes rather than
// errors: the stored state already satisfies the caller's intent.
type Outcome string

const (
	OutcomeNone             Outcome = ""
	OutcomeCreated          Outcome = "created"
	OutcomeAlreadyPending   Outcome = "already_pending"
	OutcomeAlreadyConnected Outcome = "already_connected"
	OutcomeAccepted         Outcome = "accepted"
	OutcomeRejected         Outcome = "rejected"
)

var (
	// ErrNotFound means the operation's target does not exist in the
	// required state (e.g. accepting a request that was never sent, or was
	// sent in the other direction).
	ErrNotFound = errors.New("connection request not found")

	// ErrInvalidArgument means an empty identifier or a self-connection.
	ErrInvalidArgument = errors.New("invalid user identifier")
)

// PersistenceError reports a storage failure. For multi-record accept and
// reject it aggregates the per-record results instead of discarding them:
// Succeeded and Failed count the individual mutations. The operation is
// safe to retry; every directory operation re-checks stored state first.
type PersistenceError struct {
	Op        string
	Succeeded int
	Failed    int
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Succeeded+e.Failed > 1 {
		return fmt.Sprintf("%s: %d of %d records failed: %v", e.Op, e.Failed, e.Succeeded+e.Failed, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
