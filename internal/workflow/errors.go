package workflow

import "errors"

// Reason is a machine-readable failure code returned by the workflow facade.
type Reason string

// Failure taxonomy. Callers never see raw store errors; every failure is one
// of these.
const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonNotEligible       Reason = "not_eligible"
	ReasonAlreadyRegistered Reason = "already_registered"
	ReasonNotRegistered     Reason = "not_registered"
	ReasonAlreadyMarked     Reason = "already_marked"
	ReasonNotAttended       Reason = "not_attended"
	ReasonInvalidRating     Reason = "invalid_rating"
	ReasonAlreadyReviewed   Reason = "already_reviewed"
	ReasonEventNotFound     Reason = "event_not_found"
)

// Error is a typed workflow failure.
type Error struct {
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}

func fail(reason Reason, detail string) error {
	return &Error{Reason: reason, Detail: detail}
}

// ReasonOf extracts the failure reason from err, if it carries one.
func ReasonOf(err error) (Reason, bool) {
	var we *Error
	if errors.As(err, &we) {
		return we.Reason, true
	}
	return "", false
}

// Is lets errors.Is match two workflow errors by reason.
func (e *Error) Is(target error) bool {
	var we *Error
	if !errors.As(target, &we) {
		return false
	}
	return e.Reason == we.Reason
}
