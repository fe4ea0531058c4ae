// Package eligibility holds the pure decision logic gating the
// registration -> attendance -> feedback workflow. Functions here never touch
// storage; callers pass a fresh snapshot for one (student, event) pair.
package eligibility

import (
	"time"

	"campusevents/internal/model"
)

// Status is the derived per-event state for one student.
type Status string

const (
	// Upcoming means the event date is still ahead; registration may be offered.
	Upcoming Status = "upcoming"
	// AttendedPendingFeedback means the event has happened, the student was
	// scanned in, and no feedback exists yet.
	AttendedPendingFeedback Status = "attended_pending_feedback"
	// Completed means nothing further is offered: feedback exists, or the
	// event passed without the student attending.
	Completed Status = "completed"
	// NotApplicable covers events outside the workflow, e.g. cancelled ones.
	NotApplicable Status = "not_applicable"
)

// CanRegister reports whether a registration may be offered right now.
// The capacity check is advisory; the store's insert path is the
// authoritative duplicate and capacity guard.
func CanRegister(evt model.Event, existing *model.Registration, regCount int, now time.Time) bool {
	if evt.Status != model.StatusActive {
		return false
	}
	if !now.Before(evt.Date) {
		return false
	}
	if existing != nil {
		return false
	}
	return regCount < evt.MaxCapacity
}

// CanMarkAttendance reports whether attendance may be marked. Attendance
// presupposes registration; time is not gated, operators may scan before the
// event starts.
func CanMarkAttendance(reg *model.Registration, existing *model.Attendance) bool {
	return reg != nil && existing == nil
}

// CanSubmitFeedback reports whether feedback may be submitted. Feedback
// presupposes attendance.
func CanSubmitFeedback(att *model.Attendance, existing *model.Feedback) bool {
	return att != nil && existing == nil
}

// Classify derives the per-event status for one student from a fresh
// snapshot. It is total: every input maps to exactly one status.
func Classify(evt model.Event, reg *model.Registration, att *model.Attendance, fb *model.Feedback, now time.Time) Status {
	if evt.Status == model.StatusCancelled {
		return NotApplicable
	}
	past := !now.Before(evt.Date)
	switch {
	case past && att != nil && fb == nil:
		return AttendedPendingFeedback
	case !past:
		return Upcoming
	case fb != nil || (past && att == nil):
		return Completed
	}
	return NotApplicable
}

// Action is the single primary action a dashboard offers per event.
type Action string

const (
	ActionRegister Action = "register"
	ActionFeedback Action = "feedback"
	ActionNone     Action = "none"
)

// PrimaryAction picks the one action to offer for an event given its
// classification and the registration gate.
func PrimaryAction(evt model.Event, reg *model.Registration, att *model.Attendance, fb *model.Feedback, regCount int, now time.Time) Action {
	switch Classify(evt, reg, att, fb, now) {
	case Upcoming:
		if CanRegister(evt, reg, regCount, now) {
			return ActionRegister
		}
	case AttendedPendingFeedback:
		return ActionFeedback
	}
	return ActionNone
}
