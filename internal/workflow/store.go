package workflow

import (
	"context"
	"errors"
	"time"

	"campusevents/internal/model"
)

// Storage-level sentinels. The facade maps these to typed workflow errors;
// they never cross the facade boundary.
var (
	// ErrDuplicate is returned by an insert when the (student, event)
	// uniqueness constraint fired. It is the authoritative duplicate guard.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound is returned by point lookups that expect a record.
	ErrNotFound = errors.New("record not found")
)

// Store is the persistence contract for the workflow records. Implementations
// must enforce at most one Registration, Attendance and Feedback per
// (student, event) pair in the insert path.
type Store interface {
	InsertEvent(ctx context.Context, evt model.Event) (model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	UpdateEvent(ctx context.Context, evt model.Event) error
	ListEvents(ctx context.Context, status model.EventStatus) ([]model.Event, error)
	// CompletePastEvents transitions active events whose date has passed to
	// completed and returns how many rows changed.
	CompletePastEvents(ctx context.Context, now time.Time) (int, error)

	InsertRegistration(ctx context.Context, reg model.Registration) (model.Registration, error)
	FindRegistration(ctx context.Context, studentID, eventID string) (*model.Registration, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)
	ListEventRegistrations(ctx context.Context, eventID string) ([]model.Registration, error)
	ListStudentRegistrations(ctx context.Context, studentID string) ([]model.Registration, error)

	InsertAttendance(ctx context.Context, att model.Attendance) (model.Attendance, error)
	FindAttendance(ctx context.Context, studentID, eventID string) (*model.Attendance, error)
	ListEventAttendance(ctx context.Context, eventID string) ([]model.Attendance, error)

	InsertFeedback(ctx context.Context, fb model.Feedback) (model.Feedback, error)
	FindFeedback(ctx context.Context, studentID, eventID string) (*model.Feedback, error)
	ListEventFeedback(ctx context.Context, eventID string) ([]model.Feedback, error)
}
