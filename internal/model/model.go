package model

import "time"

// EventType categorizes campus events.
type EventType string

// Event types offered by the platform.
const (
	TypeHackathon   EventType = "hackathon"
	TypeWorkshop    EventType = "workshop"
	TypeFest        EventType = "fest"
	TypeSeminar     EventType = "seminar"
	TypeConference  EventType = "conference"
	TypeCompetition EventType = "competition"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case TypeHackathon, TypeWorkshop, TypeFest, TypeSeminar, TypeConference, TypeCompetition:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

// Event lifecycle states. Events transition active->cancelled or
// active->completed and are never deleted.
const (
	StatusActive    EventStatus = "active"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

// Event is an admin-created campus event.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        EventType   `json:"type"`
	Date        time.Time   `json:"date"`
	Location    string      `json:"location"`
	MaxCapacity int         `json:"max_capacity"`
	Status      EventStatus `json:"status"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Registration records a student signing up for an event.
// At most one per (student, event) pair.
type Registration struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	EventID      string    `json:"event_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Attendance records a confirmed scan. At most one per (student, event) pair;
// a Registration for the pair must already exist.
type Attendance struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	EventID   string    `json:"event_id"`
	MarkedBy  string    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Feedback is a post-event rating. At most one per (student, event) pair;
// an Attendance for the pair must already exist.
type Feedback struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	EventID     string    `json:"event_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
