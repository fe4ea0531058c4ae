package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusevents/internal/eligibility"
	"campusevents/internal/metrics"
	"campusevents/internal/model"
)

// Counter serves cached registration counts. A negative value means the
// cache has no answer and the store must be consulted.
type Counter interface {
	RegistrationCount(ctx context.Context, eventID string) int
}

// Service is the workflow facade. Each operation re-checks eligibility
// against a fresh read, attempts the store insert, and maps a duplicate from
// the insert path to its typed Already* failure. The pre-checks are advisory;
// the store's uniqueness constraint is the authority under concurrency.
type Service struct {
	store   Store
	counter Counter
	now     func() time.Time
}

// NewService creates the facade over a store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetCounter attaches a registration-count cache. Cached counts feed the
// advisory capacity checks; the store remains the source of truth.
func (s *Service) SetCounter(counter Counter) {
	s.counter = counter
}

// registrationCount prefers the cache and falls back to a store count when
// the cache has no answer.
func (s *Service) registrationCount(ctx context.Context, eventID string) (int, error) {
	if s.counter != nil {
		if n := s.counter.RegistrationCount(ctx, eventID); n >= 0 {
			return n, nil
		}
	}
	return s.store.CountRegistrations(ctx, eventID)
}

func (s *Service) outcome(op string, err error) {
	label := "ok"
	if err != nil {
		label = "error"
		if reason, ok := ReasonOf(err); ok {
			label = string(reason)
		}
	}
	metrics.WorkflowOutcomes.WithLabelValues(op, label).Inc()
}

// Register signs a student up for an event.
func (s *Service) Register(ctx context.Context, studentID, eventID string) (model.Registration, error) {
	reg, err := s.register(ctx, studentID, eventID)
	s.outcome("register", err)
	return reg, err
}

func (s *Service) register(ctx context.Context, studentID, eventID string) (model.Registration, error) {
	if studentID == "" {
		return model.Registration{}, fail(ReasonUnauthenticated, "no actor")
	}
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return model.Registration{}, fmt.Errorf("load event: %w", err)
	}
	if evt == nil {
		return model.Registration{}, fail(ReasonEventNotFound, eventID)
	}
	existing, err := s.store.FindRegistration(ctx, studentID, eventID)
	if err != nil {
		return model.Registration{}, fmt.Errorf("load registration: %w", err)
	}
	if existing != nil {
		return model.Registration{}, fail(ReasonAlreadyRegistered, "")
	}
	count, err := s.registrationCount(ctx, eventID)
	if err != nil {
		return model.Registration{}, fmt.Errorf("count registrations: %w", err)
	}
	if !eligibility.CanRegister(*evt, existing, count, s.now()) {
		return model.Registration{}, fail(ReasonNotEligible, "registration closed or event full")
	}
	reg, err := s.store.InsertRegistration(ctx, model.Registration{StudentID: studentID, EventID: eventID})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			// A concurrent duplicate raced ahead of the pre-check.
			return model.Registration{}, fail(ReasonAlreadyRegistered, "")
		}
		return model.Registration{}, fmt.Errorf("insert registration: %w", err)
	}
	return reg, nil
}

// MarkAttendance records a confirmed scan for a registered student. Only the
// scan pipeline's confirm step calls this.
func (s *Service) MarkAttendance(ctx context.Context, studentID, eventID, operatorID string) (model.Attendance, error) {
	att, err := s.markAttendance(ctx, studentID, eventID, operatorID)
	s.outcome("mark_attendance", err)
	return att, err
}

func (s *Service) markAttendance(ctx context.Context, studentID, eventID, operatorID string) (model.Attendance, error) {
	if operatorID == "" {
		return model.Attendance{}, fail(ReasonUnauthenticated, "no operator")
	}
	reg, err := s.store.FindRegistration(ctx, studentID, eventID)
	if err != nil {
		return model.Attendance{}, fmt.Errorf("load registration: %w", err)
	}
	existing, err := s.store.FindAttendance(ctx, studentID, eventID)
	if err != nil {
		return model.Attendance{}, fmt.Errorf("load attendance: %w", err)
	}
	if existing != nil {
		return model.Attendance{}, fail(ReasonAlreadyMarked, "")
	}
	if !eligibility.CanMarkAttendance(reg, existing) {
		return model.Attendance{}, fail(ReasonNotRegistered, "student must be registered for this event")
	}
	att, err := s.store.InsertAttendance(ctx, model.Attendance{StudentID: studentID, EventID: eventID, MarkedBy: operatorID})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return model.Attendance{}, fail(ReasonAlreadyMarked, "")
		}
		return model.Attendance{}, fmt.Errorf("insert attendance: %w", err)
	}
	return att, nil
}

// SubmitFeedback records a post-event rating for an attended student.
func (s *Service) SubmitFeedback(ctx context.Context, studentID, eventID string, rating int, comment string) (model.Feedback, error) {
	fb, err := s.submitFeedback(ctx, studentID, eventID, rating, comment)
	s.outcome("submit_feedback", err)
	return fb, err
}

func (s *Service) submitFeedback(ctx context.Context, studentID, eventID string, rating int, comment string) (model.Feedback, error) {
	if studentID == "" {
		return model.Feedback{}, fail(ReasonUnauthenticated, "no actor")
	}
	if rating < 1 || rating > 5 {
		return model.Feedback{}, fail(ReasonInvalidRating, "rating must be between 1 and 5")
	}
	att, err := s.store.FindAttendance(ctx, studentID, eventID)
	if err != nil {
		return model.Feedback{}, fmt.Errorf("load attendance: %w", err)
	}
	existing, err := s.store.FindFeedback(ctx, studentID, eventID)
	if err != nil {
		return model.Feedback{}, fmt.Errorf("load feedback: %w", err)
	}
	if existing != nil {
		return model.Feedback{}, fail(ReasonAlreadyReviewed, "")
	}
	if !eligibility.CanSubmitFeedback(att, existing) {
		return model.Feedback{}, fail(ReasonNotAttended, "attendance required before feedback")
	}
	fb, err := s.store.InsertFeedback(ctx, model.Feedback{StudentID: studentID, EventID: eventID, Rating: rating, Comment: comment})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return model.Feedback{}, fail(ReasonAlreadyReviewed, "")
		}
		return model.Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return fb, nil
}

// EventView is the dashboard projection for one event and one student.
type EventView struct {
	Event         model.Event        `json:"event"`
	Registered    bool               `json:"registered"`
	Registrations int                `json:"registrations"`
	Status        eligibility.Status `json:"status"`
	Action        eligibility.Action `json:"action"`
}

// StatusFor classifies one event for one student from fresh reads.
func (s *Service) StatusFor(ctx context.Context, studentID, eventID string) (EventView, error) {
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return EventView{}, fmt.Errorf("load event: %w", err)
	}
	if evt == nil {
		return EventView{}, fail(ReasonEventNotFound, eventID)
	}
	return s.view(ctx, studentID, *evt)
}

// Overview classifies every event for a student so the dashboard can offer
// exactly one primary action per event.
func (s *Service) Overview(ctx context.Context, studentID string) ([]EventView, error) {
	events, err := s.store.ListEvents(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	views := make([]EventView, 0, len(events))
	for _, evt := range events {
		v, err := s.view(ctx, studentID, evt)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, studentID string, evt model.Event) (EventView, error) {
	reg, err := s.store.FindRegistration(ctx, studentID, evt.ID)
	if err != nil {
		return EventView{}, fmt.Errorf("load registration: %w", err)
	}
	att, err := s.store.FindAttendance(ctx, studentID, evt.ID)
	if err != nil {
		return EventView{}, fmt.Errorf("load attendance: %w", err)
	}
	fb, err := s.store.FindFeedback(ctx, studentID, evt.ID)
	if err != nil {
		return EventView{}, fmt.Errorf("load feedback: %w", err)
	}
	count, err := s.registrationCount(ctx, evt.ID)
	if err != nil {
		return EventView{}, fmt.Errorf("count registrations: %w", err)
	}
	now := s.now()
	return EventView{
		Event:         evt,
		Registered:    reg != nil,
		Registrations: count,
		Status:        eligibility.Classify(evt, reg, att, fb, now),
		Action:        eligibility.PrimaryAction(evt, reg, att, fb, count, now),
	}, nil
}

// CreateEvent validates and stores an admin-created event.
func (s *Service) CreateEvent(ctx context.Context, evt model.Event) (model.Event, error) {
	if evt.CreatedBy == "" {
		return model.Event{}, fail(ReasonUnauthenticated, "no actor")
	}
	if evt.Title == "" || !evt.Type.Valid() || evt.MaxCapacity <= 0 || evt.Date.IsZero() {
		return model.Event{}, fail(ReasonNotEligible, "invalid event payload")
	}
	evt.Status = model.StatusActive
	return s.store.InsertEvent(ctx, evt)
}

// CancelEvent transitions an active event to cancelled.
func (s *Service) CancelEvent(ctx context.Context, eventID string) (model.Event, error) {
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, fmt.Errorf("load event: %w", err)
	}
	if evt == nil {
		return model.Event{}, fail(ReasonEventNotFound, eventID)
	}
	if evt.Status != model.StatusActive {
		return model.Event{}, fail(ReasonNotEligible, "only active events can be cancelled")
	}
	evt.Status = model.StatusCancelled
	if err := s.store.UpdateEvent(ctx, *evt); err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	return *evt, nil
}

// UpdateEvent applies admin edits to an event without touching its status.
func (s *Service) UpdateEvent(ctx context.Context, evt model.Event) (model.Event, error) {
	stored, err := s.store.GetEvent(ctx, evt.ID)
	if err != nil {
		return model.Event{}, fmt.Errorf("load event: %w", err)
	}
	if stored == nil {
		return model.Event{}, fail(ReasonEventNotFound, evt.ID)
	}
	if !evt.Type.Valid() || evt.MaxCapacity <= 0 {
		return model.Event{}, fail(ReasonNotEligible, "invalid event payload")
	}
	evt.Status = stored.Status
	evt.CreatedBy = stored.CreatedBy
	if err := s.store.UpdateEvent(ctx, evt); err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	return evt, nil
}
