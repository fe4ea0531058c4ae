package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/model"
)

// MemStore is a map-backed Store for dev and tests. It enforces the same
// (student, event) uniqueness as the SQL store in its insert path.
type MemStore struct {
	mu            sync.Mutex
	now           func() time.Time
	events        map[string]model.Event
	registrations map[string]model.Registration // keyed by student_id|event_id
	attendance    map[string]model.Attendance
	feedback      map[string]model.Feedback
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		now:           time.Now,
		events:        make(map[string]model.Event),
		registrations: make(map[string]model.Registration),
		attendance:    make(map[string]model.Attendance),
		feedback:      make(map[string]model.Feedback),
	}
}

func pairKey(studentID, eventID string) string {
	return studentID + "|" + eventID
}

// InsertEvent stores a new event.
func (m *MemStore) InsertEvent(_ context.Context, evt model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Status == "" {
		evt.Status = model.StatusActive
	}
	evt.CreatedAt = m.now().UTC()
	m.events[evt.ID] = evt
	return evt, nil
}

// GetEvent returns an event by id, or (nil, nil) when absent.
func (m *MemStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evt, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	return &evt, nil
}

// UpdateEvent overwrites a stored event.
func (m *MemStore) UpdateEvent(_ context.Context, evt model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[evt.ID]
	if !ok {
		return ErrNotFound
	}
	evt.CreatedAt = stored.CreatedAt
	m.events[evt.ID] = evt
	return nil
}

// ListEvents returns events sorted by date, optionally filtered by status.
func (m *MemStore) ListEvents(_ context.Context, status model.EventStatus) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Event
	for _, evt := range m.events {
		if status != "" && evt.Status != status {
			continue
		}
		res = append(res, evt)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}

// CompletePastEvents closes out active events whose date has passed.
func (m *MemStore) CompletePastEvents(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for id, evt := range m.events {
		if evt.Status == model.StatusActive && evt.Date.Before(now) {
			evt.Status = model.StatusCompleted
			m.events[id] = evt
			changed++
		}
	}
	return changed, nil
}

// InsertRegistration stores a registration; ErrDuplicate when the pair exists.
func (m *MemStore) InsertRegistration(_ context.Context, reg model.Registration) (model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(reg.StudentID, reg.EventID)
	if _, exists := m.registrations[key]; exists {
		return model.Registration{}, ErrDuplicate
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.RegisteredAt = m.now().UTC()
	m.registrations[key] = reg
	return reg, nil
}

// FindRegistration returns the registration for a pair, or (nil, nil).
func (m *MemStore) FindRegistration(_ context.Context, studentID, eventID string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[pairKey(studentID, eventID)]
	if !ok {
		return nil, nil
	}
	return &reg, nil
}

// CountRegistrations returns the registration count for an event.
func (m *MemStore) CountRegistrations(_ context.Context, eventID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, reg := range m.registrations {
		if reg.EventID == eventID {
			count++
		}
	}
	return count, nil
}

// ListEventRegistrations returns an event's registrations.
func (m *MemStore) ListEventRegistrations(_ context.Context, eventID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Registration
	for _, reg := range m.registrations {
		if reg.EventID == eventID {
			res = append(res, reg)
		}
	}
	return res, nil
}

// ListStudentRegistrations returns a student's registrations.
func (m *MemStore) ListStudentRegistrations(_ context.Context, studentID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Registration
	for _, reg := range m.registrations {
		if reg.StudentID == studentID {
			res = append(res, reg)
		}
	}
	return res, nil
}

// InsertAttendance stores an attendance record; ErrDuplicate when the pair exists.
func (m *MemStore) InsertAttendance(_ context.Context, att model.Attendance) (model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(att.StudentID, att.EventID)
	if _, exists := m.attendance[key]; exists {
		return model.Attendance{}, ErrDuplicate
	}
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	att.MarkedAt = m.now().UTC()
	m.attendance[key] = att
	return att, nil
}

// FindAttendance returns the attendance for a pair, or (nil, nil).
func (m *MemStore) FindAttendance(_ context.Context, studentID, eventID string) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	att, ok := m.attendance[pairKey(studentID, eventID)]
	if !ok {
		return nil, nil
	}
	return &att, nil
}

// ListEventAttendance returns an event's attendance roster.
func (m *MemStore) ListEventAttendance(_ context.Context, eventID string) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Attendance
	for _, att := range m.attendance {
		if att.EventID == eventID {
			res = append(res, att)
		}
	}
	return res, nil
}

// InsertFeedback stores a feedback record; ErrDuplicate when the pair exists.
func (m *MemStore) InsertFeedback(_ context.Context, fb model.Feedback) (model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(fb.StudentID, fb.EventID)
	if _, exists := m.feedback[key]; exists {
		return model.Feedback{}, ErrDuplicate
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	fb.SubmittedAt = m.now().UTC()
	m.feedback[key] = fb
	return fb, nil
}

// FindFeedback returns the feedback for a pair, or (nil, nil).
func (m *MemStore) FindFeedback(_ context.Context, studentID, eventID string) (*model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb, ok := m.feedback[pairKey(studentID, eventID)]
	if !ok {
		return nil, nil
	}
	return &fb, nil
}

// ListEventFeedback returns an event's feedback.
func (m *MemStore) ListEventFeedback(_ context.Context, eventID string) ([]model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Feedback
	for _, fb := range m.feedback {
		if fb.EventID == eventID {
			res = append(res, fb)
		}
	}
	return res, nil
}
