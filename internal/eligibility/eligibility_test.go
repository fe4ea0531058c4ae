package eligibility

import (
	"testing"
	"time"

	"campusevents/internal/model"
)

var now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func activeEvent(date time.Time, capacity int) model.Event {
	return model.Event{
		ID:          "evt-1",
		Title:       "Tech Symposium",
		Type:        model.TypeWorkshop,
		Date:        date,
		MaxCapacity: capacity,
		Status:      model.StatusActive,
	}
}

func TestCanRegister(t *testing.T) {
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	reg := &model.Registration{ID: "reg-1"}

	tests := []struct {
		name     string
		event    model.Event
		existing *model.Registration
		count    int
		want     bool
	}{
		{"open event", activeEvent(future, 10), nil, 0, true},
		{"already registered", activeEvent(future, 10), reg, 0, false},
		{"event full", activeEvent(future, 10), nil, 10, false},
		{"one seat left", activeEvent(future, 10), nil, 9, true},
		{"event started", activeEvent(past, 10), nil, 0, false},
		{"event at date", activeEvent(now, 10), nil, 0, false},
		{"cancelled event", func() model.Event {
			e := activeEvent(future, 10)
			e.Status = model.StatusCancelled
			return e
		}(), nil, 0, false},
		{"completed event", func() model.Event {
			e := activeEvent(future, 10)
			e.Status = model.StatusCompleted
			return e
		}(), nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRegister(tt.event, tt.existing, tt.count, now); got != tt.want {
				t.Fatalf("CanRegister = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanMarkAttendance(t *testing.T) {
	reg := &model.Registration{ID: "reg-1"}
	att := &model.Attendance{ID: "att-1"}

	if !CanMarkAttendance(reg, nil) {
		t.Fatal("expected marking allowed for registered student without attendance")
	}
	if CanMarkAttendance(nil, nil) {
		t.Fatal("expected marking denied without registration")
	}
	if CanMarkAttendance(reg, att) {
		t.Fatal("expected marking denied when attendance already exists")
	}
}

func TestCanSubmitFeedback(t *testing.T) {
	att := &model.Attendance{ID: "att-1"}
	fb := &model.Feedback{ID: "fb-1"}

	if !CanSubmitFeedback(att, nil) {
		t.Fatal("expected feedback allowed after attendance")
	}
	if CanSubmitFeedback(nil, nil) {
		t.Fatal("expected feedback denied without attendance")
	}
	if CanSubmitFeedback(att, fb) {
		t.Fatal("expected feedback denied when feedback already exists")
	}
}

func TestClassify(t *testing.T) {
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	reg := &model.Registration{ID: "reg-1"}
	att := &model.Attendance{ID: "att-1"}
	fb := &model.Feedback{ID: "fb-1"}

	tests := []struct {
		name  string
		event model.Event
		reg   *model.Registration
		att   *model.Attendance
		fb    *model.Feedback
		want  Status
	}{
		{"future event unregistered", activeEvent(future, 10), nil, nil, nil, Upcoming},
		{"future event registered", activeEvent(future, 10), reg, nil, nil, Upcoming},
		{"past attended pending feedback", activeEvent(past, 10), reg, att, nil, AttendedPendingFeedback},
		{"past attended with feedback", activeEvent(past, 10), reg, att, fb, Completed},
		{"past missed", activeEvent(past, 10), reg, nil, nil, Completed},
		{"past never registered", activeEvent(past, 10), nil, nil, nil, Completed},
		{"cancelled event", func() model.Event {
			e := activeEvent(future, 10)
			e.Status = model.StatusCancelled
			return e
		}(), nil, nil, nil, NotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.event, tt.reg, tt.att, tt.fb, now); got != tt.want {
				t.Fatalf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

// Classify must map every combination to exactly one class.
func TestClassifyIsTotal(t *testing.T) {
	dates := []time.Time{now.Add(-time.Hour), now, now.Add(time.Hour)}
	statuses := []model.EventStatus{model.StatusActive, model.StatusCancelled, model.StatusCompleted}
	regs := []*model.Registration{nil, {ID: "reg-1"}}
	atts := []*model.Attendance{nil, {ID: "att-1"}}
	fbs := []*model.Feedback{nil, {ID: "fb-1"}}

	known := map[Status]bool{
		Upcoming:                true,
		AttendedPendingFeedback: true,
		Completed:               true,
		NotApplicable:           true,
	}
	for _, date := range dates {
		for _, status := range statuses {
			for _, reg := range regs {
				for _, att := range atts {
					for _, fb := range fbs {
						evt := activeEvent(date, 10)
						evt.Status = status
						got := Classify(evt, reg, att, fb, now)
						if !known[got] {
							t.Fatalf("Classify returned unknown status %q", got)
						}
					}
				}
			}
		}
	}
}

func TestPrimaryAction(t *testing.T) {
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	reg := &model.Registration{ID: "reg-1"}
	att := &model.Attendance{ID: "att-1"}
	fb := &model.Feedback{ID: "fb-1"}

	if got := PrimaryAction(activeEvent(future, 10), nil, nil, nil, 0, now); got != ActionRegister {
		t.Fatalf("expected register action, got %q", got)
	}
	if got := PrimaryAction(activeEvent(future, 10), reg, nil, nil, 1, now); got != ActionNone {
		t.Fatalf("expected no action when already registered, got %q", got)
	}
	if got := PrimaryAction(activeEvent(future, 10), nil, nil, nil, 10, now); got != ActionNone {
		t.Fatalf("expected no action when event full, got %q", got)
	}
	if got := PrimaryAction(activeEvent(past, 10), reg, att, nil, 1, now); got != ActionFeedback {
		t.Fatalf("expected feedback action, got %q", got)
	}
	if got := PrimaryAction(activeEvent(past, 10), reg, att, fb, 1, now); got != ActionNone {
		t.Fatalf("expected no action after feedback, got %q", got)
	}
}
