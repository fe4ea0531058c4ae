package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"campusevents/internal/model"
)

// SQLStore persists workflow records in Postgres. Uniqueness of the
// (student_id, event_id) pairs is enforced by unique indexes; see
// migrations/001_init.sql.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store backed by an open Postgres connection.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// uniqueViolation is the Postgres error code for a unique constraint failure.
const uniqueViolation = "23505"

func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// InsertEvent writes a new event.
func (s *SQLStore) InsertEvent(ctx context.Context, evt model.Event) (model.Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Status == "" {
		evt.Status = model.StatusActive
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO events (id, title, description, type, date, location, max_capacity, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, evt.ID, evt.Title, evt.Description, evt.Type, evt.Date, evt.Location, evt.MaxCapacity, evt.Status, evt.CreatedBy)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return model.Event{}, err
	}
	return evt, nil
}

// GetEvent returns a single event by id, or (nil, nil) when absent.
func (s *SQLStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, type, date, location, max_capacity, status, created_by, created_at
		FROM events WHERE id = $1
	`, id)
	var evt model.Event
	if err := row.Scan(&evt.ID, &evt.Title, &evt.Description, &evt.Type, &evt.Date, &evt.Location, &evt.MaxCapacity, &evt.Status, &evt.CreatedBy, &evt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// UpdateEvent overwrites mutable event fields.
func (s *SQLStore) UpdateEvent(ctx context.Context, evt model.Event) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = $2, description = $3, type = $4, date = $5, location = $6, max_capacity = $7, status = $8
		WHERE id = $1
	`, evt.ID, evt.Title, evt.Description, evt.Type, evt.Date, evt.Location, evt.MaxCapacity, evt.Status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// ListEvents returns events ordered by date, optionally filtered by status.
func (s *SQLStore) ListEvents(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
	query := `
		SELECT id, title, description, type, date, location, max_capacity, status, created_by, created_at
		FROM events`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY date ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Event
	for rows.Next() {
		var evt model.Event
		if err := rows.Scan(&evt.ID, &evt.Title, &evt.Description, &evt.Type, &evt.Date, &evt.Location, &evt.MaxCapacity, &evt.Status, &evt.CreatedBy, &evt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// CompletePastEvents closes out active events whose date has passed.
func (s *SQLStore) CompletePastEvents(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET status = $1 WHERE status = $2 AND date < $3
	`, model.StatusCompleted, model.StatusActive, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// InsertRegistration writes a registration; ErrDuplicate when the pair exists.
func (s *SQLStore) InsertRegistration(ctx context.Context, reg model.Registration) (model.Registration, error) {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO registrations (id, student_id, event_id)
		VALUES ($1,$2,$3)
		RETURNING registered_at
	`, reg.ID, reg.StudentID, reg.EventID)
	if err := row.Scan(&reg.RegisteredAt); err != nil {
		return model.Registration{}, mapInsertErr(err)
	}
	return reg, nil
}

// FindRegistration returns the registration for a (student, event) pair, or (nil, nil).
func (s *SQLStore) FindRegistration(ctx context.Context, studentID, eventID string) (*model.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, event_id, registered_at
		FROM registrations WHERE student_id = $1 AND event_id = $2
	`, studentID, eventID)
	var reg model.Registration
	if err := row.Scan(&reg.ID, &reg.StudentID, &reg.EventID, &reg.RegisteredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

// CountRegistrations returns the registration count for an event.
func (s *SQLStore) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations WHERE event_id = $1
	`, eventID).Scan(&count)
	return count, err
}

// ListEventRegistrations returns an event's registrations ordered by time.
func (s *SQLStore) ListEventRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, event_id, registered_at
		FROM registrations WHERE event_id = $1 ORDER BY registered_at
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

// ListStudentRegistrations returns a student's registrations ordered by time.
func (s *SQLStore) ListStudentRegistrations(ctx context.Context, studentID string) ([]model.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, event_id, registered_at
		FROM registrations WHERE student_id = $1 ORDER BY registered_at
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegistrations(rows)
}

func scanRegistrations(rows *sql.Rows) ([]model.Registration, error) {
	var res []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.StudentID, &reg.EventID, &reg.RegisteredAt); err != nil {
			return nil, err
		}
		res = append(res, reg)
	}
	return res, rows.Err()
}

// InsertAttendance writes an attendance record; ErrDuplicate when the pair exists.
func (s *SQLStore) InsertAttendance(ctx context.Context, att model.Attendance) (model.Attendance, error) {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, event_id, marked_by)
		VALUES ($1,$2,$3,$4)
		RETURNING marked_at
	`, att.ID, att.StudentID, att.EventID, att.MarkedBy)
	if err := row.Scan(&att.MarkedAt); err != nil {
		return model.Attendance{}, mapInsertErr(err)
	}
	return att, nil
}

// FindAttendance returns the attendance for a (student, event) pair, or (nil, nil).
func (s *SQLStore) FindAttendance(ctx context.Context, studentID, eventID string) (*model.Attendance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, event_id, marked_by, marked_at
		FROM attendance WHERE student_id = $1 AND event_id = $2
	`, studentID, eventID)
	var att model.Attendance
	if err := row.Scan(&att.ID, &att.StudentID, &att.EventID, &att.MarkedBy, &att.MarkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &att, nil
}

// ListEventAttendance returns an event's attendance roster ordered by time.
func (s *SQLStore) ListEventAttendance(ctx context.Context, eventID string) ([]model.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, event_id, marked_by, marked_at
		FROM attendance WHERE event_id = $1 ORDER BY marked_at
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Attendance
	for rows.Next() {
		var att model.Attendance
		if err := rows.Scan(&att.ID, &att.StudentID, &att.EventID, &att.MarkedBy, &att.MarkedAt); err != nil {
			return nil, err
		}
		res = append(res, att)
	}
	return res, rows.Err()
}

// InsertFeedback writes a feedback record; ErrDuplicate when the pair exists.
func (s *SQLStore) InsertFeedback(ctx context.Context, fb model.Feedback) (model.Feedback, error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO feedback (id, student_id, event_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING submitted_at
	`, fb.ID, fb.StudentID, fb.EventID, fb.Rating, fb.Comment)
	if err := row.Scan(&fb.SubmittedAt); err != nil {
		return model.Feedback{}, mapInsertErr(err)
	}
	return fb, nil
}

// FindFeedback returns the feedback for a (student, event) pair, or (nil, nil).
func (s *SQLStore) FindFeedback(ctx context.Context, studentID, eventID string) (*model.Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, event_id, rating, comment, submitted_at
		FROM feedback WHERE student_id = $1 AND event_id = $2
	`, studentID, eventID)
	var fb model.Feedback
	if err := row.Scan(&fb.ID, &fb.StudentID, &fb.EventID, &fb.Rating, &fb.Comment, &fb.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &fb, nil
}

// ListEventFeedback returns an event's feedback ordered by time.
func (s *SQLStore) ListEventFeedback(ctx context.Context, eventID string) ([]model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, event_id, rating, comment, submitted_at
		FROM feedback WHERE event_id = $1 ORDER BY submitted_at
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Feedback
	for rows.Next() {
		var fb model.Feedback
		if err := rows.Scan(&fb.ID, &fb.StudentID, &fb.EventID, &fb.Rating, &fb.Comment, &fb.SubmittedAt); err != nil {
			return nil, err
		}
		res = append(res, fb)
	}
	return res, rows.Err()
}
