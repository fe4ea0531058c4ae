// Package scan turns a continuous camera feed into single confirmed
// attendance records. A session is a small state machine: decode pauses
// capture, the token is resolved to a student, a human operator confirms, the
// commit goes through the workflow facade, and after a short cooldown capture
// resumes. The pipeline never auto-commits from a decode alone; the QR token
// has no binding to the physical holder, so the confirm step is the only
// defense against a photographed or stolen code.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campusevents/internal/metrics"
	"campusevents/internal/model"
	"campusevents/internal/profile"
)

// State of a scanning session.
type State string

const (
	StateIdle        State = "idle"
	StateScanning    State = "scanning"
	StateDecoded     State = "decoded"
	StateResolved    State = "resolved"
	StateCooldown    State = "cooldown"
	StateCameraError State = "camera_error"
	StateLookupError State = "lookup_error"
)

// Recoverable pipeline errors. Both leave the session in a state the
// operator can retry or reset out of; neither terminates the session.
var (
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrLookupFailed      = errors.New("lookup failed")

	// ErrInvalidState is returned when an operation does not apply to the
	// session's current state.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrClosed is returned after teardown.
	ErrClosed = errors.New("scan session closed")
)

// Camera is the capture device owned exclusively by one session. It must be
// released on every exit path.
type Camera interface {
	Start() error
	Stop()
}

// Resolver looks up a profile by its QR token. A missing profile is
// (nil, nil).
type Resolver interface {
	ByQRCode(ctx context.Context, token string) (*profile.Profile, error)
}

// Committer marks attendance for a confirmed scan. *workflow.Service
// satisfies this.
type Committer interface {
	MarkAttendance(ctx context.Context, studentID, eventID, operatorID string) (model.Attendance, error)
}

// Session drives one operator's scan workflow for one event.
type Session struct {
	mu        sync.Mutex
	state     State
	closed    bool
	eventID   string
	operator  string
	camera    Camera
	resolver  Resolver
	committer Committer
	cooldown  time.Duration
	student   *profile.Profile
	lastError string
	timer     *time.Timer
}

// NewSession creates an idle session for one operator and event.
func NewSession(eventID, operatorID string, camera Camera, resolver Resolver, committer Committer, cooldown time.Duration) *Session {
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	return &Session{
		state:     StateIdle,
		eventID:   eventID,
		operator:  operatorID,
		camera:    camera,
		resolver:  resolver,
		committer: committer,
		cooldown:  cooldown,
	}
}

// Start acquires the camera and begins scanning. Retryable from idle and from
// camera_error.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != StateIdle && s.state != StateCameraError {
		return ErrInvalidState
	}
	return s.startCameraLocked()
}

func (s *Session) startCameraLocked() error {
	if err := s.camera.Start(); err != nil {
		s.state = StateCameraError
		s.lastError = err.Error()
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	s.state = StateScanning
	s.lastError = ""
	return nil
}

// HandleDecode processes one decoded frame payload. Capture pauses
// immediately so consecutive frames of the same code cannot trigger duplicate
// lookups. An unknown or failed token moves the session to lookup_error with
// the camera stopped; Reset recovers.
func (s *Session) HandleDecode(ctx context.Context, payload string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.state != StateScanning {
		return nil, ErrInvalidState
	}
	if payload == "" {
		return nil, nil
	}

	s.camera.Stop()
	s.state = StateDecoded

	p, err := s.resolver.ByQRCode(ctx, payload)
	if err != nil || p == nil {
		s.state = StateLookupError
		s.lastError = "invalid QR code or student not found"
		metrics.ScanDecodes.WithLabelValues("lookup_error").Inc()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
		return nil, ErrLookupFailed
	}

	s.student = p
	s.state = StateResolved
	s.lastError = ""
	metrics.ScanDecodes.WithLabelValues("resolved").Inc()
	return p, nil
}

// Confirm is the human checkpoint: the operator has reviewed the resolved
// student and commits attendance. The commit runs to a definite
// success/failure under the session lock; the session cannot be reset or torn
// down mid-commit. On success the session cools down, then capture resumes.
// On a workflow failure the session returns to resolved so the operator can
// cancel or retry.
func (s *Session) Confirm(ctx context.Context) (model.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Attendance{}, ErrClosed
	}
	if s.state != StateResolved || s.student == nil {
		return model.Attendance{}, ErrInvalidState
	}

	att, err := s.committer.MarkAttendance(ctx, s.student.ID, s.eventID, s.operator)
	if err != nil {
		s.lastError = err.Error()
		return model.Attendance{}, err
	}

	s.student = nil
	s.lastError = ""
	s.state = StateCooldown
	s.timer = time.AfterFunc(s.cooldown, s.resume)
	return att, nil
}

// resume restarts capture after the post-commit cooldown.
func (s *Session) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateCooldown {
		return
	}
	_ = s.startCameraLocked()
}

// Cancel abandons a resolved student without committing and resumes scanning.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != StateResolved {
		return ErrInvalidState
	}
	s.student = nil
	return s.startCameraLocked()
}

// Reset recovers from lookup_error (or abandons any non-committing state) and
// returns to scanning with the camera active.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.camera.Stop()
	s.student = nil
	return s.startCameraLocked()
}

// Stop releases the camera and returns the session to idle.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.camera.Stop()
	s.student = nil
	s.state = StateIdle
	s.lastError = ""
	return nil
}

// Close tears the session down from any state: the camera is released, any
// in-flight decode is discarded, and no commit occurs. The session is
// unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.camera.Stop()
	s.student = nil
	s.closed = true
	s.state = StateIdle
}

// Snapshot is the observable session state for the operator surface.
type Snapshot struct {
	State   State            `json:"state"`
	EventID string           `json:"event_id"`
	Student *profile.Profile `json:"student,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Status returns the current snapshot.
func (s *Session) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, EventID: s.eventID, Student: s.student, Error: s.lastError}
}
