package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusevents/internal/model"
	"campusevents/internal/profile"
	"campusevents/internal/workflow"
)

// fakeCamera counts start/stop calls and can be made to fail.
type fakeCamera struct {
	mu        sync.Mutex
	failStart bool
	running   bool
	starts    int
	stops     int
}

func (c *fakeCamera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failStart {
		return errors.New("device busy")
	}
	c.starts++
	c.running = true
	return nil
}

func (c *fakeCamera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.running = false
}

func (c *fakeCamera) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

type failingResolver struct{ err error }

func (r failingResolver) ByQRCode(context.Context, string) (*profile.Profile, error) {
	return nil, r.err
}

// fixture wires a session against real stores so commits exercise the full
// workflow path.
type fixture struct {
	records  *workflow.MemStore
	profiles *profile.MemStore
	svc      *workflow.Service
	event    model.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	records := workflow.NewMemStore()
	evt, err := records.InsertEvent(context.Background(), model.Event{
		Title:       "Robotics Workshop",
		Type:        model.TypeWorkshop,
		Date:        time.Now().Add(24 * time.Hour),
		MaxCapacity: 50,
		CreatedBy:   "admin-1",
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return &fixture{
		records:  records,
		profiles: profile.NewMemStore(),
		svc:      workflow.NewService(records),
		event:    evt,
	}
}

// addStudent creates a profile and optionally registers it for the event.
func (f *fixture) addStudent(t *testing.T, name string, register bool) profile.Profile {
	t.Helper()
	p, err := f.profiles.Insert(context.Background(), profile.Profile{Name: name, Email: name + "@campus.edu"})
	if err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	if register {
		if _, err := f.svc.Register(context.Background(), p.ID, f.event.ID); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return p
}

func (f *fixture) session(camera Camera, cooldown time.Duration) *Session {
	return NewSession(f.event.ID, "operator-1", camera, f.profiles, f.svc, cooldown)
}

func wantState(t *testing.T, s *Session, want State) {
	t.Helper()
	if got := s.Status().State; got != want {
		t.Fatalf("expected state %q, got %q", want, got)
	}
}

func TestStartRecoversFromCameraError(t *testing.T) {
	f := newFixture(t)
	cam := &fakeCamera{failStart: true}
	sess := f.session(cam, time.Minute)

	err := sess.Start()
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("expected camera unavailable, got %v", err)
	}
	wantState(t, sess, StateCameraError)
	if snap := sess.Status(); snap.Error == "" {
		t.Fatal("expected snapshot to carry the camera error")
	}

	// Operator retries once the device frees up.
	cam.mu.Lock()
	cam.failStart = false
	cam.mu.Unlock()
	if err := sess.Start(); err != nil {
		t.Fatalf("retry start: %v", err)
	}
	wantState(t, sess, StateScanning)
	if !cam.isRunning() {
		t.Fatal("camera should be running while scanning")
	}
}

func TestStartInvalidFromScanning(t *testing.T) {
	f := newFixture(t)
	sess := f.session(&fakeCamera{}, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sess.Start(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestDecodeEmptyPayloadIsNoop(t *testing.T) {
	f := newFixture(t)
	cam := &fakeCamera{}
	sess := f.session(cam, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, err := sess.HandleDecode(context.Background(), "")
	if err != nil || p != nil {
		t.Fatalf("expected no-op, got %v %v", p, err)
	}
	wantState(t, sess, StateScanning)
	if !cam.isRunning() {
		t.Fatal("camera should keep running on an empty frame")
	}
}

func TestDecodeUnknownToken(t *testing.T) {
	f := newFixture(t)
	cam := &fakeCamera{}
	sess := f.session(cam, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := sess.HandleDecode(context.Background(), "not-a-token")
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
	wantState(t, sess, StateLookupError)
	if cam.isRunning() {
		t.Fatal("camera must pause once a frame decodes")
	}
	if snap := sess.Status(); snap.Student != nil {
		t.Fatal("no student should be attached after a failed lookup")
	}

	// Decoding is rejected until the operator resets.
	if _, err := sess.HandleDecode(context.Background(), "x"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := sess.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	wantState(t, sess, StateScanning)
	if !cam.isRunning() {
		t.Fatal("reset should restart the camera")
	}
}

func TestDecodeResolverError(t *testing.T) {
	f := newFixture(t)
	sess := NewSession(f.event.ID, "operator-1", &fakeCamera{}, failingResolver{err: errors.New("store down")}, f.svc, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := sess.HandleDecode(context.Background(), "token")
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
	wantState(t, sess, StateLookupError)
}

func TestConfirmCommitsAndCoolsDown(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, "Asha", true)
	cam := &fakeCamera{}
	sess := f.session(cam, 20*time.Millisecond)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	p, err := sess.HandleDecode(context.Background(), student.QRCode)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p == nil || p.ID != student.ID {
		t.Fatalf("resolved wrong student: %+v", p)
	}
	wantState(t, sess, StateResolved)
	if snap := sess.Status(); snap.Student == nil || snap.Student.ID != student.ID {
		t.Fatalf("snapshot missing resolved student: %+v", snap)
	}

	att, err := sess.Confirm(context.Background())
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if att.StudentID != student.ID || att.EventID != f.event.ID || att.MarkedBy != "operator-1" {
		t.Fatalf("unexpected attendance %+v", att)
	}
	wantState(t, sess, StateCooldown)
	if cam.isRunning() {
		t.Fatal("camera stays paused through the cooldown")
	}
	if snap := sess.Status(); snap.Student != nil {
		t.Fatal("resolved student must clear after commit")
	}

	// Capture resumes on its own after the cooldown.
	deadline := time.Now().Add(time.Second)
	for sess.Status().State != StateScanning {
		if time.Now().After(deadline) {
			t.Fatal("session never resumed after cooldown")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cam.isRunning() {
		t.Fatal("camera should be running again after resume")
	}
}

func TestConfirmUnregisteredKeepsSession(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, "Ravi", false)
	sess := f.session(&fakeCamera{}, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.HandleDecode(context.Background(), student.QRCode); err != nil {
		t.Fatalf("decode: %v", err)
	}

	_, err := sess.Confirm(context.Background())
	reason, ok := workflow.ReasonOf(err)
	if !ok || reason != workflow.ReasonNotRegistered {
		t.Fatalf("expected not_registered, got %v", err)
	}
	// The session stays on the resolved student so the operator decides.
	wantState(t, sess, StateResolved)

	att, findErr := f.records.FindAttendance(context.Background(), student.ID, f.event.ID)
	if findErr != nil {
		t.Fatalf("find attendance: %v", findErr)
	}
	if att != nil {
		t.Fatal("no attendance may be written for an unregistered student")
	}

	if err := sess.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	wantState(t, sess, StateScanning)
}

// Two operator stations scanning the same code: the second confirm surfaces
// the typed duplicate instead of a second record.
func TestConfirmDuplicateAcrossSessions(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, "Meera", true)

	first := f.session(&fakeCamera{}, time.Minute)
	second := NewSession(f.event.ID, "operator-2", &fakeCamera{}, f.profiles, f.svc, time.Minute)
	for _, sess := range []*Session{first, second} {
		if err := sess.Start(); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := sess.HandleDecode(context.Background(), student.QRCode); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}

	if _, err := first.Confirm(context.Background()); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	_, err := second.Confirm(context.Background())
	reason, ok := workflow.ReasonOf(err)
	if !ok || reason != workflow.ReasonAlreadyMarked {
		t.Fatalf("expected already_marked, got %v", err)
	}
	wantState(t, second, StateResolved)

	roster, err := f.records.ListEventAttendance(context.Background(), f.event.ID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("expected one attendance record, got %d", len(roster))
	}
}

func TestConfirmRequiresResolved(t *testing.T) {
	f := newFixture(t)
	sess := f.session(&fakeCamera{}, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.Confirm(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestCloseReleasesCameraFromAnyState(t *testing.T) {
	f := newFixture(t)
	student := f.addStudent(t, "Dev", true)
	cam := &fakeCamera{}
	sess := f.session(cam, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.HandleDecode(context.Background(), student.QRCode); err != nil {
		t.Fatalf("decode: %v", err)
	}

	sess.Close()
	sess.Close() // idempotent
	if cam.isRunning() {
		t.Fatal("close must release the camera")
	}
	if err := sess.Start(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed, got %v", err)
	}
	if _, err := sess.Confirm(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed, got %v", err)
	}

	// Close discarded the resolved student without committing.
	att, err := f.records.FindAttendance(context.Background(), student.ID, f.event.ID)
	if err != nil {
		t.Fatalf("find attendance: %v", err)
	}
	if att != nil {
		t.Fatal("close must not commit attendance")
	}
}

func TestStopReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	cam := &fakeCamera{}
	sess := f.session(cam, time.Minute)
	if err := sess.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sess.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	wantState(t, sess, StateIdle)
	if cam.isRunning() {
		t.Fatal("stop must release the camera")
	}
	// Idle sessions can start again.
	if err := sess.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	wantState(t, sess, StateScanning)
}

func TestManagerReplacesSession(t *testing.T) {
	f := newFixture(t)
	var cams []*fakeCamera
	mgr := NewManager(func() Camera {
		cam := &fakeCamera{}
		cams = append(cams, cam)
		return cam
	}, f.profiles, f.svc, time.Minute)

	first, err := mgr.Open("operator-1", f.event.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	wantState(t, first, StateScanning)

	second, err := mgr.Open("operator-1", f.event.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if mgr.Get("operator-1") != second {
		t.Fatal("manager should hand back the replacement session")
	}
	if cams[0].isRunning() {
		t.Fatal("replaced session must release its camera")
	}
	if err := first.Start(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected replaced session closed, got %v", err)
	}

	mgr.Release("operator-1")
	if mgr.Get("operator-1") != nil {
		t.Fatal("released operator should have no session")
	}
	if cams[1].isRunning() {
		t.Fatal("release must stop the camera")
	}
}
