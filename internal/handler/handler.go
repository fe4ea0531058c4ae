package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusevents/internal/auth"
	"campusevents/internal/model"
	"campusevents/internal/profile"
	"campusevents/internal/queue"
	"campusevents/internal/scan"
	"campusevents/internal/store"
	"campusevents/internal/workflow"
)

// Handler wires the workflow facade, profile store, and scan sessions to the
// HTTP surface.
type Handler struct {
	svc      *workflow.Service
	records  workflow.Store
	profiles profile.Store
	scans    *scan.Manager
	cache    *store.Redis // nil when redis is not configured
	q        queue.Queue

	jwtIssuer  string
	jwtKey     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New creates the handler set.
func New(svc *workflow.Service, records workflow.Store, profiles profile.Store, scans *scan.Manager, cache *store.Redis, q queue.Queue, jwtIssuer, jwtKey string, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{
		svc:        svc,
		records:    records,
		profiles:   profiles,
		scans:      scans,
		cache:      cache,
		q:          q,
		jwtIssuer:  jwtIssuer,
		jwtKey:     jwtKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// renderError maps typed workflow and scan failures to HTTP responses.
// Raw store errors never reach the client.
func renderError(c *gin.Context, err error) {
	if reason, ok := workflow.ReasonOf(err); ok {
		status := http.StatusConflict
		switch reason {
		case workflow.ReasonUnauthenticated:
			status = http.StatusUnauthorized
		case workflow.ReasonInvalidRating:
			status = http.StatusBadRequest
		case workflow.ReasonEventNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "reason": reason})
		return
	}
	switch {
	case errors.Is(err, scan.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, scan.ErrLookupFailed):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid QR code or student not found"})
	case errors.Is(err, scan.ErrCameraUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, scan.ErrClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ---------- Auth ----------

type signupRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Role        string `json:"role"`
	SRN         string `json:"srn"`
	CollegeName string `json:"college_name"`
	Phone       string `json:"phone"`
}

// Signup creates a profile (with its one-time QR token) and issues tokens.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Role is self-selected at signup; anyone may claim admin. Deployments
	// that need vetted operators must gate this route upstream.
	role := req.Role
	if role != profile.RoleAdmin {
		role = profile.RoleStudent
	}
	p, err := h.profiles.Insert(c.Request.Context(), profile.Profile{
		Name:        req.Name,
		Email:       req.Email,
		Role:        role,
		SRN:         req.SRN,
		CollegeName: req.CollegeName,
		Phone:       req.Phone,
	})
	if err != nil {
		log.Printf("profile insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	tokens, err := auth.Issue(p.ID, p.Role, h.jwtIssuer, h.jwtKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"profile":       p,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Profiles ----------

// MyProfile returns the authenticated actor's profile.
func (h *Handler) MyProfile(c *gin.Context) {
	claims, _ := auth.Actor(c)
	p, err := h.profiles.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		renderError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// MyQR renders the actor's QR token as a PNG for scanning at the door.
func (h *Handler) MyQR(c *gin.Context) {
	claims, _ := auth.Actor(c)
	p, err := h.profiles.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		renderError(c, err)
		return
	}
	if p == nil || p.QRCode == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	png, err := profile.QRImage(p.QRCode, 256)
	if err != nil {
		log.Printf("qr encode failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ---------- Events ----------

type eventRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Type        model.EventType `json:"type" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Location    string          `json:"location"`
	MaxCapacity int             `json:"max_capacity" binding:"required"`
}

// CreateEvent creates an event owned by the admin actor.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.Actor(c)
	evt, err := h.svc.CreateEvent(c.Request.Context(), model.Event{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Date:        req.Date,
		Location:    req.Location,
		MaxCapacity: req.MaxCapacity,
		CreatedBy:   claims.Subject,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, evt)
}

// UpdateEvent applies admin edits.
func (h *Handler) UpdateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	evt, err := h.svc.UpdateEvent(c.Request.Context(), model.Event{
		ID:          c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Date:        req.Date,
		Location:    req.Location,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, evt)
}

// CancelEvent transitions an active event to cancelled.
func (h *Handler) CancelEvent(c *gin.Context) {
	evt, err := h.svc.CancelEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, evt)
}

// ListEvents returns events, optionally filtered by status.
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.records.ListEvents(c.Request.Context(), model.EventStatus(c.Query("status")))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEvent returns one event.
func (h *Handler) GetEvent(c *gin.Context) {
	evt, err := h.records.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	if evt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	c.JSON(http.StatusOK, evt)
}

// Overview returns every event classified for the student, with the one
// primary action the dashboard should offer.
func (h *Handler) Overview(c *gin.Context) {
	claims, _ := auth.Actor(c)
	views, err := h.svc.Overview(c.Request.Context(), claims.Subject)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": views})
}

// ---------- Registration ----------

// Register signs the student up for an event.
func (h *Handler) Register(c *gin.Context) {
	claims, _ := auth.Actor(c)
	eventID := c.Param("id")
	reg, err := h.svc.Register(c.Request.Context(), claims.Subject, eventID)
	if err != nil {
		renderError(c, err)
		return
	}
	if err := h.cache.IncrRegistrationCount(c.Request.Context(), eventID); err != nil {
		log.Printf("registration counter incr failed: %v", err)
	}
	if h.q != nil {
		if err := h.q.Publish(c.Request.Context(), queue.Message{Type: queue.TypeRegistration, Body: []byte(eventID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}
	c.JSON(http.StatusCreated, reg)
}

// MyRegistrations lists the student's registrations.
func (h *Handler) MyRegistrations(c *gin.Context) {
	claims, _ := auth.Actor(c)
	regs, err := h.records.ListStudentRegistrations(c.Request.Context(), claims.Subject)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs})
}

// EventRegistrations lists an event's registrations for admins.
func (h *Handler) EventRegistrations(c *gin.Context) {
	regs, err := h.records.ListEventRegistrations(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs})
}

// ---------- Attendance ----------

// EventAttendance lists an event's attendance roster for admins.
func (h *Handler) EventAttendance(c *gin.Context) {
	atts, err := h.records.ListEventAttendance(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": atts})
}

// ---------- Feedback ----------

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitFeedback records the student's post-event rating.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.Actor(c)
	fb, err := h.svc.SubmitFeedback(c.Request.Context(), claims.Subject, c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// EventFeedback lists an event's feedback for admins.
func (h *Handler) EventFeedback(c *gin.Context) {
	fbs, err := h.records.ListEventFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": fbs})
}

// ---------- Scan sessions ----------

type scanStartRequest struct {
	EventID string `json:"event_id" binding:"required"`
}

// ScanStart opens a scan session for the operator, replacing any previous one.
func (h *Handler) ScanStart(c *gin.Context) {
	var req scanStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.Actor(c)
	sess, err := h.scans.Open(claims.Subject, req.EventID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.Status())
}

// ScanStatus reports the operator's session snapshot.
func (h *Handler) ScanStatus(c *gin.Context) {
	sess := h.session(c)
	if sess == nil {
		return
	}
	c.JSON(http.StatusOK, sess.Status())
}

type scanDecodeRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// ScanDecode feeds one decoded frame payload into the session.
func (h *Handler) ScanDecode(c *gin.Context) {
	var req scanDecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := h.session(c)
	if sess == nil {
		return
	}
	student, err := sess.HandleDecode(c.Request.Context(), req.Payload)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student, "state": sess.Status().State})
}

// ScanConfirm is the operator's explicit confirmation; it commits attendance.
func (h *Handler) ScanConfirm(c *gin.Context) {
	sess := h.session(c)
	if sess == nil {
		return
	}
	att, err := sess.Confirm(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	if h.q != nil {
		if err := h.q.Publish(c.Request.Context(), queue.Message{Type: queue.TypeAttendanceMarked, Body: []byte(att.ID)}); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}
	c.JSON(http.StatusCreated, att)
}

// ScanCancel abandons the resolved student without committing.
func (h *Handler) ScanCancel(c *gin.Context) {
	sess := h.session(c)
	if sess == nil {
		return
	}
	if err := sess.Cancel(); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Status())
}

// ScanReset recovers from an error state back to scanning.
func (h *Handler) ScanReset(c *gin.Context) {
	sess := h.session(c)
	if sess == nil {
		return
	}
	if err := sess.Reset(); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Status())
}

// ScanStop releases the camera and idles the session.
func (h *Handler) ScanStop(c *gin.Context) {
	sess := h.session(c)
	if sess == nil {
		return
	}
	if err := sess.Stop(); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Status())
}

// ScanRelease tears the operator's session down entirely.
func (h *Handler) ScanRelease(c *gin.Context) {
	claims, _ := auth.Actor(c)
	h.scans.Release(claims.Subject)
	c.Status(http.StatusNoContent)
}

func (h *Handler) session(c *gin.Context) *scan.Session {
	claims, _ := auth.Actor(c)
	sess := h.scans.Get(claims.Subject)
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active scan session"})
		return nil
	}
	return sess
}
