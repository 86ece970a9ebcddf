package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/attendance_backend/internal/middleware"
	"github.com/zaqqye/attendance_backend/internal/models"
)

// SessionStore is the persistence the session and report endpoints need.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session, users []models.User) error
	ListSessions(ctx context.Context) ([]models.Session, error)
	FindSession(ctx context.Context, sessionID string) (models.Session, error)
	LoadAttendance(ctx context.Context, sessionID string) ([]models.Attendance, error)
	ListUserAttendance(ctx context.Context, userID string) ([]models.Attendance, error)
	ActiveUsers(ctx context.Context) ([]models.User, error)
}

type SessionController struct {
	Store SessionStore
}

type createSessionRequest struct {
	Name string `json:"name" binding:"required"`
	// RFC 3339 timestamp or YYYY-MM-DD; defaults to now.
	Date string `json:"date"`
}

type sessionResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Date          time.Time `json:"date"`
	RoundsStarted int       `json:"rounds_started"`
	CreatedAt     time.Time `json:"created_at"`
}

type attendanceResponse struct {
	UserID      string        `json:"user_id"`
	UserName    string        `json:"user_name"`
	SessionID   string        `json:"session_id"`
	SessionName string        `json:"session_name"`
	SessionDate time.Time     `json:"session_date"`
	Rounds      models.Rounds `json:"rounds"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func toSessionResponse(s models.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		Name:          s.Name,
		Date:          s.Date,
		RoundsStarted: s.RoundsStarted,
		CreatedAt:     s.CreatedAt,
	}
}

func toAttendanceResponses(records []models.Attendance) []attendanceResponse {
	out := make([]attendanceResponse, 0, len(records))
	for _, r := range records {
		rounds := r.Rounds
		if rounds == nil {
			rounds = models.Rounds{}
		}
		out = append(out, attendanceResponse{
			UserID:      r.UserID,
			UserName:    r.UserName,
			SessionID:   r.SessionID,
			SessionName: r.SessionName,
			SessionDate: r.SessionDate,
			Rounds:      rounds,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return out
}

func parseSessionDate(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, v)
}

// CreateSession stores a session and seeds an empty attendance record for
// every active member.
func (s *SessionController) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseSessionDate(req.Date, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	ctx := c.Request.Context()
	users, err := s.Store.ActiveUsers(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	members := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleMember {
			members = append(members, u)
		}
	}

	session := models.Session{Name: req.Name, Date: date}
	if err := s.Store.CreateSession(ctx, &session, members); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session": toSessionResponse(session),
		"members": len(members),
	})
}

func (s *SessionController) ListSessions(c *gin.Context) {
	sessions, err := s.Store.ListSessions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *SessionController) GetSession(c *gin.Context) {
	session, err := s.Store.FindSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session))
}

// SessionAttendance reports the persisted attendance of a session. Marks of
// a round still in progress appear once it closes.
func (s *SessionController) SessionAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.Store.FindSession(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	records, err := s.Store.LoadAttendance(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAttendanceResponses(records)})
}

func (s *SessionController) MyAttendance(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	records, err := s.Store.ListUserAttendance(c.Request.Context(), user.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAttendanceResponses(records)})
}
