package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/attendance_backend/internal/attendance"
	"github.com/zaqqye/attendance_backend/internal/middleware"
)

// RoundService is the part of the attendance coordinator the HTTP layer uses.
type RoundService interface {
	OpenRound(ctx context.Context, sessionID string) (attendance.Ticket, error)
	RestartRound(ctx context.Context, sessionID string, round int) (attendance.Ticket, error)
	CloseRound(ctx context.Context) error
	VerifyAndMark(userID, code string) error
	CurrentRound() (attendance.Status, bool)
	ActiveTicket() (attendance.Ticket, bool)
	IsCheckedIn(userID string) (bool, error)
}

// EventSource hands out listeners for round change events.
type EventSource interface {
	Subscribe() (<-chan []byte, func())
}

type RoundController struct {
	Rounds RoundService
	Stream EventSource
}

type checkInRequest struct {
	Code FlexibleString `json:"code" binding:"required"`
}

// Open starts the next round of a session.
func (r *RoundController) Open(c *gin.Context) {
	ticket, err := r.Rounds.OpenRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyActive) {
			c.JSON(http.StatusConflict, gin.H{
				"error":  err.Error(),
				"active": ticket,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// Restart reissues the code of a round, reloading it from the store when no
// round is active.
func (r *RoundController) Restart(c *gin.Context) {
	round, err := strconv.Atoi(c.Param("round"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round"})
		return
	}
	ticket, err := r.Rounds.RestartRound(c.Request.Context(), c.Param("id"), round)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (r *RoundController) Close(c *gin.Context) {
	if err := r.Rounds.CloseRound(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "round closed"})
}

// AdminCurrent returns the active round including its code.
func (r *RoundController) AdminCurrent(c *gin.Context) {
	ticket, ok := r.Rounds.ActiveTicket()
	if !ok {
		respondError(c, attendance.ErrNotActive)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// Current returns the public view of the active round and whether the
// caller already checked in.
func (r *RoundController) Current(c *gin.Context) {
	status, ok := r.Rounds.CurrentRound()
	if !ok {
		respondError(c, attendance.ErrNotActive)
		return
	}
	resp := gin.H{
		"session_id": status.SessionID,
		"round":      status.Round,
		"expires_at": status.ExpiresAt,
	}
	if user, ok := middleware.CurrentUser(c); ok {
		checked, err := r.Rounds.IsCheckedIn(user.UserID)
		switch {
		case err == nil:
			resp["is_checked"] = checked
		case errors.Is(err, attendance.ErrNotActive):
			// closed between the two calls
			respondError(c, err)
			return
		default:
			resp["is_checked"] = false
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (r *RoundController) CheckIn(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := r.Rounds.VerifyAndMark(user.UserID, req.Code.String()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "checked in"})
}

// Events streams round changes as server-sent events.
func (r *RoundController) Events(c *gin.Context) {
	if r.Stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
		return
	}
	ch, unsubscribe := r.Stream.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("round", string(msg))
			c.Writer.Flush()
		}
	}
}
