package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/attendance_backend/internal/attendance"
)

// statusFor maps coordinator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, attendance.ErrAlreadyActive),
		errors.Is(err, attendance.ErrAlreadyCheckedIn):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrMaxRoundsReached),
		errors.Is(err, attendance.ErrRoundMismatch),
		errors.Is(err, attendance.ErrRoundNotStarted),
		errors.Is(err, attendance.ErrEmptyRoster),
		errors.Is(err, attendance.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrNotActive),
		errors.Is(err, attendance.ErrUserNotFound),
		errors.Is(err, attendance.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrStoreUnavailable),
		errors.Is(err, attendance.ErrShutdown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable || status == http.StatusInternalServerError {
		// store details stay in the logs
		_ = c.Error(err)
		msg = attendance.ErrStoreUnavailable.Error()
		if errors.Is(err, attendance.ErrShutdown) {
			msg = attendance.ErrShutdown.Error()
		}
	}
	c.JSON(status, gin.H{"error": msg})
}
