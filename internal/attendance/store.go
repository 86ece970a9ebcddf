package attendance

import (
	"context"

	"github.com/zaqqye/attendance_backend/internal/models"
)

// Store is the persistent side of the coordinator.
type Store interface {
	// FindSession returns ErrSessionNotFound when the id is unknown.
	FindSession(ctx context.Context, sessionID string) (models.Session, error)
	LoadAttendance(ctx context.Context, sessionID string) ([]models.Attendance, error)
	// BulkUpsertAttendance replaces the rounds of every record, keyed by
	// (user, session), in one batch.
	BulkUpsertAttendance(ctx context.Context, records []models.Attendance) error
	// IncrementSessionRounds advances the round counter and returns the new
	// count, or ErrMaxRoundsReached if the counter is already at max.
	IncrementSessionRounds(ctx context.Context, sessionID string, max int) (int, error)
}
