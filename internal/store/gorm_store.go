// Package store persists sessions and attendance records with gorm.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/attendance_backend/internal/attendance"
	"github.com/zaqqye/attendance_backend/internal/models"
)

// upsertBatchSize keeps a single INSERT below driver parameter limits.
const upsertBatchSize = 500

// GormStore implements attendance.Store.
type GormStore struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) FindSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	if err := s.DB.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Session{}, attendance.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (s *GormStore) LoadAttendance(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	var records []models.Attendance
	if err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("user_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// BulkUpsertAttendance writes every record in one statement per batch,
// replacing the stored rounds of existing (user, session) rows.
func (s *GormStore) BulkUpsertAttendance(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.Attendance, len(records))
	now := time.Now().UTC()
	for i, rec := range records {
		rows[i] = rec.Clone()
		// let the database pick ids for new rows; conflicts resolve on the key
		rows[i].ID = 0
		rows[i].UpdatedAt = now
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rounds", "updated_at"}),
		}).
		CreateInBatches(&rows, upsertBatchSize).Error
}

// IncrementSessionRounds bumps the counter with a conditional update, so it
// can never pass max even across processes.
func (s *GormStore) IncrementSessionRounds(ctx context.Context, sessionID string, max int) (int, error) {
	var count int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("id = ? AND rounds_started < ?", sessionID, max).
			UpdateColumn("rounds_started", gorm.Expr("rounds_started + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		var session models.Session
		if err := tx.Select("rounds_started").Where("id = ?", sessionID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return attendance.ErrSessionNotFound
			}
			return err
		}
		count = session.RoundsStarted
		if res.RowsAffected == 0 {
			return attendance.ErrMaxRoundsReached
		}
		return nil
	})
	return count, err
}

// CreateSession inserts session and one empty attendance record per user.
func (s *GormStore) CreateSession(ctx context.Context, session *models.Session, users []models.User) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		records := make([]models.Attendance, 0, len(users))
		for _, u := range users {
			records = append(records, models.Attendance{
				UserID:      u.UserID,
				UserName:    u.FullName,
				SessionID:   session.ID,
				SessionName: session.Name,
				SessionDate: session.Date,
				Rounds:      models.Rounds{},
			})
		}
		return tx.CreateInBatches(&records, upsertBatchSize).Error
	})
}

func (s *GormStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.DB.WithContext(ctx).Order("date DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *GormStore) ListUserAttendance(ctx context.Context, userID string) ([]models.Attendance, error) {
	var records []models.Attendance
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("session_date DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) ActiveUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
