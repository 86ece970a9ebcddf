package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one scheduled meeting. RoundsStarted counts the attendance
// rounds opened so far and only grows.
type Session struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"not null"`
	Date          time.Time `gorm:"index"`
	RoundsStarted int       `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
