package models

import (
	"time"

	"gorm.io/datatypes"
)

// RoundEntry is the presence flag of one user for one round of a session.
type RoundEntry struct {
	Round   int  `json:"round"`
	Present bool `json:"present"`
}

// Rounds is stored as a JSON column.
type Rounds = datatypes.JSONSlice[RoundEntry]

// Attendance holds every round entry of one user for one session.
type Attendance struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"uniqueIndex:uniq_user_session;not null"`
	UserName    string
	SessionID   string `gorm:"uniqueIndex:uniq_user_session;index;not null"`
	SessionName string
	SessionDate time.Time
	Rounds      Rounds
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Entry returns the entry for round, if any.
func (a *Attendance) Entry(round int) (RoundEntry, bool) {
	for _, e := range a.Rounds {
		if e.Round == round {
			return e, true
		}
	}
	return RoundEntry{}, false
}

// SetRound looks up the entry for round and sets it, appending one when the
// round is not recorded yet. Entries stay unique per round.
func (a *Attendance) SetRound(round int, present bool) {
	for i := range a.Rounds {
		if a.Rounds[i].Round == round {
			a.Rounds[i].Present = present
			return
		}
	}
	a.Rounds = append(a.Rounds, RoundEntry{Round: round, Present: present})
}

// Clone returns a copy that shares no round entries with a.
func (a Attendance) Clone() Attendance {
	out := a
	if a.Rounds != nil {
		out.Rounds = make(Rounds, len(a.Rounds))
		copy(out.Rounds, a.Rounds)
	}
	return out
}
