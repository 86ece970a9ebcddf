package attendance

import (
	"sort"
	"time"

	"github.com/zaqqye/attendance_backend/internal/models"
)

// Ticket is what an administrator gets back when a round opens or restarts.
type Ticket struct {
	SessionID string    `json:"session_id"`
	Round     int       `json:"round"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Status is the public view of the active round. It never carries the code.
type Status struct {
	SessionID string    `json:"session_id"`
	Round     int       `json:"round"`
	ExpiresAt time.Time `json:"expires_at"`
}

type activeRound struct {
	sessionID string
	round     int
	code      string
	expiresAt time.Time
	buffer    map[string]*models.Attendance // keyed by user id

	timer *time.Timer
	epoch uint64
}

// newActiveRound copies records into a fresh buffer with the round entry of
// every user forced to absent.
func newActiveRound(sessionID string, round int, code string, records []models.Attendance) *activeRound {
	r := &activeRound{
		sessionID: sessionID,
		round:     round,
		code:      code,
		buffer:    make(map[string]*models.Attendance, len(records)),
	}
	for _, rec := range records {
		cp := rec.Clone()
		cp.SetRound(round, false)
		r.buffer[cp.UserID] = &cp
	}
	return r
}

func (r *activeRound) resetMarks() {
	for _, rec := range r.buffer {
		rec.SetRound(r.round, false)
	}
}

// records snapshots the buffer, ordered by user id.
func (r *activeRound) records() []models.Attendance {
	out := make([]models.Attendance, 0, len(r.buffer))
	for _, rec := range r.buffer {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (r *activeRound) ticket() Ticket {
	return Ticket{
		SessionID: r.sessionID,
		Round:     r.round,
		Code:      r.code,
		ExpiresAt: r.expiresAt,
	}
}

func (r *activeRound) status() Status {
	return Status{
		SessionID: r.sessionID,
		Round:     r.round,
		ExpiresAt: r.expiresAt,
	}
}
