package attendance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zaqqye/attendance_backend/internal/telemetry"
)

// armTimerLocked replaces any timer of r with a new one for the current TTL.
// Callers hold mu.
func (c *Coordinator) armTimerLocked(r *activeRound) {
	if r.timer != nil {
		r.timer.Stop()
	}
	c.epoch++
	epoch := c.epoch
	r.epoch = epoch
	r.timer = time.AfterFunc(c.ttl, func() {
		c.expire(epoch)
	})
}

// expire flushes the active round if it still belongs to epoch and its
// deadline has passed. A callback from a replaced timer is a no-op.
func (c *Coordinator) expire(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.active
	if r == nil || r.epoch != epoch {
		return
	}
	if now := c.now(); now.Before(r.expiresAt) {
		c.logger.Debug("expiry timer fired before deadline, rescheduling",
			zap.String("session_id", r.sessionID),
			zap.Time("expires_at", r.expiresAt))
		if r.timer != nil {
			r.timer.Stop()
		}
		r.timer = time.AfterFunc(r.expiresAt.Sub(now), func() {
			c.expire(epoch)
		})
		return
	}

	c.logger.Info("attendance round expired",
		zap.String("session_id", r.sessionID),
		zap.Int("round", r.round))
	_ = c.flushLocked(context.Background(), telemetry.TriggerExpiry)
}
