package attendance

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// flushLocked detaches the active round, then writes its buffer back with
// one bulk upsert per attempt. Cancelling ctx does not abort the write. The
// coordinator is idle on return whether or not the write succeeded. Callers
// hold mu.
func (c *Coordinator) flushLocked(ctx context.Context, trigger string) error {
	r := c.active
	if r == nil {
		return ErrNotActive
	}
	if r.timer != nil {
		r.timer.Stop()
	}

	c.stateMu.Lock()
	c.active = nil
	records := r.records()
	c.stateMu.Unlock()

	log := c.logger.With(
		zap.String("trigger", trigger),
		zap.String("session_id", r.sessionID),
		zap.Int("round", r.round),
		zap.Int("records", len(records)))

	if len(records) == 0 {
		c.metrics.Flushed(trigger, 0, nil)
		log.Info("attendance round closed with empty buffer")
		return nil
	}

	// The round is already detached, so the write must not depend on the
	// caller staying around. Each attempt is still bounded by storeTimeout.
	ctx = context.WithoutCancel(ctx)

	attempt := 0
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		opCtx, cancel := c.storeCtx(ctx)
		defer cancel()
		if err := c.store.BulkUpsertAttendance(opCtx, records); err != nil {
			log.Warn("attendance flush attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(c.flushRetries)))

	c.metrics.Flushed(trigger, len(records), err)
	if err != nil {
		log.Error("attendance flush failed, buffered check-ins dropped", zap.Int("attempts", attempt), zap.Error(err))
		return fmt.Errorf("%w: flush after %d attempts: %w", ErrStoreUnavailable, attempt, err)
	}
	log.Info("attendance round flushed")
	return nil
}
