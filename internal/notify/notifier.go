// Package notify turns the coordinator's round state into push events.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zaqqye/attendance_backend/internal/attendance"
)

// Event types published to listeners.
const (
	EventRoundStarted   = "round_started"
	EventRoundRestarted = "round_restarted"
	EventRoundEnded     = "round_ended"
)

// Event is the payload pushed to realtime listeners.
type Event struct {
	Type   string             `json:"type"`
	Active bool               `json:"active"`
	Round  *attendance.Status `json:"round,omitempty"`
	SentAt time.Time          `json:"sent_at"`
}

// RoundSource reports the active round, if any.
type RoundSource interface {
	CurrentRound() (attendance.Status, bool)
}

// Publisher delivers an event to every listener.
type Publisher interface {
	Publish(v any)
}

// Notifier polls a RoundSource and publishes an Event whenever the active
// round changes, including the move back to idle.
type Notifier struct {
	source   RoundSource
	pub      Publisher
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	last    attendance.Status
	hasLast bool
}

func New(source RoundSource, pub Publisher, interval time.Duration, logger *zap.Logger) *Notifier {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{source: source, pub: pub, interval: interval, logger: logger}
}

// Start launches the polling loop. Calling it twice is a no-op.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return
	}
	n.started = true

	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.wg.Add(1)
	go n.loop(ctx)
}

// Stop ends the polling loop and waits for it to exit. It is safe to call
// multiple times.
func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	n.wg.Wait()
}

func (n *Notifier) loop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	n.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Poll()
		}
	}
}

// Poll compares the current round with the last one seen and publishes an
// event if it changed. It reports whether an event was published.
func (n *Notifier) Poll() bool {
	status, active := n.source.CurrentRound()

	var ev Event
	switch {
	case active && !n.hasLast:
		ev = Event{Type: EventRoundStarted, Active: true, Round: &status}
	case active && status != n.last:
		typ := EventRoundStarted
		if status.SessionID == n.last.SessionID && status.Round == n.last.Round {
			typ = EventRoundRestarted
		}
		ev = Event{Type: typ, Active: true, Round: &status}
	case !active && n.hasLast:
		ev = Event{Type: EventRoundEnded}
	default:
		return false
	}

	n.last, n.hasLast = status, active
	ev.SentAt = time.Now().UTC()
	n.pub.Publish(ev)
	n.logger.Debug("notify: round state changed", zap.String("event", ev.Type))
	return true
}
