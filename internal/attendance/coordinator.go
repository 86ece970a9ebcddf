package attendance

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zaqqye/attendance_backend/internal/models"
	"github.com/zaqqye/attendance_backend/internal/telemetry"
	"github.com/zaqqye/attendance_backend/internal/utils"
)

const (
	DefaultTTL          = 10 * time.Minute
	DefaultMaxRounds    = 3
	DefaultFlushRetries = 3
	DefaultStoreTimeout = 5 * time.Second
	CodeLength          = 4

	// codeRedraws bounds how often a restart redraws to avoid repeating the
	// previous code.
	codeRedraws = 8
)

// Coordinator owns the single active round. Build one per process with New
// and share it between handlers.
type Coordinator struct {
	store Store

	ttl           time.Duration
	maxRounds     int
	flushRetries  int
	storeTimeout  time.Duration
	retryInterval time.Duration

	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
	newCode func() (string, error)

	// mu is the admin critical section, held across store I/O.
	mu       sync.Mutex
	epoch    uint64
	shutdown bool

	// stateMu guards active and the contents of its buffer.
	stateMu sync.RWMutex
	active  *activeRound
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTTL sets how long a round stays open after open or restart.
func WithTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxRounds caps the rounds a session may run.
func WithMaxRounds(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithFlushRetries sets how many upsert attempts a flush makes before it
// gives up and drops to idle.
func WithFlushRetries(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.flushRetries = n
		}
	}
}

// WithStoreTimeout bounds every single store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.storeTimeout = d
		}
	}
}

// WithRetryInterval sets the initial backoff between flush attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(c *Coordinator) {
		if gen != nil {
			c.newCode = gen
		}
	}
}

// New creates an idle coordinator backed by store.
func New(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:         store,
		ttl:           DefaultTTL,
		maxRounds:     DefaultMaxRounds,
		flushRetries:  DefaultFlushRetries,
		storeTimeout:  DefaultStoreTimeout,
		retryInterval: 200 * time.Millisecond,
		logger:        zap.NewNop(),
		now:           time.Now,
		newCode: func() (string, error) {
			return utils.GenerateDigits(CodeLength)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenRound starts the next round of a session. While another round is
// active it returns that round's ticket together with ErrAlreadyActive.
func (c *Coordinator) OpenRound(ctx context.Context, sessionID string) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return Ticket{}, ErrShutdown
	}
	if t, ok := c.ActiveTicket(); ok {
		return t, ErrAlreadyActive
	}

	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return Ticket{}, err
	}
	if session.RoundsStarted >= c.maxRounds {
		return Ticket{}, ErrMaxRoundsReached
	}

	r, err := c.loadRound(ctx, sessionID, session.RoundsStarted)
	if err != nil {
		return Ticket{}, err
	}

	opCtx, cancel := c.storeCtx(ctx)
	_, err = c.store.IncrementSessionRounds(opCtx, sessionID, c.maxRounds)
	cancel()
	if err != nil {
		return Ticket{}, storeErr(err)
	}

	c.activateLocked(r, "open")
	return r.ticket(), nil
}

// RestartRound runs round again with a new code. If that round is active it
// is reset in place; if nothing is active the records are reloaded from the
// store first.
func (c *Coordinator) RestartRound(ctx context.Context, sessionID string, round int) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return Ticket{}, ErrShutdown
	}
	if round < 0 {
		return Ticket{}, ErrRoundNotStarted
	}

	if r := c.active; r != nil {
		if r.sessionID != sessionID || r.round != round {
			return Ticket{}, ErrRoundMismatch
		}
		return c.warmRestartLocked(r)
	}
	return c.coldRestartLocked(ctx, sessionID, round)
}

func (c *Coordinator) warmRestartLocked(r *activeRound) (Ticket, error) {
	code, err := c.drawCode(r.code)
	if err != nil {
		return Ticket{}, err
	}
	if r.timer != nil {
		r.timer.Stop()
	}

	c.stateMu.Lock()
	r.code = code
	r.expiresAt = c.now().Add(c.ttl)
	r.resetMarks()
	c.stateMu.Unlock()

	c.armTimerLocked(r)
	c.metrics.RoundOpened("warm_restart")
	c.logger.Info("attendance round restarted",
		zap.String("session_id", r.sessionID),
		zap.Int("round", r.round),
		zap.Time("expires_at", r.expiresAt))
	return r.ticket(), nil
}

func (c *Coordinator) coldRestartLocked(ctx context.Context, sessionID string, round int) (Ticket, error) {
	session, err := c.findSession(ctx, sessionID)
	if err != nil {
		return Ticket{}, err
	}
	if round >= session.RoundsStarted {
		return Ticket{}, ErrRoundNotStarted
	}

	r, err := c.loadRound(ctx, sessionID, round)
	if err != nil {
		return Ticket{}, err
	}
	c.activateLocked(r, "cold_restart")
	return r.ticket(), nil
}

// VerifyAndMark checks code against the active round and marks userID present.
func (c *Coordinator) VerifyAndMark(userID, code string) error {
	err := c.verifyAndMark(userID, code)
	c.metrics.CheckIn(checkInResult(err))
	return err
}

func (c *Coordinator) verifyAndMark(userID, code string) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	r := c.active
	if r == nil || !c.now().Before(r.expiresAt) {
		return ErrNotActive
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(r.code)) != 1 {
		return ErrInvalidCode
	}
	rec, ok := r.buffer[userID]
	if !ok {
		return ErrUserNotFound
	}
	if e, ok := rec.Entry(r.round); ok && e.Present {
		return ErrAlreadyCheckedIn
	}
	rec.SetRound(r.round, true)
	return nil
}

// CloseRound flushes the active round and returns to idle.
func (c *Coordinator) CloseRound(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNotActive
	}
	return c.flushLocked(ctx, telemetry.TriggerClose)
}

// Shutdown flushes an active round and refuses further opens.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shutdown = true
	if c.active == nil {
		return nil
	}
	return c.flushLocked(ctx, telemetry.TriggerShutdown)
}

// CurrentRound returns the public view of the active round.
func (c *Coordinator) CurrentRound() (Status, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.active == nil {
		return Status{}, false
	}
	return c.active.status(), true
}

// ActiveTicket is CurrentRound including the code, for administrators.
func (c *Coordinator) ActiveTicket() (Ticket, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.active == nil {
		return Ticket{}, false
	}
	return c.active.ticket(), true
}

// IsCheckedIn reports whether userID is marked present in the active round.
func (c *Coordinator) IsCheckedIn(userID string) (bool, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	r := c.active
	if r == nil {
		return false, ErrNotActive
	}
	rec, ok := r.buffer[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	e, _ := rec.Entry(r.round)
	return e.Present, nil
}

func (c *Coordinator) activateLocked(r *activeRound, kind string) {
	c.stateMu.Lock()
	r.expiresAt = c.now().Add(c.ttl)
	c.active = r
	c.stateMu.Unlock()

	c.armTimerLocked(r)
	c.metrics.RoundOpened(kind)
	c.logger.Info("attendance round opened",
		zap.String("kind", kind),
		zap.String("session_id", r.sessionID),
		zap.Int("round", r.round),
		zap.Int("records", len(r.buffer)),
		zap.Time("expires_at", r.expiresAt))
}

func (c *Coordinator) findSession(ctx context.Context, sessionID string) (models.Session, error) {
	opCtx, cancel := c.storeCtx(ctx)
	defer cancel()

	s, err := c.store.FindSession(opCtx, sessionID)
	if err != nil {
		return models.Session{}, storeErr(err)
	}
	return s, nil
}

func (c *Coordinator) loadRound(ctx context.Context, sessionID string, round int) (*activeRound, error) {
	opCtx, cancel := c.storeCtx(ctx)
	records, err := c.store.LoadAttendance(opCtx, sessionID)
	cancel()
	if err != nil {
		return nil, storeErr(err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyRoster
	}

	code, err := c.drawCode("")
	if err != nil {
		return nil, err
	}
	return newActiveRound(sessionID, round, code, records), nil
}

// drawCode returns a fresh code different from previous.
func (c *Coordinator) drawCode(previous string) (string, error) {
	var code string
	for i := 0; i < codeRedraws; i++ {
		next, err := c.newCode()
		if err != nil {
			return "", err
		}
		code = next
		if code != previous {
			break
		}
	}
	return code, nil
}

func (c *Coordinator) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.storeTimeout)
}

func checkInResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrAlreadyCheckedIn):
		return "already_checked_in"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrNotActive):
		return "not_active"
	default:
		return "error"
	}
}
