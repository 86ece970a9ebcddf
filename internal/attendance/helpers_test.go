package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/zaqqye/attendance_backend/internal/models"
)

const testSession = "session-1"

type memStore struct {
	mu          sync.Mutex
	sessions    map[string]models.Session
	records     map[string]map[string]models.Attendance
	upsertCalls int
	upsertErr   error
	loadErr     error
}

func newMemStore(users ...string) *memStore {
	s := &memStore{
		sessions: map[string]models.Session{testSession: {ID: testSession, Name: "weekly"}},
		records:  map[string]map[string]models.Attendance{testSession: {}},
	}
	for _, u := range users {
		s.records[testSession][u] = models.Attendance{UserID: u, SessionID: testSession}
	}
	return s
}

func (s *memStore) FindSession(_ context.Context, sessionID string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *memStore) LoadAttendance(_ context.Context, sessionID string) ([]models.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]models.Attendance, 0, len(s.records[sessionID]))
	for _, rec := range s.records[sessionID] {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memStore) BulkUpsertAttendance(_ context.Context, records []models.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, rec := range records {
		if s.records[rec.SessionID] == nil {
			s.records[rec.SessionID] = map[string]models.Attendance{}
		}
		s.records[rec.SessionID][rec.UserID] = rec.Clone()
	}
	return nil
}

func (s *memStore) IncrementSessionRounds(_ context.Context, sessionID string, max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if sess.RoundsStarted >= max {
		return sess.RoundsStarted, ErrMaxRoundsReached
	}
	sess.RoundsStarted++
	s.sessions[sessionID] = sess
	return sess.RoundsStarted, nil
}

func (s *memStore) roundsStarted(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID].RoundsStarted
}

func (s *memStore) present(userID string, round int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[testSession][userID]
	e, ok := rec.Entry(round)
	return e.Present, ok
}

func (s *memStore) setUpsertErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertErr = err
}

func (s *memStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertCalls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// sequentialCodes yields "1234", "1235", ...
func sequentialCodes() func() (string, error) {
	var mu sync.Mutex
	next := 1234
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := fmt.Sprintf("%04d", next%10000)
		next++
		return code, nil
	}
}

func newTestCoordinator(t *testing.T, store Store, opts ...Option) (*Coordinator, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithClock(clock.Now),
		WithCodeGenerator(sequentialCodes()),
		WithTTL(time.Hour),
		WithRetryInterval(time.Millisecond),
	}
	c := New(store, append(base, opts...)...)
	t.Cleanup(func() {
		_ = c.Shutdown(context.Background())
	})
	return c, clock
}
