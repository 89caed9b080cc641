// Package session owns the per-caller session lifecycle: creation, idle
// expiry, explicit reset, and the synchronous expiry broadcast that lets
// dependent caches discard state before a replacement session exists.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-insights-service/internal/observability"
)

// DefaultIdleTimeout is the fixed idle window after which a session is
// invalid.
const DefaultIdleTimeout = 30 * time.Minute

// Session is a caller's conversation state. Copies are handed out; the store
// owns the canonical record.
type Session struct {
	ID             string         `json:"id"`
	CallerRef      string         `json:"callerRef"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	State          map[string]any `json:"state"`
}

// Reason distinguishes how a session ended. Effect is identical either way.
type Reason string

const (
	ReasonExpired Reason = "expired"
	ReasonReset   Reason = "reset"
)

// Event is broadcast to listeners when a session is invalidated.
type Event struct {
	SessionID string
	Reason    Reason
}

// Listener receives invalidation events. Listeners run synchronously inside
// the invalidating call and must not call back into the store.
type Listener func(Event)

// Store holds sessions in memory, keyed by caller. All access to a given
// session is serialized under the store lock, so a Touch and an Invalidate
// racing on the same id cannot lose updates. Sessions live only for the idle
// window; nothing is persisted.
type Store struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	idleTimeout time.Duration
	byCaller    map[string]*Session
	byID        map[string]*Session
	listeners   []Listener
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewStore creates a session store. A nil clock means the real clock; a zero
// timeout means DefaultIdleTimeout.
func NewStore(idleTimeout time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Store{
		clock:       clk,
		idleTimeout: idleTimeout,
		byCaller:    make(map[string]*Session),
		byID:        make(map[string]*Session),
		logger:      logger,
		metrics:     metrics,
	}
}

// Subscribe registers an invalidation listener.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// GetOrCreate returns the caller's live session, or invalidates the stale one
// (broadcasting Expired first) and creates a fresh session. Lookups never
// fail: absence and expiry both resolve to "create new".
func (s *Store) GetOrCreate(callerRef string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byCaller[callerRef]; ok {
		if s.clock.Now().Sub(sess.LastActivityAt) <= s.idleTimeout {
			return copySession(sess)
		}
		// Stale: broadcast before the replacement exists so dependent
		// caches are never left pointing at a dead session.
		s.removeLocked(sess, ReasonExpired)
	}

	now := s.clock.Now().UTC()
	sess := &Session{
		ID:             s.newID(now),
		CallerRef:      callerRef,
		CreatedAt:      now,
		LastActivityAt: now,
		State:          make(map[string]any),
	}
	s.byCaller[callerRef] = sess
	s.byID[sess.ID] = sess
	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
		s.metrics.ActiveSessions.Set(float64(len(s.byID)))
	}
	s.logger.Info("session created", "session_id", sess.ID, "caller", callerRef)
	return copySession(sess)
}

// Touch refreshes the session's activity time. Called exactly once per
// successfully completed request; a request that produced no usable result
// must not refresh the window.
func (s *Store) Touch(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		sess.LastActivityAt = s.clock.Now().UTC()
	}
}

// MergeState stores a value under key in the session state, e.g. the last
// response text kept for display continuity.
func (s *Store) MergeState(sessionID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		sess.State[key] = value
	}
}

// StateSnapshot returns a copy of the session state, or nil for an unknown
// id.
func (s *Store) StateSnapshot(sessionID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return nil
	}
	return copyState(sess.State)
}

// Invalidate removes the session and notifies every listener synchronously
// before returning. Unknown ids are a no-op.
func (s *Store) Invalidate(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		s.removeLocked(sess, ReasonExpired)
	}
}

// Reset is the user-initiated equivalent of Invalidate; same effect,
// different trigger.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		s.removeLocked(sess, ReasonReset)
	}
}

// ResetCaller resets whatever session the caller currently holds.
func (s *Store) ResetCaller(callerRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byCaller[callerRef]; ok {
		s.removeLocked(sess, ReasonReset)
	}
}

// removeLocked deletes the session and runs the broadcast. Delivery is
// best-effort: a panicking listener is logged and the remaining listeners
// still run.
func (s *Store) removeLocked(sess *Session, reason Reason) {
	delete(s.byCaller, sess.CallerRef)
	delete(s.byID, sess.ID)
	if s.metrics != nil {
		s.metrics.SessionsEnded.WithLabelValues(string(reason)).Inc()
		s.metrics.ActiveSessions.Set(float64(len(s.byID)))
	}
	s.logger.Info("session invalidated", "session_id", sess.ID, "reason", reason)

	ev := Event{SessionID: sess.ID, Reason: reason}
	for _, l := range s.listeners {
		s.notify(l, ev)
	}
}

func (s *Store) notify(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("session listener panicked", "session_id", ev.SessionID, "panic", r)
		}
	}()
	l(ev)
}

// newID builds a collision-resistant id: millisecond timestamp plus a random
// suffix. Uniqueness is a soft guarantee, not cryptographic.
func (s *Store) newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("s-%d-%s", now.UnixMilli(), suffix)
}

func copySession(sess *Session) Session {
	out := *sess
	out.State = copyState(sess.State)
	return out
}

func copyState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
