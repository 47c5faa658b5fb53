package core

import (
	"sync"
	"time"
)

// SessionKey identifies one orchestration session: a chat surface plus the
// user (or anonymous visitor) talking to it.
type SessionKey struct {
	Surface string
	Subject string
}

// Session holds the orchestration state of one conversation. It replaces
// per-tab globals ("available model", "last request time") with an explicit
// object owned by the SessionStore.
type Session struct {
	mu sync.Mutex

	key           SessionKey
	lastRequest   time.Time
	lastSeen      time.Time
	dailyLimitDay string // quota day on which the primary reported exhaustion, "" when clear
	model         string // primary model adopted by probing
	usingFallback bool
}

// NewSession creates an empty session. Sessions are normally obtained from a SessionStore.
func NewSession(key SessionKey) *Session {
	return &Session{key: key}
}

// Key returns the session key.
func (s *Session) Key() SessionKey { return s.key }

// admit applies the cadence gate. It returns ok=true and records now as the
// last accepted request when at least minInterval elapsed since the previous
// accepted request; otherwise it returns the remaining wait.
func (s *Session) admit(now time.Time, minInterval time.Duration) (wait time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastRequest.IsZero() {
		elapsed := now.Sub(s.lastRequest)
		if elapsed < minInterval {
			return minInterval - elapsed, false
		}
	}
	s.lastRequest = now
	return 0, true
}

// Model returns the primary model adopted for this session, or "".
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *Session) setModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

// UsingFallback reports whether the last answer came from the secondary provider.
func (s *Session) UsingFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usingFallback
}

func (s *Session) setUsingFallback(v bool) {
	s.mu.Lock()
	s.usingFallback = v
	s.mu.Unlock()
}

// DailyLimitReached reports whether the primary's quota was exhausted on quotaDay.
func (s *Session) DailyLimitReached(quotaDay string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyLimitDay != "" && s.dailyLimitDay == quotaDay
}

func (s *Session) markDailyLimit(quotaDay string) {
	s.mu.Lock()
	s.dailyLimitDay = quotaDay
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionStore keeps sessions in memory. State is lost on restart, so the
// model probe and the daily-limit flag are re-learned per process.
// Subjects of the sales surface are chosen by anonymous clients, so the store
// is bounded: at capacity, a new session replaces the least recently used one.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[SessionKey]*Session
	maxSessions int
	now         func() time.Time
}

// NewSessionStore creates an empty store holding at most maxSessions sessions
// (0 means unbounded). A nil clock defaults to time.Now.
func NewSessionStore(now func() time.Time, maxSessions int) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{sessions: make(map[SessionKey]*Session), maxSessions: maxSessions, now: now}
}

// Get returns the session for key, creating it on first use.
func (st *SessionStore) Get(key SessionKey) *Session {
	st.mu.Lock()
	sess, ok := st.sessions[key]
	if !ok {
		if st.maxSessions > 0 && len(st.sessions) >= st.maxSessions {
			st.evictLeastRecentLocked()
		}
		sess = NewSession(key)
		st.sessions[key] = sess
	}
	st.mu.Unlock()

	sess.touch(st.now())
	return sess
}

func (st *SessionStore) evictLeastRecentLocked() {
	var (
		oldestKey  SessionKey
		oldestSeen time.Time
		found      bool
	)
	for key, sess := range st.sessions {
		seen := sess.idleSince()
		if !found || seen.Before(oldestSeen) {
			oldestKey, oldestSeen, found = key, seen, true
		}
	}
	if found {
		delete(st.sessions, oldestKey)
	}
}

// EvictIdle removes sessions not used for longer than idle and returns how many were removed.
func (st *SessionStore) EvictIdle(idle time.Duration) int {
	cutoff := st.now().Add(-idle)

	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	for key, sess := range st.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(st.sessions, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
