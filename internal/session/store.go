package session

import (
	"sync"
	"time"

	"github.com/vidgrab/vidgrab/internal/metrics"
)

// Store maps user ids to their single active session. It is bounded both in
// size and in time: entries untouched for longer than the TTL are removed by
// a background sweep, and when the map is full the stalest entry is evicted
// to make room. Either way the user just sees an expired session and resends
// the URL.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxEntries    int
	ttl           time.Duration
	sweepInterval time.Duration

	done chan struct{}
	once sync.Once
}

type entry struct {
	session     *Session
	lastTouched time.Time
}

// NewStore creates a session store. maxEntries and ttl must be positive;
// sweepInterval controls how often expired entries are collected.
func NewStore(maxEntries int, ttl, sweepInterval time.Duration) *Store {
	return &Store{
		entries:       make(map[string]*entry),
		maxEntries:    maxEntries,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
	}
}

// Start launches the TTL sweep loop.
func (s *Store) Start() {
	go s.sweepLoop()
}

// Stop terminates the sweep loop.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.done) })
}

// Put unconditionally replaces any existing session for the user. When the
// store is at capacity the entry with the oldest last-touched time is evicted
// first.
func (s *Store) Put(userID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[userID]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}

	s.entries[userID] = &entry{session: sess, lastTouched: time.Now()}
	metrics.SessionsActive.Set(float64(len(s.entries)))
}

// Get returns the user's current session. A hit refreshes the entry's
// last-touched time. ok is false when no session exists, whether it was
// never created, already consumed, or evicted.
func (s *Store) Get(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return nil, false
	}
	if time.Since(e.lastTouched) > s.ttl {
		// Expired but not yet swept.
		delete(s.entries, userID)
		metrics.SessionsActive.Set(float64(len(s.entries)))
		return nil, false
	}

	e.lastTouched = time.Now()
	return e.session, true
}

// Delete removes the user's session. Deleting an absent session is a no-op.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, userID)
	metrics.SessionsActive.Set(float64(len(s.entries)))
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for userID, e := range s.entries {
		if now.Sub(e.lastTouched) > s.ttl {
			delete(s.entries, userID)
			metrics.SessionsEvicted.Inc()
		}
	}
	metrics.SessionsActive.Set(float64(len(s.entries)))
}

// evictOldestLocked removes the stalest entry. Caller holds the lock.
func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for userID, e := range s.entries {
		if oldestID == "" || e.lastTouched.Before(oldest) {
			oldestID = userID
			oldest = e.lastTouched
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
		metrics.SessionsEvicted.Inc()
	}
}
