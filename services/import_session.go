package services

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBatchSize is the server-chosen batch size echoed to clients.
	DefaultBatchSize = 25
	// SessionIdleExpiry is how long an untouched session survives before the
	// janitor reclaims it.
	SessionIdleExpiry = 30 * time.Minute
	// JanitorInterval is how often expired sessions are swept.
	JanitorInterval = 5 * time.Minute
)

// ImportSession is the unit of durable state for one import run. Cursor and
// tallies are only ever mutated while mu is held, so two concurrent step
// calls against the same id cannot double-count a batch.
type ImportSession struct {
	ID                 string
	SourcePath         string
	TotalRows          int
	Cursor             int
	BatchSize          int
	DryRun             bool
	CreateMissingTerms bool
	Tallies            Tallies
	RunID              uint
	CreatedAt          time.Time
	LastAccessedAt     time.Time

	// seenKeys tracks idempotency keys already consumed earlier in this
	// session, so duplicate rows within one file count as skipped.
	seenKeys  map[string]struct{}
	runClosed bool

	mu sync.Mutex
}

// Complete reports whether every row has been consumed. Callers that need a
// consistent read against concurrent steps must hold mu themselves; the
// engine reads it under the lock.
func (s *ImportSession) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Cursor == s.TotalRows
}

// CloseRun marks the session's run record as finalized. Returns true only on
// the first call so success/failure is recorded exactly once.
func (s *ImportSession) CloseRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runClosed {
		return false
	}
	s.runClosed = true
	return true
}

// Snapshot returns a copy of the cumulative progress under the session lock.
func (s *ImportSession) Snapshot() (cursor int, tallies Tallies) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Cursor, s.Tallies.clone()
}

// SessionStore owns the lifecycle of all in-flight import sessions. It is an
// in-memory map; sessions do not survive a process restart, which is why
// every run is also recorded in the import_runs table.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ImportSession
	idleTTL  time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSessionStore(idleTTL time.Duration) *SessionStore {
	if idleTTL <= 0 {
		idleTTL = SessionIdleExpiry
	}
	return &SessionStore{
		sessions: make(map[string]*ImportSession),
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
}

func (st *SessionStore) Create(sourcePath string, totalRows, batchSize int, dryRun, createMissingTerms bool) *ImportSession {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	now := time.Now()
	sess := &ImportSession{
		ID:                 uuid.NewString(),
		SourcePath:         sourcePath,
		TotalRows:          totalRows,
		BatchSize:          batchSize,
		DryRun:             dryRun,
		CreateMissingTerms: createMissingTerms,
		CreatedAt:          now,
		LastAccessedAt:     now,
		seenKeys:           make(map[string]struct{}),
	}
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get fetches a session and refreshes its idle timer.
func (st *SessionStore) Get(id string) (*ImportSession, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.mu.Lock()
	sess.LastAccessedAt = time.Now()
	sess.mu.Unlock()
	return sess, true
}

// Delete removes a session and its temporary source file. Deleting an
// unknown id is a no-op; cleanup is always safe to repeat.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return
	}
	if sess.SourcePath != "" {
		if err := os.Remove(sess.SourcePath); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove import source %s: %v", sess.SourcePath, err)
		}
	}
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// SweepExpired removes every session idle for longer than the store TTL and
// returns the reclaimed sessions.
func (st *SessionStore) SweepExpired(now time.Time) []*ImportSession {
	st.mu.RLock()
	var expired []*ImportSession
	for _, sess := range st.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.LastAccessedAt)
		sess.mu.Unlock()
		if idle > st.idleTTL {
			expired = append(expired, sess)
		}
	}
	st.mu.RUnlock()

	for _, sess := range expired {
		log.Printf("reclaiming idle import session %s (cursor %d/%d)", sess.ID, sess.Cursor, sess.TotalRows)
		st.Delete(sess.ID)
	}
	return expired
}

// StartJanitor sweeps expired sessions in the background until Stop is
// called. onExpire, if non-nil, runs for each reclaimed session.
func (st *SessionStore) StartJanitor(interval time.Duration, onExpire func(*ImportSession)) {
	if interval <= 0 {
		interval = JanitorInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-st.stop:
				return
			case now := <-ticker.C:
				for _, sess := range st.SweepExpired(now) {
					if onExpire != nil {
						onExpire(sess)
					}
				}
			}
		}
	}()
}

func (st *SessionStore) Stop() {
	st.stopOnce.Do(func() { close(st.stop) })
}
