package inmemdb

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/angeraphael/parrainage/core/referral"
)

var ErrSessionNotFound = errors.New("tree session not found")

// nowFunc is overridden in tests
var nowFunc = time.Now

type (
	// Session holds the tree of one user between requests: its Loader and the expansion
	// state of the current Snapshot.
	Session struct {
		ID     uuid.UUID
		loader *referral.Loader
		owner  [sha256.Size]byte

		mu      sync.Mutex // serializes access to the current snapshot
		depth   int
		touched time.Time
	}

	// SessionStore keeps tree sessions in memory. Sessions idle for longer than ttl expire.
	SessionStore struct {
		mutex    sync.RWMutex
		sessions map[uuid.UUID]*Session
		ttl      time.Duration
	}
)

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
	}
}

func fingerprint(token string) [sha256.Size]byte {
	return sha256.Sum256([]byte(token))
}

// Create registers a new session for the owner of token.
func (s *SessionStore) Create(token string, loader *referral.Loader, depth int) *Session {
	sess := &Session{
		ID:      uuid.New(),
		loader:  loader,
		depth:   depth,
		owner:   fingerprint(token),
		touched: nowFunc(),
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the session id when it belongs to the owner of token.
// Expired sessions and sessions of other users are reported as ErrSessionNotFound.
func (s *SessionStore) Get(id uuid.UUID, token string) (*Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := nowFunc()
	if s.expired(sess, now) {
		s.remove(sess)
		return nil, ErrSessionNotFound
	}
	owner := fingerprint(token)
	if subtle.ConstantTimeCompare(sess.owner[:], owner[:]) != 1 {
		return nil, ErrSessionNotFound
	}
	sess.mu.Lock()
	sess.touched = now
	sess.mu.Unlock()
	return sess, nil
}

// Delete discards a session, cancelling its load in flight.
func (s *SessionStore) Delete(id uuid.UUID, token string) error {
	sess, err := s.Get(id, token)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.remove(sess)
	return nil
}

// Prune removes the expired sessions and returns how many were removed.
func (s *SessionStore) Prune() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := nowFunc()
	var n int
	for _, sess := range s.sessions {
		if s.expired(sess, now) {
			s.remove(sess)
			n++
		}
	}
	return n
}

// PruneEvery prunes expired sessions every interval until ctx is done.
func (s *SessionStore) PruneEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

func (s *SessionStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return now.Sub(sess.touched) > s.ttl
}

// remove must be called with s.mutex held.
func (s *SessionStore) remove(sess *Session) {
	sess.loader.Close()
	delete(s.sessions, sess.ID)
}

// Load (re)loads the session's tree. The new snapshot starts with the default expansion.
// depth <= 0 keeps the session's depth.
func (sess *Session) Load(ctx context.Context, depth int) (*referral.Snapshot, error) {
	sess.mu.Lock()
	if depth <= 0 {
		depth = sess.depth
	}
	sess.mu.Unlock()

	snap, err := sess.loader.Load(ctx, depth)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	sess.depth = snap.Depth
	sess.mu.Unlock()
	return snap, nil
}

// Use calls fn with snap, a snapshot loaded by this session, while holding the session lock.
// Unlike With, it sticks to snap even when a newer load was accepted meanwhile.
func (sess *Session) Use(snap *referral.Snapshot, fn func(snap *referral.Snapshot) error) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(snap)
}

// With calls fn with the current snapshot while holding the session lock.
// fn must not keep snap beyond its return. A session that never loaded fails with
// ErrSessionNotFound.
func (sess *Session) With(fn func(snap *referral.Snapshot) error) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap := sess.loader.Current()
	if snap == nil {
		return ErrSessionNotFound
	}
	return fn(snap)
}
