package session

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when an operation names an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Store holds the open analysis sessions, keyed by ID.
//
// Sessions are values: Update reads the current session, lets the caller
// derive a new one, and swaps it in under the write lock. Readers never see a
// half-updated session.
//
// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]AnalysisSession
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]AnalysisSession),
		now:      time.Now,
	}
}

// Create opens a session for a loaded raster under a new random ID.
func (st *Store) Create(path string, img *image.Gray) AnalysisSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.insert(path, img)
}

// Open loads the raster for path with load and opens a session for it.
//
// load runs under the write lock, so it cannot interleave with Close
// releasing the same path. A load error is returned without creating a
// session.
func (st *Store) Open(path string, load func(path string) (*image.Gray, error)) (AnalysisSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	img, err := load(path)
	if err != nil {
		return AnalysisSession{}, err
	}
	return st.insert(path, img), nil
}

// insert adds a new session. The caller holds the write lock.
func (st *Store) insert(path string, img *image.Gray) AnalysisSession {
	s := New(uuid.NewString(), path, img, st.now())
	st.sessions[s.ID] = s
	return s
}

// Get returns the session with the given ID.
func (st *Store) Get(id string) (AnalysisSession, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return AnalysisSession{}, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// Update replaces a session with the value returned by fn.
//
// fn receives the current session and the store's clock reading. If fn
// returns an error the stored session is left unchanged and the error is
// returned. The write lock is held while fn runs, so updates to the same
// store are serialized; fn must not call back into the store.
func (st *Store) Update(id string, fn func(s AnalysisSession, now time.Time) (AnalysisSession, error)) (AnalysisSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	cur, ok := st.sessions[id]
	if !ok {
		return AnalysisSession{}, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	next, err := fn(cur, st.now())
	if err != nil {
		return cur, err
	}
	next.ID = cur.ID
	st.sessions[id] = next
	return next, nil
}

// Close removes a session and returns it.
//
// When no other open session uses the same path, release is called with
// that path before the write lock is dropped. release may be nil.
func (st *Store) Close(id string, release func(path string)) (AnalysisSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return AnalysisSession{}, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	delete(st.sessions, id)

	if release == nil {
		return s, nil
	}
	for _, other := range st.sessions {
		if other.Path == s.Path {
			return s, nil
		}
	}
	release(s.Path)
	return s, nil
}

// IDs returns the open session IDs in sorted order.
func (st *Store) IDs() []string {
	st.mu.RLock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
