package session

import (
	"sync"
	"time"
)

// Status is the coarse session status the rest of the app reads.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusInitializing    Status = "initializing"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// State is a snapshot of the session state machine. Invariant:
// Status == StatusAuthenticated iff User != nil. SessionExpiry and
// LastRefresh are epoch milliseconds, 0 when unset.
type State struct {
	Status        Status
	Initialized   bool
	User          *User
	Provider      string
	SessionExpiry int64
	LastRefresh   int64
	IsRefreshing  bool
	Err           string
}

// Store is the single authoritative session state machine. All mutation
// goes through the enumerated transitions below, each of which writes a
// complete consistent state under one lock hold. Construct a fresh Store
// per test; there is no package-level instance.
type Store struct {
	mu    sync.Mutex
	state State
	clock func() time.Time
}

// NewStore creates a Store in the idle state. clock defaults to time.Now
// and is injectable for tests.
func NewStore(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		state: State{Status: StatusIdle},
		clock: clock,
	}
}

// Snapshot returns a copy of the current state. The User pointer is copied
// so callers cannot mutate shared state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// BeginInitialize transitions idle -> initializing. It returns false when
// initialization already ran or is running, making duplicate app-boot calls
// no-ops.
func (s *Store) BeginInitialize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Initialized || s.state.Status == StatusInitializing {
		return false
	}
	s.state.Status = StatusInitializing
	s.state.Err = ""
	return true
}

// SetAuthenticated installs a recovered or established session. It stamps
// LastRefresh and marks the first recovery attempt as completed.
func (s *Store) SetAuthenticated(user *User, provider string, expiresAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	s.state.Status = StatusAuthenticated
	s.state.Initialized = true
	s.state.User = &u
	s.state.Provider = provider
	s.state.SessionExpiry = expiresAt
	s.state.LastRefresh = s.clock().UnixMilli()
	s.state.Err = ""
}

// SetUnauthenticated clears the user and records an optional error message.
// Also the landing state for pendingProfile outcomes; upstream UI detects
// the missing profile token and routes to onboarding.
func (s *Store) SetUnauthenticated(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Status = StatusUnauthenticated
	s.state.Initialized = true
	s.state.User = nil
	s.state.Provider = ""
	s.state.SessionExpiry = 0
	s.state.Err = errMsg
}

// BeginRefresh atomically checks and sets the refresh guard. A false return
// means a refresh is already in flight and the caller must do nothing.
func (s *Store) BeginRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsRefreshing {
		return false
	}
	s.state.IsRefreshing = true
	return true
}

// EndRefresh clears the refresh guard. Every exit path of a refresh calls
// this, success or not.
func (s *Store) EndRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsRefreshing = false
}

// UpdateUser merges a partial profile update into the signed-in user and
// returns a copy of the merged user for persistence. Returns nil when no
// user is signed in.
func (s *Store) UpdateUser(patch UserPatch) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.User == nil {
		return nil
	}
	s.state.User.apply(patch)
	u := *s.state.User
	return &u
}

// Reset returns the store to the signed-out shape. Initialized is kept:
// the first recovery attempt has completed by the time a logout can run.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	initialized := s.state.Initialized
	s.state = State{
		Status:      StatusUnauthenticated,
		Initialized: initialized,
	}
}
