package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestStoreInitialState(t *testing.T) {
	s := NewStore(nil)
	st := s.Snapshot()
	require.Equal(t, StatusIdle, st.Status)
	require.False(t, st.Initialized)
	require.Nil(t, st.User)
}

func TestStoreBeginInitialize(t *testing.T) {
	s := NewStore(fixedClock(1000))

	require.True(t, s.BeginInitialize())
	require.Equal(t, StatusInitializing, s.Snapshot().Status)

	// A second call while the first is running is refused.
	require.False(t, s.BeginInitialize())

	s.SetUnauthenticated("")
	// And once initialization finished, it never runs again.
	require.False(t, s.BeginInitialize())
}

func TestStoreSetAuthenticated(t *testing.T) {
	s := NewStore(fixedClock(5_000))
	user := &User{ID: "u1", Email: "u1@example.com"}

	s.SetAuthenticated(user, "amplify", 900_000)

	st := s.Snapshot()
	require.Equal(t, StatusAuthenticated, st.Status)
	require.True(t, st.Initialized)
	require.Equal(t, "amplify", st.Provider)
	require.EqualValues(t, 900_000, st.SessionExpiry)
	require.EqualValues(t, 5_000, st.LastRefresh)
	require.NotNil(t, st.User)
	require.Equal(t, "u1", st.User.ID)

	// Snapshot hands out a copy, not the live pointer.
	st.User.Email = "mutated@example.com"
	require.Equal(t, "u1@example.com", s.Snapshot().User.Email)
}

func TestStoreSetUnauthenticated(t *testing.T) {
	s := NewStore(fixedClock(5_000))
	s.SetAuthenticated(&User{ID: "u1"}, "firebase", 900_000)

	s.SetUnauthenticated("token revoked")

	st := s.Snapshot()
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.True(t, st.Initialized)
	require.Nil(t, st.User)
	require.Empty(t, st.Provider)
	require.Zero(t, st.SessionExpiry)
	require.Equal(t, "token revoked", st.Err)
}

func TestStoreRefreshGuard(t *testing.T) {
	s := NewStore(nil)

	require.True(t, s.BeginRefresh())
	require.False(t, s.BeginRefresh())
	require.True(t, s.Snapshot().IsRefreshing)

	s.EndRefresh()
	require.False(t, s.Snapshot().IsRefreshing)
	require.True(t, s.BeginRefresh())
}

func TestStoreUpdateUser(t *testing.T) {
	s := NewStore(nil)

	require.Nil(t, s.UpdateUser(UserPatch{Email: ptr("x@example.com")}), "no signed-in user")

	s.SetAuthenticated(&User{ID: "u1", Email: "old@example.com", GivenName: "Ann"}, "amplify", 0)

	merged := s.UpdateUser(UserPatch{Email: ptr("new@example.com"), Phone: ptr("+123")})
	require.NotNil(t, merged)
	require.Equal(t, "new@example.com", merged.Email)
	require.Equal(t, "+123", merged.Phone)
	require.Equal(t, "Ann", merged.GivenName, "unpatched field untouched")
	require.Equal(t, "u1", merged.ID)

	require.Equal(t, "new@example.com", s.Snapshot().User.Email)
}

func TestStoreReset(t *testing.T) {
	s := NewStore(fixedClock(5_000))
	s.SetAuthenticated(&User{ID: "u1"}, "amplify", 900_000)

	s.Reset()

	st := s.Snapshot()
	require.Equal(t, StatusUnauthenticated, st.Status)
	require.True(t, st.Initialized, "reset keeps the initialized flag")
	require.Nil(t, st.User)
	require.Empty(t, st.Provider)
	require.Zero(t, st.SessionExpiry)
	require.Zero(t, st.LastRefresh)
	require.False(t, st.IsRefreshing)
}

func ptr(s string) *string { return &s }
