package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
)

func TestPendingProfileMarker(t *testing.T) {
	ctx := context.Background()
	log := logging.NewNopLogger()

	t.Run("set and match", func(t *testing.T) {
		kv := newFakeKV()
		require.NoError(t, SetPendingProfile(ctx, kv, "u1", 1_000))

		require.True(t, hasPendingProfile(ctx, kv, log, "u1"))
		require.False(t, hasPendingProfile(ctx, kv, log, "u2"), "marker is per principal")
	})

	t.Run("absent marker", func(t *testing.T) {
		require.False(t, hasPendingProfile(ctx, newFakeKV(), log, "u1"))
	})

	t.Run("clear", func(t *testing.T) {
		kv := newFakeKV()
		require.NoError(t, SetPendingProfile(ctx, kv, "u1", 1_000))
		require.NoError(t, ClearPendingProfile(ctx, kv))
		require.False(t, hasPendingProfile(ctx, kv, log, "u1"))
	})

	t.Run("malformed marker fails open", func(t *testing.T) {
		kv := newFakeKV()
		require.NoError(t, kv.SetItem(ctx, common.KeyPendingProfile, []byte("{broken")))
		require.False(t, hasPendingProfile(ctx, kv, log, "u1"))
	})

	t.Run("unreadable storage fails open", func(t *testing.T) {
		kv := newFakeKV()
		kv.GetErr = errors.New("io error")
		require.False(t, hasPendingProfile(ctx, kv, log, "u1"))
	})
}
