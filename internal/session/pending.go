package session

import (
	"context"
	"encoding/json"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
	"github.com/pawkeeper/mobilesession/internal/storage"
)

// pendingMarker is persisted when a user authenticated with a provider but
// has not yet completed app onboarding. Recovery must not promote such a
// session to authenticated.
type pendingMarker struct {
	UserID    string `json:"user_id"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// hasPendingProfile reports whether a pending-profile marker exists for the
// given principal id. Read and parse failures fail open: a broken marker
// must not block a legitimate sign-in.
func hasPendingProfile(ctx context.Context, kv storage.KV, log logging.Logger, principalID string) bool {
	raw, err := kv.GetItem(ctx, common.KeyPendingProfile)
	if err != nil {
		log.Warn(ctx, "pending profile marker unreadable", "err", err)
		return false
	}
	if raw == nil {
		return false
	}

	var marker pendingMarker
	if err := json.Unmarshal(raw, &marker); err != nil {
		log.Warn(ctx, "pending profile marker malformed, ignoring", "err", err)
		return false
	}
	return marker.UserID == principalID
}

// SetPendingProfile records that the principal authenticated but still has
// to complete onboarding. Called by the sign-up flow.
func SetPendingProfile(ctx context.Context, kv storage.KV, principalID string, now int64) error {
	raw, err := json.Marshal(pendingMarker{UserID: principalID, CreatedAt: now})
	if err != nil {
		return err
	}
	return kv.SetItem(ctx, common.KeyPendingProfile, raw)
}

// ClearPendingProfile removes the marker once onboarding completed.
func ClearPendingProfile(ctx context.Context, kv storage.KV) error {
	return kv.RemoveItem(ctx, common.KeyPendingProfile)
}
