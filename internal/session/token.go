// Package session implements the mobile client's authentication session
// lifecycle: recovering a session across identity providers, normalizing
// token formats, persisting the token set securely, proactively refreshing
// before expiry and reacting to app-foreground events.
package session

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pawkeeper/mobilesession/internal/logging"
)

// AuthTokens is the normalized credential set for a signed-in user.
// ExpiresAt is epoch milliseconds; 0 means the expiry is unknown. Values are
// normalized at the boundary: a provider-native second epoch never reaches
// this struct.
type AuthTokens struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	UserID       string `json:"user_id"`
	Provider     string `json:"provider"`
}

// expiryParser tolerates padded segments; it reads claims only and performs
// no signature verification.
var expiryParser = jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithPaddingAllowed())

// DecodeExpiration extracts the exp claim of a bearer token without
// verifying its signature and returns it as epoch milliseconds. The result
// is advisory, for refresh scheduling only, never for authorization.
//
// Any failure (malformed token, invalid base64, invalid JSON, missing exp)
// yields ok == false; the function never panics or returns an error.
func DecodeExpiration(ctx context.Context, token string, log logging.Logger) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := expiryParser.ParseUnverified(token, claims); err != nil {
		log.Warn(ctx, "could not decode token expiration", "err", err)
		return 0, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		if err != nil {
			log.Warn(ctx, "could not read exp claim", "err", err)
		}
		return 0, false
	}
	return exp.Time.UnixMilli(), true
}

// normalizeEpochMillis converts a second-precision epoch into milliseconds.
// Stored blobs written by old app versions carried seconds; anything below
// 1e12 is unambiguously a second epoch (1e12 ms is 2001, 1e12 s is the year
// 33658).
func normalizeEpochMillis(v int64) int64 {
	if v > 0 && v < 1_000_000_000_000 {
		return v * 1000
	}
	return v
}
