package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pawkeeper/mobilesession/internal/logging"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestDecodeExpiration(t *testing.T) {
	ctx := context.Background()
	log := logging.NewNopLogger()
	exp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("valid token yields millis", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})
		got, ok := DecodeExpiration(ctx, token, log)
		require.True(t, ok)
		require.Equal(t, exp.UnixMilli(), got)
	})

	t.Run("expired token still decodes", func(t *testing.T) {
		past := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
		token := signedToken(t, jwt.MapClaims{"exp": past.Unix()})
		got, ok := DecodeExpiration(ctx, token, log)
		require.True(t, ok)
		require.Equal(t, past.UnixMilli(), got)
	})

	t.Run("garbage never errors", func(t *testing.T) {
		for _, token := range []string{
			"",
			"not-a-jwt",
			"a.b",
			"!!!.@@@.###",
			"eyJhbGciOiJIUzI1NiJ9.bm90anNvbg.sig",
		} {
			got, ok := DecodeExpiration(ctx, token, log)
			require.False(t, ok, "token %q", token)
			require.Zero(t, got)
		}
	})

	t.Run("missing exp claim", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "u1"})
		_, ok := DecodeExpiration(ctx, token, log)
		require.False(t, ok)
	})
}

func TestNormalizeEpochMillis(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want int64
	}{
		{"zero stays zero", 0, 0},
		{"seconds scaled up", 1_760_000_000, 1_760_000_000_000},
		{"millis kept", 1_760_000_000_000, 1_760_000_000_000},
		{"negative kept", -5, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, normalizeEpochMillis(tt.in))
		})
	}
}
