// Package providers defines the uniform identity-provider capability the
// session recoverer sequences, plus the concrete adapters for the user pool
// ("amplify"), the mobile auth SDK ("firebase") and the profile service.
package providers

import "context"

// Session is a provider-issued token set. ExpiresAt is epoch milliseconds,
// 0 when the provider did not report an expiry.
type Session struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Principal is the provider-side authenticated identity, distinct from the
// app's own User record.
type Principal struct {
	ID       string
	Username string
}

// Identity is the capability every provider adapter implements. The
// recoverer probes adapters in priority order; adapters report "no session"
// by returning a nil Session with a nil error, and genuine failures with an
// error so the recoverer can fall through.
type Identity interface {
	// Name returns the provider tag ("amplify", "firebase").
	Name() string

	// Adopt installs a token set obtained out of band (interactive sign-in
	// or recovery from storage) as the adapter's current session, so the
	// adapter's own renewal flow owns it from then on.
	Adopt(sess *Session)

	// FetchSession returns the current token set, or (nil, nil) when the
	// adapter holds no usable session.
	FetchSession(ctx context.Context) (*Session, error)

	// FetchPrincipal returns the authenticated principal. Only meaningful
	// after FetchSession returned a session.
	FetchPrincipal(ctx context.Context) (*Principal, error)

	// FetchAttributes returns the principal's attributes keyed by standard
	// claim names (email, given_name, family_name, phone_number,
	// birthdate, picture).
	FetchAttributes(ctx context.Context) (map[string]string, error)

	// SignOut invalidates the provider-side session where the provider
	// supports it and always drops local adapter state.
	SignOut(ctx context.Context) error
}

// ProfileStatusRequest identifies the principal whose profile existence is
// being checked.
type ProfileStatusRequest struct {
	AccessToken string
	UserID      string
	Email       string
}

// ProfileStatus is the profile service's answer. Source distinguishes an
// authoritative remote answer from a degraded local one; only
// Source == SourceRemote with Exists == false means "no profile, for sure".
type ProfileStatus struct {
	Exists       bool   `json:"exists"`
	ProfileToken string `json:"profile_token"`
	Source       string `json:"source"`
}

// SourceRemote marks an authoritative answer from the profile service.
const SourceRemote = "remote"

// ProfileGate asks the profile service whether a completed app-level
// profile exists for a principal.
type ProfileGate interface {
	FetchProfileStatus(ctx context.Context, req ProfileStatusRequest) (*ProfileStatus, error)
}
