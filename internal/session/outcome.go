package session

// OutcomeKind tags the result of a recovery attempt.
type OutcomeKind int

const (
	// OutcomeUnauthenticated: no provider and no cache produced a session.
	OutcomeUnauthenticated OutcomeKind = iota

	// OutcomeAuthenticated: a usable session with a hydrated user.
	OutcomeAuthenticated

	// OutcomePendingProfile: a provider session exists but app onboarding
	// has not completed; the session must not be promoted.
	OutcomePendingProfile
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomePendingProfile:
		return "pending_profile"
	default:
		return "unauthenticated"
	}
}

// Outcome is the single channel through which recovery results reach the
// state machine; no recovery code path mutates state directly. User, Tokens
// and Provider are set only when Kind == OutcomeAuthenticated.
type Outcome struct {
	Kind     OutcomeKind
	User     *User
	Tokens   *AuthTokens
	Provider string
}

func Authenticated(user *User, tokens *AuthTokens, provider string) Outcome {
	return Outcome{Kind: OutcomeAuthenticated, User: user, Tokens: tokens, Provider: provider}
}

func PendingProfile() Outcome {
	return Outcome{Kind: OutcomePendingProfile}
}

func Unauthenticated() Outcome {
	return Outcome{Kind: OutcomeUnauthenticated}
}
