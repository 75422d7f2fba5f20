package common

// Provider tags carried in AuthTokens.Provider and SessionState.Provider.
// The set is closed: every recovery path resolves to exactly one of these.
const (
	ProviderAmplify  = "amplify"
	ProviderFirebase = "firebase"
)

// Keys in the durable key-value store. Every writer writes a complete
// record under its key, so there are no partial-update races.
const (
	KeySecureTokens   = "secure_auth_tokens"
	KeyLegacyTokens   = "legacy_auth_tokens"
	KeyCachedUser     = "auth_user"
	KeyPendingProfile = "pending_profile"
	KeyInstallationID = "installation_id"
)
