package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
	"github.com/pawkeeper/mobilesession/internal/metrics"
	"github.com/pawkeeper/mobilesession/internal/providers"
	"github.com/pawkeeper/mobilesession/internal/storage"
)

// Recoverer decides whether a usable session exists and from which
// provider. It is side-effect-heavy (it talks to provider SDKs and
// storage) but idempotent: Initialize and Refresh both call it.
type Recoverer struct {
	identities []providers.Identity
	gate       providers.ProfileGate
	tokens     TokenStore
	kv         storage.KV
	log        logging.Logger
	met        *metrics.Collector
}

// NewRecoverer builds a Recoverer. identities are probed in priority order:
// live provider sessions are authoritative and freshest, so they come
// before the stored-token fallback.
func NewRecoverer(identities []providers.Identity, gate providers.ProfileGate, tokens TokenStore, kv storage.KV, log logging.Logger, met *metrics.Collector) *Recoverer {
	return &Recoverer{
		identities: identities,
		gate:       gate,
		tokens:     tokens,
		kv:         kv,
		log:        log,
		met:        met,
	}
}

// recoverStep is one fallible source of a session. A nil outcome with a nil
// error means "this source has no session, try the next one".
type recoverStep struct {
	source string
	run    func(ctx context.Context) (*Outcome, error)
}

// Recover walks the provider chain, first success wins. Errors from a step
// are logged at low severity and treated as "no session there"; there is no
// retry here, retry-with-backoff is the scheduler's job. The returned error
// is non-nil only for failures outside the chain itself (terminal storage
// cleanup).
func (r *Recoverer) Recover(ctx context.Context) (Outcome, error) {
	steps := make([]recoverStep, 0, len(r.identities)+1)
	for _, id := range r.identities {
		id := id
		steps = append(steps, recoverStep{
			source: id.Name(),
			run:    func(ctx context.Context) (*Outcome, error) { return r.fromIdentity(ctx, id) },
		})
	}
	steps = append(steps, recoverStep{source: "stored", run: r.fromStored})

	for _, step := range steps {
		out, err := step.run(ctx)
		if err != nil {
			r.log.Debug(ctx, "recovery source failed, falling through", "source", step.source, "err", err)
			continue
		}
		if out == nil {
			r.log.Debug(ctx, "recovery source has no session", "source", step.source)
			continue
		}
		r.met.RecordRecoverOutcome(step.source, out.Kind.String())
		return *out, nil
	}

	// Terminal fallback: nothing recoverable anywhere; leave no stale
	// session material behind.
	if err := r.clearSessionStorage(ctx); err != nil {
		return Unauthenticated(), err
	}
	r.met.RecordRecoverOutcome("none", OutcomeUnauthenticated.String())
	return Unauthenticated(), nil
}

// fromIdentity recovers a session from one live provider. The pending
// profile marker is checked before user hydration so half-onboarded
// accounts short-circuit early.
func (r *Recoverer) fromIdentity(ctx context.Context, id providers.Identity) (*Outcome, error) {
	sess, err := id.FetchSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.IDToken == "" || sess.AccessToken == "" {
		return nil, nil
	}

	principal, err := id.FetchPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	if hasPendingProfile(ctx, r.kv, r.log, principal.ID) {
		out := PendingProfile()
		return &out, nil
	}

	attrs, err := id.FetchAttributes(ctx)
	if err != nil {
		return nil, err
	}
	user := UserFromAttributes(principal.ID, attrs)

	token, pending := r.resolveProfileToken(ctx, principal.ID, user.Email, sess.AccessToken)
	if pending {
		out := PendingProfile()
		return &out, nil
	}
	user.ProfileToken = token

	expiresAt := sess.ExpiresAt
	if expiresAt == 0 {
		expiresAt, _ = DecodeExpiration(ctx, sess.IDToken, r.log)
	}

	tokens := &AuthTokens{
		IDToken:      sess.IDToken,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    expiresAt,
		UserID:       principal.ID,
		Provider:     id.Name(),
	}

	out := Authenticated(user, tokens, id.Name())
	return &out, nil
}

// resolveProfileToken reuses the cached user's profile token when one
// exists for the same principal, otherwise asks the profile service.
// pending is true only on an authoritative remote "does not exist"; a
// failed call degrades to an empty token rather than blocking sign-in.
func (r *Recoverer) resolveProfileToken(ctx context.Context, principalID, email, accessToken string) (token string, pending bool) {
	if cached := r.loadCachedUser(ctx); cached != nil && cached.ID == principalID && cached.ProfileToken != "" {
		return cached.ProfileToken, false
	}

	status, err := r.gate.FetchProfileStatus(ctx, providers.ProfileStatusRequest{
		AccessToken: accessToken,
		UserID:      principalID,
		Email:       email,
	})
	if err != nil {
		r.log.Warn(ctx, "profile status check failed, continuing without profile token", "err", err)
		return "", false
	}
	if !status.Exists && status.Source == providers.SourceRemote {
		return "", true
	}
	return status.ProfileToken, false
}

// fromStored recovers from locally persisted tokens: the degraded fallback
// for offline and cold-start scenarios. Requires a cached user record
// alongside the tokens; tokens without a user are not recoverable.
func (r *Recoverer) fromStored(ctx context.Context) (*Outcome, error) {
	tokens, err := r.tokens.Load(ctx)
	if err != nil {
		r.log.Warn(ctx, "secure token load failed, trying legacy blob", "err", err)
		tokens = nil
	}
	if tokens == nil {
		tokens = r.migrateLegacyTokens(ctx)
	}
	if tokens == nil {
		return nil, nil
	}

	user := r.loadCachedUser(ctx)
	if user == nil {
		return nil, fmt.Errorf("stored tokens present: %w", common.ErrNoCachedUser)
	}

	// Revoked or half-onboarded accounts must not resurrect from cache.
	if hasPendingProfile(ctx, r.kv, r.log, tokens.UserID) {
		out := PendingProfile()
		return &out, nil
	}

	tokens.ExpiresAt = normalizeEpochMillis(tokens.ExpiresAt)
	if tokens.ExpiresAt == 0 {
		tokens.ExpiresAt, _ = DecodeExpiration(ctx, tokens.IDToken, r.log)
	}

	// Rehydrate the issuing adapter so its renewal flow owns these tokens
	// from now on. When the provider is reachable this also renews an
	// expired set right away; when it is not, the stored set still carries
	// the session until the next refresh.
	if id := r.identityFor(tokens.Provider); id != nil {
		id.Adopt(&providers.Session{
			IDToken:      tokens.IDToken,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresAt:    tokens.ExpiresAt,
		})
		live, err := r.fromIdentity(ctx, id)
		if err != nil {
			r.log.Debug(ctx, "live renewal of stored tokens failed, using stored set", "provider", tokens.Provider, "err", err)
		}
		if err == nil && live != nil {
			return live, nil
		}
	}

	out := Authenticated(user, tokens, tokens.Provider)
	return &out, nil
}

// identityFor returns the adapter registered under the given provider tag.
func (r *Recoverer) identityFor(name string) providers.Identity {
	for _, id := range r.identities {
		if id.Name() == name {
			return id
		}
	}
	return nil
}

// migrateLegacyTokens reads the old plaintext token blob, moves it into the
// secure store and deletes it. Failures are logged and swallowed; legacy
// data is best-effort by definition.
func (r *Recoverer) migrateLegacyTokens(ctx context.Context) *AuthTokens {
	raw, err := r.kv.GetItem(ctx, common.KeyLegacyTokens)
	if err != nil {
		r.log.Warn(ctx, "legacy token blob unreadable", "err", err)
		return nil
	}
	if raw == nil {
		return nil
	}

	var tokens AuthTokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		r.log.Warn(ctx, "legacy token blob malformed, ignoring", "err", err)
		return nil
	}
	tokens.ExpiresAt = normalizeEpochMillis(tokens.ExpiresAt)

	if err := r.tokens.Store(ctx, &tokens); err != nil {
		r.log.Warn(ctx, "legacy token migration failed, keeping legacy blob", "err", err)
		return &tokens
	}
	if err := r.kv.RemoveItem(ctx, common.KeyLegacyTokens); err != nil {
		r.log.Warn(ctx, "could not delete legacy token blob after migration", "err", err)
	} else {
		r.log.Info(ctx, "migrated legacy token blob into secure storage")
	}
	return &tokens
}

func (r *Recoverer) loadCachedUser(ctx context.Context) *User {
	raw, err := r.kv.GetItem(ctx, common.KeyCachedUser)
	if err != nil || raw == nil {
		if err != nil {
			r.log.Warn(ctx, "cached user unreadable", "err", err)
		}
		return nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		r.log.Warn(ctx, "cached user malformed, ignoring", "err", err)
		return nil
	}
	return &user
}

// clearSessionStorage wipes every piece of persisted session material.
func (r *Recoverer) clearSessionStorage(ctx context.Context) error {
	if err := r.tokens.Clear(ctx); err != nil {
		return err
	}
	return r.kv.MultiRemove(ctx, common.KeyCachedUser, common.KeyLegacyTokens, common.KeyPendingProfile)
}
