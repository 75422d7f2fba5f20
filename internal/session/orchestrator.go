package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
	"github.com/pawkeeper/mobilesession/internal/metrics"
	"github.com/pawkeeper/mobilesession/internal/providers"
	"github.com/pawkeeper/mobilesession/internal/storage"
)

// recoverer is the slice of Recoverer the orchestrator depends on; tests
// substitute a fake to control outcomes and observe invocation counts.
type recoverer interface {
	Recover(ctx context.Context) (Outcome, error)
}

// Orchestrator glues the recoverer, the scheduler, the stores and the
// provider adapters into the four public session operations. One instance
// lives for the whole app process; tests construct fresh ones.
type Orchestrator struct {
	store      *Store
	rec        recoverer
	sched      *Scheduler
	tokens     TokenStore
	kv         storage.KV
	identities []providers.Identity
	log        logging.Logger
	met        *metrics.Collector

	disableLegacyFallback bool
	refreshTimeout        time.Duration
}

// OrchestratorOptions wires an Orchestrator.
type OrchestratorOptions struct {
	Store      *Store
	Recoverer  *Recoverer
	Scheduler  *Scheduler
	TokenStore TokenStore
	KV         storage.KV
	Identities []providers.Identity
	Logger     logging.Logger
	Metrics    *metrics.Collector

	DisableLegacyFallback bool

	// RefreshTimeout bounds background refreshes triggered by the timer
	// and foreground events. Defaults to 30s.
	RefreshTimeout time.Duration
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{
		store:                 opts.Store,
		rec:                   opts.Recoverer,
		sched:                 opts.Scheduler,
		tokens:                opts.TokenStore,
		kv:                    opts.KV,
		identities:            opts.Identities,
		log:                   opts.Logger,
		met:                   opts.Metrics,
		disableLegacyFallback: opts.DisableLegacyFallback,
		refreshTimeout:        opts.RefreshTimeout,
	}
	if o.refreshTimeout <= 0 {
		o.refreshTimeout = 30 * time.Second
	}
	return o
}

// State returns a snapshot of the current session state.
func (o *Orchestrator) State() State {
	return o.store.Snapshot()
}

// Initialize runs the first session recovery. Duplicate app-boot calls are
// no-ops. The foreground listener is registered exactly once per process;
// registration happens before recovery so a resume during a slow cold
// start still lands in the throttle.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if !o.store.BeginInitialize() {
		return nil
	}

	o.sched.RegisterForegroundRefresh(func() { o.refreshDetached("foreground") })

	out, err := o.rec.Recover(ctx)
	if err != nil {
		o.log.Error(ctx, "session initialization failed", "err", err)
		o.store.SetUnauthenticated(err.Error())
		return err
	}
	o.applyOutcome(ctx, out)
	return nil
}

// EstablishSession installs a session produced by an interactive sign-in.
// It never calls the recoverer: the caller already holds fresh tokens.
func (o *Orchestrator) EstablishSession(ctx context.Context, user *User, tokens *AuthTokens) error {
	tokens.ExpiresAt = normalizeEpochMillis(tokens.ExpiresAt)
	if tokens.ExpiresAt == 0 {
		tokens.ExpiresAt, _ = DecodeExpiration(ctx, tokens.IDToken, o.log)
	}

	// Hand the token set to the issuing adapter so the next recovery can
	// renew through the provider instead of replaying the stored copy.
	if id := o.identityFor(tokens.Provider); id != nil {
		id.Adopt(&providers.Session{
			IDToken:      tokens.IDToken,
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresAt:    tokens.ExpiresAt,
		})
	}

	o.persistSession(ctx, user, tokens)
	o.store.SetAuthenticated(user, tokens.Provider, tokens.ExpiresAt)
	o.sched.MarkRefreshed()
	o.sched.ScheduleRefresh(tokens.ExpiresAt, o.onRefreshDue)
	return nil
}

// Refresh re-runs recovery and applies the outcome. A refresh already in
// flight makes the call a no-op; the guard is a checked-and-set condition,
// not a queued retry.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	return o.refresh(ctx, "manual")
}

func (o *Orchestrator) refresh(ctx context.Context, trigger string) error {
	if !o.store.BeginRefresh() {
		o.met.RecordRefresh(trigger, "skipped")
		return nil
	}
	defer o.store.EndRefresh()

	out, err := o.rec.Recover(ctx)
	if err != nil {
		o.met.RecordRefresh(trigger, "error")
		o.log.Error(ctx, "session refresh failed", "err", err)
		o.store.SetUnauthenticated(err.Error())
		return err
	}

	o.met.RecordRefresh(trigger, "applied")
	o.applyOutcome(ctx, out)
	return nil
}

// onRefreshDue handles timer fires. Near-simultaneous timer and foreground
// triggers race into the refresh guard and the loser becomes a no-op.
func (o *Orchestrator) onRefreshDue() {
	o.refreshDetached("timer")
}

// refreshDetached runs a refresh outside any caller context, bounded by the
// configured timeout.
func (o *Orchestrator) refreshDetached(trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.refreshTimeout)
	defer cancel()
	_ = o.refresh(ctx, trigger)
}

// UpdateUserProfile merges a partial profile update into the signed-in
// user and persists the merged record. No-op when nobody is signed in.
func (o *Orchestrator) UpdateUserProfile(ctx context.Context, patch UserPatch) error {
	merged := o.store.UpdateUser(patch)
	if merged == nil {
		return nil
	}
	o.cacheUser(ctx, merged)
	return nil
}

// Logout signs out of the active provider (best effort), erases all
// persisted session material including the pending-profile marker, tears
// down the scheduler and resets the state machine. Local state is always
// cleared: a stuck "logged in" state is worse than an orphaned server-side
// session.
func (o *Orchestrator) Logout(ctx context.Context) error {
	provider := o.store.Snapshot().Provider
	if id := o.identityFor(provider); id != nil {
		if err := id.SignOut(ctx); err != nil {
			o.log.Warn(ctx, "provider sign-out failed, clearing local session anyway", "provider", provider, "err", err)
		}
	}

	if err := o.tokens.Clear(ctx); err != nil {
		o.log.Warn(ctx, "could not clear secure token store on logout", "err", err)
	}
	if err := o.kv.MultiRemove(ctx, common.KeyCachedUser, common.KeyLegacyTokens, common.KeyPendingProfile); err != nil {
		o.log.Warn(ctx, "could not clear session keys on logout", "err", err)
	}

	// Disarm before resetting state so a stray timer cannot fire into the
	// signed-out state.
	o.sched.Teardown()
	o.store.Reset()
	return nil
}

func (o *Orchestrator) identityFor(name string) providers.Identity {
	for _, id := range o.identities {
		if id.Name() == name {
			return id
		}
	}
	return nil
}

// applyOutcome routes a recovery outcome into state, storage and the
// scheduler. pendingProfile lands in unauthenticated (there is no separate
// caller-facing status) but still arms the default-interval retry.
func (o *Orchestrator) applyOutcome(ctx context.Context, out Outcome) {
	switch out.Kind {
	case OutcomeAuthenticated:
		o.persistSession(ctx, out.User, out.Tokens)
		o.store.SetAuthenticated(out.User, out.Provider, out.Tokens.ExpiresAt)
		o.sched.MarkRefreshed()
		o.sched.ScheduleRefresh(out.Tokens.ExpiresAt, o.onRefreshDue)

	case OutcomePendingProfile:
		o.store.SetUnauthenticated("")
		o.sched.ScheduleRefresh(0, o.onRefreshDue)

	default:
		o.store.SetUnauthenticated("")
	}
}

// persistSession writes the user cache and the token set. A secure-store
// failure falls back to the legacy plaintext key so the session survives a
// relaunch; the legacy key is deleted again on the next successful secure
// write.
func (o *Orchestrator) persistSession(ctx context.Context, user *User, tokens *AuthTokens) {
	o.cacheUser(ctx, user)

	if err := o.tokens.Store(ctx, tokens); err != nil {
		o.met.RecordStoreFallback()
		if o.disableLegacyFallback {
			o.log.Error(ctx, "secure token store unavailable and legacy fallback disabled; session will not survive relaunch", "err", err)
			return
		}
		o.log.Warn(ctx, "secure token store unavailable, falling back to legacy storage", "err", err)
		raw, merr := json.Marshal(tokens)
		if merr != nil {
			o.log.Error(ctx, "could not marshal tokens for legacy fallback", "err", merr)
			return
		}
		if werr := o.kv.SetItem(ctx, common.KeyLegacyTokens, raw); werr != nil {
			o.log.Error(ctx, "legacy fallback write failed", "err", werr)
		}
		return
	}

	if err := o.kv.RemoveItem(ctx, common.KeyLegacyTokens); err != nil {
		o.log.Warn(ctx, "could not delete legacy token blob", "err", err)
	}
}

func (o *Orchestrator) cacheUser(ctx context.Context, user *User) {
	raw, err := json.Marshal(user)
	if err != nil {
		o.log.Error(ctx, "could not marshal user for caching", "err", err)
		return
	}
	if err := o.kv.SetItem(ctx, common.KeyCachedUser, raw); err != nil {
		o.log.Warn(ctx, "could not cache user", "err", err)
	}
}
