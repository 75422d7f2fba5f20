package session

import (
	"context"
	"sync"

	"github.com/pawkeeper/mobilesession/internal/providers"
)

// ---- fake KV ----

// fakeKV implements storage.KV on a map, with injectable failures.
type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte

	GetErr    error
	SetErr    error
	RemoveErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}}
}

func (f *fakeKV) GetItem(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (f *fakeKV) SetItem(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeKV) RemoveItem(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	delete(f.data, key)
	return nil
}

func (f *fakeKV) MultiRemove(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// ---- fake identity provider ----

type fakeIdentity struct {
	NameTag string

	Sess    *providers.Session
	SessErr error

	Principal    *providers.Principal
	PrincipalErr error

	Attrs    map[string]string
	AttrsErr error

	SignOutErr error

	// Adopted records the last token set handed to the adapter. When
	// RenewedSess is set, adoption installs it as the current session,
	// modeling the adapter renewing an adopted set through the provider.
	Adopted     *providers.Session
	RenewedSess *providers.Session

	FetchSessionCalls int
	SignOutCalls      int
}

func (f *fakeIdentity) Name() string { return f.NameTag }

func (f *fakeIdentity) Adopt(sess *providers.Session) {
	cp := *sess
	f.Adopted = &cp
	if f.RenewedSess != nil {
		f.Sess = f.RenewedSess
	} else {
		f.Sess = &cp
	}
}

func (f *fakeIdentity) FetchSession(ctx context.Context) (*providers.Session, error) {
	f.FetchSessionCalls++
	if f.SessErr != nil {
		return nil, f.SessErr
	}
	if f.Sess == nil {
		return nil, nil
	}
	cp := *f.Sess
	return &cp, nil
}

func (f *fakeIdentity) FetchPrincipal(ctx context.Context) (*providers.Principal, error) {
	if f.PrincipalErr != nil {
		return nil, f.PrincipalErr
	}
	cp := *f.Principal
	return &cp, nil
}

func (f *fakeIdentity) FetchAttributes(ctx context.Context) (map[string]string, error) {
	return f.Attrs, f.AttrsErr
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.SignOutCalls++
	return f.SignOutErr
}

// ---- fake profile gate ----

type fakeGate struct {
	Status *providers.ProfileStatus
	Err    error

	Calls   int
	LastReq providers.ProfileStatusRequest
}

func (f *fakeGate) FetchProfileStatus(ctx context.Context, req providers.ProfileStatusRequest) (*providers.ProfileStatus, error) {
	f.Calls++
	f.LastReq = req
	if f.Err != nil {
		return nil, f.Err
	}
	cp := *f.Status
	return &cp, nil
}

// ---- fake token store ----

type fakeTokenStore struct {
	mu     sync.Mutex
	Tokens *AuthTokens

	LoadErr  error
	StoreErr error
	ClearErr error

	StoreCalls int
	ClearCalls int
}

func (f *fakeTokenStore) Load(ctx context.Context) (*AuthTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	if f.Tokens == nil {
		return nil, nil
	}
	cp := *f.Tokens
	return &cp, nil
}

func (f *fakeTokenStore) Store(ctx context.Context, tokens *AuthTokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StoreCalls++
	if f.StoreErr != nil {
		return f.StoreErr
	}
	cp := *tokens
	f.Tokens = &cp
	return nil
}

func (f *fakeTokenStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClearCalls++
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.Tokens = nil
	return nil
}

// ---- fake recoverer (orchestrator tests) ----

type fakeRecoverer struct {
	mu    sync.Mutex
	Out   Outcome
	Err   error
	Calls int

	// Block, when non-nil, is received from inside Recover so tests can
	// hold a recovery in flight.
	Block chan struct{}

	// Started, when non-nil, gets one send per Recover entry.
	Started chan struct{}
}

func (f *fakeRecoverer) Recover(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	f.Calls++
	block := f.Block
	started := f.Started
	out, err := f.Out, f.Err
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return out, err
}

func (f *fakeRecoverer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
