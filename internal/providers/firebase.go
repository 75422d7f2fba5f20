package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
)

const (
	defaultTokenEndpoint  = "https://securetoken.googleapis.com/v1/token"
	defaultLookupEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:lookup"
)

// Firebase adapts the mobile auth backend's REST API to the Identity
// capability. There is no official Go client SDK, so the adapter speaks the
// securetoken (refresh) and identitytoolkit (account lookup) endpoints
// directly. The Firebase ID token doubles as the bearer/access token.
type Firebase struct {
	apiKey         string
	httpc          *http.Client
	tokenEndpoint  string
	lookupEndpoint string
	log            logging.Logger
	clock          func() time.Time

	mu           sync.Mutex
	idToken      string
	refreshToken string
	expiresAt    int64
	attrs        map[string]string
	principal    *Principal
}

// FirebaseOptions configures the Firebase adapter. Endpoint overrides are
// for tests.
type FirebaseOptions struct {
	APIKey         string
	HTTPClient     *http.Client
	TokenEndpoint  string
	LookupEndpoint string
}

func NewFirebase(opts FirebaseOptions, log logging.Logger) *Firebase {
	f := &Firebase{
		apiKey:         opts.APIKey,
		httpc:          opts.HTTPClient,
		tokenEndpoint:  opts.TokenEndpoint,
		lookupEndpoint: opts.LookupEndpoint,
		log:            log,
		clock:          time.Now,
	}
	if f.httpc == nil {
		f.httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if f.tokenEndpoint == "" {
		f.tokenEndpoint = defaultTokenEndpoint
	}
	if f.lookupEndpoint == "" {
		f.lookupEndpoint = defaultLookupEndpoint
	}
	return f
}

func (f *Firebase) Name() string { return common.ProviderFirebase }

// Adopt installs a token set obtained out of band (the shell's sign-in flow
// or recovery from storage) as the adapter's current session. The ID token
// is the access token here, so only IDToken, RefreshToken and ExpiresAt are
// read.
func (f *Firebase) Adopt(sess *Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idToken = sess.IDToken
	f.refreshToken = sess.RefreshToken
	f.expiresAt = sess.ExpiresAt
	f.attrs = nil
	f.principal = nil
}

// FetchSession returns the current ID token, exchanging the refresh token
// for a fresh one when the current token has expired.
func (f *Firebase) FetchSession(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.idToken == "" && f.refreshToken == "" {
		return nil, nil
	}

	stillValid := f.idToken != "" &&
		(f.expiresAt == 0 || f.expiresAt > f.clock().UnixMilli())
	if !stillValid {
		if f.refreshToken == "" {
			return nil, nil
		}
		if err := f.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}

	return &Session{
		IDToken:      f.idToken,
		AccessToken:  f.idToken,
		RefreshToken: f.refreshToken,
		ExpiresAt:    f.expiresAt,
	}, nil
}

// refreshLocked exchanges the refresh token at the securetoken endpoint.
// Callers hold f.mu.
func (f *Firebase) refreshLocked(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {f.refreshToken},
	}
	endpoint := f.tokenEndpoint + "?key=" + url.QueryEscape(f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		// securetoken answers 400 for expired, revoked and malformed
		// refresh tokens.
		if resp.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("token refresh: %w (status %d)", common.ErrInvalidToken, resp.StatusCode)
		}
		return fmt.Errorf("token refresh: %w (status %d)", common.ErrUnauthorized, resp.StatusCode)
	}

	var body struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("token refresh decode failed: %w", err)
	}

	f.idToken = body.IDToken
	if body.RefreshToken != "" {
		f.refreshToken = body.RefreshToken
	}
	if secs, err := strconv.ParseInt(body.ExpiresIn, 10, 64); err == nil && secs > 0 {
		f.expiresAt = f.clock().Add(time.Duration(secs) * time.Second).UnixMilli()
	} else {
		f.expiresAt = 0
	}

	// The account state may have changed server-side; force a reload.
	f.attrs = nil
	f.principal = nil
	return nil
}

// FetchPrincipal reloads the account via accounts:lookup and returns the
// principal.
func (f *Firebase) FetchPrincipal(ctx context.Context) (*Principal, error) {
	if err := f.ensureAccount(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.principal
	return &cp, nil
}

// FetchAttributes returns the account's attributes from the last reload.
func (f *Firebase) FetchAttributes(ctx context.Context) (map[string]string, error) {
	if err := f.ensureAccount(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	attrs := make(map[string]string, len(f.attrs))
	for k, v := range f.attrs {
		attrs[k] = v
	}
	return attrs, nil
}

func (f *Firebase) ensureAccount(ctx context.Context) error {
	f.mu.Lock()
	if f.principal != nil {
		f.mu.Unlock()
		return nil
	}
	idToken := f.idToken
	f.mu.Unlock()

	if idToken == "" {
		return common.ErrNoSession
	}

	payload, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return err
	}
	endpoint := f.lookupEndpoint + "?key=" + url.QueryEscape(f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("account lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("account lookup: %w (status %d)", common.ErrUnauthorized, resp.StatusCode)
	}

	var body struct {
		Users []struct {
			LocalID     string `json:"localId"`
			Email       string `json:"email"`
			DisplayName string `json:"displayName"`
			PhoneNumber string `json:"phoneNumber"`
			PhotoURL    string `json:"photoUrl"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("account lookup decode failed: %w", err)
	}
	if len(body.Users) == 0 {
		return common.ErrNoSession
	}
	u := body.Users[0]

	attrs := map[string]string{}
	if u.Email != "" {
		attrs["email"] = u.Email
	}
	if u.PhoneNumber != "" {
		attrs["phone_number"] = u.PhoneNumber
	}
	if u.PhotoURL != "" {
		attrs["picture"] = u.PhotoURL
	}
	if u.DisplayName != "" {
		given, family, _ := strings.Cut(u.DisplayName, " ")
		attrs["given_name"] = given
		if family != "" {
			attrs["family_name"] = family
		}
	}

	f.mu.Lock()
	f.principal = &Principal{ID: u.LocalID, Username: u.Email}
	f.attrs = attrs
	f.mu.Unlock()
	return nil
}

// SignOut drops the adapter's local state. The backend has no server-side
// sign-out for mobile clients; revocation happens through the console.
func (f *Firebase) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idToken = ""
	f.refreshToken = ""
	f.expiresAt = 0
	f.attrs = nil
	f.principal = nil
	return nil
}
