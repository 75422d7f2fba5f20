package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
)

// cognitoAPI is the slice of the Cognito IdP client the adapter needs.
// It exists so tests can substitute a fake without network access.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GetUser(ctx context.Context, params *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Cognito adapts the AWS user pool to the Identity capability. It keeps the
// last-known token set in memory and refreshes it through the pool's
// REFRESH_TOKEN_AUTH flow when the access token has expired.
type Cognito struct {
	api      cognitoAPI
	clientID string
	log      logging.Logger
	clock    func() time.Time

	mu   sync.Mutex
	sess *Session
}

// CognitoOptions configures the Cognito adapter.
type CognitoOptions struct {
	Region   string
	ClientID string

	// Static credentials for dev/test pools; production relies on the
	// default provider chain (the user-pool auth APIs accept anonymous
	// callers anyway).
	AccessKeyID     string
	SecretAccessKey string
}

// NewCognito builds the adapter with a real AWS SDK client.
func NewCognito(ctx context.Context, opts CognitoOptions, log logging.Logger) (*Cognito, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &Cognito{
		api:      cip.NewFromConfig(cfg),
		clientID: opts.ClientID,
		log:      log,
		clock:    time.Now,
	}, nil
}

func (c *Cognito) Name() string { return common.ProviderAmplify }

// Adopt installs a token set obtained out of band (interactive sign-in or
// recovery from storage) as the adapter's current session.
func (c *Cognito) Adopt(sess *Session) {
	cp := *sess
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = &cp
}

// FetchSession returns the current token set, refreshing it via the user
// pool when expired. (nil, nil) means the adapter holds no session at all.
func (c *Cognito) FetchSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil, nil
	}
	if c.sess.IDToken != "" && c.sess.AccessToken != "" && !c.expired() {
		cp := *c.sess
		return &cp, nil
	}
	if c.sess.RefreshToken == "" {
		return nil, nil
	}

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: ciptypes.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": c.sess.RefreshToken,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("refresh token auth failed: %w", err)
	}
	if out.AuthenticationResult == nil {
		return nil, common.ErrNoSession
	}

	refreshed := c.sessionFromResult(out.AuthenticationResult)
	if refreshed.RefreshToken == "" {
		// The pool omits the refresh token when it has not rotated.
		refreshed.RefreshToken = c.sess.RefreshToken
	}
	c.sess = refreshed

	cp := *c.sess
	return &cp, nil
}

func (c *Cognito) expired() bool {
	if c.sess.ExpiresAt == 0 {
		return false
	}
	return c.sess.ExpiresAt <= c.clock().UnixMilli()
}

func (c *Cognito) sessionFromResult(res *ciptypes.AuthenticationResultType) *Session {
	s := &Session{
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
	}
	if res.ExpiresIn > 0 {
		s.ExpiresAt = c.clock().Add(time.Duration(res.ExpiresIn) * time.Second).UnixMilli()
	}
	return s
}

// FetchPrincipal resolves the authenticated principal via GetUser. The
// principal id is the pool's "sub" attribute, falling back to the username.
func (c *Cognito) FetchPrincipal(ctx context.Context) (*Principal, error) {
	out, err := c.getUser(ctx)
	if err != nil {
		return nil, err
	}

	p := &Principal{Username: aws.ToString(out.Username)}
	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == "sub" {
			p.ID = aws.ToString(attr.Value)
		}
	}
	if p.ID == "" {
		p.ID = p.Username
	}
	return p, nil
}

// FetchAttributes returns the principal's pool attributes as a plain map.
func (c *Cognito) FetchAttributes(ctx context.Context) (map[string]string, error) {
	out, err := c.getUser(ctx)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]string, len(out.UserAttributes))
	for _, attr := range out.UserAttributes {
		attrs[aws.ToString(attr.Name)] = aws.ToString(attr.Value)
	}
	return attrs, nil
}

func (c *Cognito) getUser(ctx context.Context) (*cip.GetUserOutput, error) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil || sess.AccessToken == "" {
		return nil, common.ErrNoSession
	}
	out, err := c.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(sess.AccessToken)})
	if err != nil {
		return nil, fmt.Errorf("get user failed: %w", err)
	}
	return out, nil
}

// SignOut revokes every token issued to the user via GlobalSignOut and drops
// the local session regardless of the call's outcome.
func (c *Cognito) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess == nil || sess.AccessToken == "" {
		return nil
	}
	if _, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(sess.AccessToken)}); err != nil {
		return fmt.Errorf("global sign out failed: %w", err)
	}
	return nil
}

// PasswordLogin performs the USER_PASSWORD_AUTH flow and adopts the issued
// token set. Used by sessionctl's interactive login; mobile shells complete
// sign-in through their own UI flows instead.
func (c *Cognito) PasswordLogin(ctx context.Context, username string, password []byte) (*Session, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: ciptypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": string(password),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("password auth failed: %w", err)
	}
	if out.AuthenticationResult == nil {
		return nil, common.ErrUnauthorized
	}

	sess := c.sessionFromResult(out.AuthenticationResult)

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	cp := *sess
	return &cp, nil
}
