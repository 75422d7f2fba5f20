package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/require"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/logging"
)

// fakeCognitoAPI implements cognitoAPI for unit tests.
type fakeCognitoAPI struct {
	InitiateAuthOut *cip.InitiateAuthOutput
	InitiateAuthErr error
	GetUserOut      *cip.GetUserOutput
	GetUserErr      error
	GlobalSignOutErr error

	InitiateAuthCalls int
	LastAuthFlow      ciptypes.AuthFlowType
	LastAuthParams    map[string]string
	GlobalSignOutCalls int
}

func (f *fakeCognitoAPI) InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.InitiateAuthCalls++
	f.LastAuthFlow = params.AuthFlow
	f.LastAuthParams = params.AuthParameters
	return f.InitiateAuthOut, f.InitiateAuthErr
}

func (f *fakeCognitoAPI) GetUser(ctx context.Context, params *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error) {
	return f.GetUserOut, f.GetUserErr
}

func (f *fakeCognitoAPI) GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	f.GlobalSignOutCalls++
	return &cip.GlobalSignOutOutput{}, f.GlobalSignOutErr
}

func newTestCognito(api cognitoAPI) *Cognito {
	return &Cognito{
		api:      api,
		clientID: "client-1",
		log:      logging.NewNopLogger(),
		clock:    func() time.Time { return time.UnixMilli(1_000_000) },
	}
}

func TestCognito_FetchSession_NoSession(t *testing.T) {
	c := newTestCognito(&fakeCognitoAPI{})

	sess, err := c.FetchSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestCognito_FetchSession_ValidTokensReturnedWithoutRefresh(t *testing.T) {
	api := &fakeCognitoAPI{}
	c := newTestCognito(api)
	c.Adopt(&Session{IDToken: "id", AccessToken: "at", RefreshToken: "rt", ExpiresAt: 2_000_000})

	sess, err := c.FetchSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "id", sess.IDToken)
	require.Zero(t, api.InitiateAuthCalls)
}

func TestCognito_FetchSession_RefreshesExpiredTokens(t *testing.T) {
	api := &fakeCognitoAPI{
		InitiateAuthOut: &cip.InitiateAuthOutput{
			AuthenticationResult: &ciptypes.AuthenticationResultType{
				IdToken:     aws.String("new-id"),
				AccessToken: aws.String("new-at"),
				ExpiresIn:   3600,
			},
		},
	}
	c := newTestCognito(api)
	c.Adopt(&Session{IDToken: "id", AccessToken: "at", RefreshToken: "rt", ExpiresAt: 999})

	sess, err := c.FetchSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-id", sess.IDToken)
	require.Equal(t, "new-at", sess.AccessToken)
	// Refresh token is kept when the pool does not rotate it.
	require.Equal(t, "rt", sess.RefreshToken)
	require.Equal(t, time.UnixMilli(1_000_000).Add(time.Hour).UnixMilli(), sess.ExpiresAt)
	require.Equal(t, ciptypes.AuthFlowTypeRefreshTokenAuth, api.LastAuthFlow)
}

func TestCognito_FetchSession_RefreshFailure(t *testing.T) {
	api := &fakeCognitoAPI{InitiateAuthErr: errors.New("pool down")}
	c := newTestCognito(api)
	c.Adopt(&Session{RefreshToken: "rt"})

	_, err := c.FetchSession(context.Background())
	require.Error(t, err)
}

func TestCognito_FetchPrincipalAndAttributes(t *testing.T) {
	api := &fakeCognitoAPI{
		GetUserOut: &cip.GetUserOutput{
			Username: aws.String("marta"),
			UserAttributes: []ciptypes.AttributeType{
				{Name: aws.String("sub"), Value: aws.String("u-1")},
				{Name: aws.String("email"), Value: aws.String("marta@example.com")},
				{Name: aws.String("given_name"), Value: aws.String("Marta")},
			},
		},
	}
	c := newTestCognito(api)
	c.Adopt(&Session{IDToken: "id", AccessToken: "at"})

	p, err := c.FetchPrincipal(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u-1", p.ID)
	require.Equal(t, "marta", p.Username)

	attrs, err := c.FetchAttributes(context.Background())
	require.NoError(t, err)
	require.Equal(t, "marta@example.com", attrs["email"])
	require.Equal(t, "Marta", attrs["given_name"])
}

func TestCognito_FetchPrincipal_NoSession(t *testing.T) {
	c := newTestCognito(&fakeCognitoAPI{})

	_, err := c.FetchPrincipal(context.Background())
	require.ErrorIs(t, err, common.ErrNoSession)
}

func TestCognito_SignOut_ClearsSessionEvenOnError(t *testing.T) {
	api := &fakeCognitoAPI{GlobalSignOutErr: errors.New("boom")}
	c := newTestCognito(api)
	c.Adopt(&Session{IDToken: "id", AccessToken: "at", RefreshToken: "rt"})

	err := c.SignOut(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, api.GlobalSignOutCalls)

	sess, err := c.FetchSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestCognito_PasswordLogin(t *testing.T) {
	api := &fakeCognitoAPI{
		InitiateAuthOut: &cip.InitiateAuthOutput{
			AuthenticationResult: &ciptypes.AuthenticationResultType{
				IdToken:      aws.String("id"),
				AccessToken:  aws.String("at"),
				RefreshToken: aws.String("rt"),
				ExpiresIn:    60,
			},
		},
	}
	c := newTestCognito(api)

	sess, err := c.PasswordLogin(context.Background(), "marta", []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, "rt", sess.RefreshToken)
	require.Equal(t, ciptypes.AuthFlowTypeUserPasswordAuth, api.LastAuthFlow)
	require.Equal(t, "marta", api.LastAuthParams["USERNAME"])

	got, err := c.FetchSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "id", got.IDToken)
}
