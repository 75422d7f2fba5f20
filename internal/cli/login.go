package cli

import (
	"context"
	"os"

	"github.com/pawkeeper/mobilesession/internal/common"
	"github.com/pawkeeper/mobilesession/internal/session"
)

// Login runs the USER_PASSWORD_AUTH flow against the user pool and installs
// the issued session. Mobile shells sign in through their own UI; this is the
// command-line equivalent.
func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.cognito.PasswordLogin(ctx, username, password)
	if err != nil {
		printlnFn("Login unsuccessful:", err.Error())
		return err
	}

	principal, err := a.cognito.FetchPrincipal(ctx)
	if err != nil {
		printlnFn("Could not resolve user identity:", err.Error())
		return err
	}
	attrs, err := a.cognito.FetchAttributes(ctx)
	if err != nil {
		printlnFn("Could not load user attributes:", err.Error())
		return err
	}

	user := session.UserFromAttributes(principal.ID, attrs)
	tokens := &session.AuthTokens{
		IDToken:      sess.IDToken,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		UserID:       principal.ID,
		Provider:     a.cognito.Name(),
	}

	if err := a.orch.EstablishSession(ctx, user, tokens); err != nil {
		printlnFn("Could not establish session:", err.Error())
		return err
	}

	printlnFn("Login successful")
	return nil
}
