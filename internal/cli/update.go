package cli

import (
	"context"
	"os"

	"github.com/pawkeeper/mobilesession/internal/session"
)

// Update edits profile fields of the signed-in user. An empty answer keeps
// the current value.
func (a *App) Update(ctx context.Context) error {
	if !a.isSignedIn() {
		printlnFn("Not signed in")
		return nil
	}

	patch := session.UserPatch{}
	fields := []struct {
		prompt string
		dest   **string
	}{
		{"Given name (empty to keep)", &patch.GivenName},
		{"Family name (empty to keep)", &patch.FamilyName},
		{"Phone (empty to keep)", &patch.Phone},
		{"Birth date YYYY-MM-DD (empty to keep)", &patch.BirthDate},
	}

	for _, f := range fields {
		v, err := GetSimpleText(a.reader, f.prompt, os.Stdout)
		if err != nil {
			printlnFn("error:", err.Error())
			return err
		}
		if v != "" {
			v := v
			*f.dest = &v
		}
	}

	if err := a.orch.UpdateUserProfile(ctx, patch); err != nil {
		printlnFn("Update failed:", err.Error())
		return err
	}
	printlnFn("Profile updated")
	return nil
}
