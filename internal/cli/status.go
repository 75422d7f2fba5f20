package cli

import (
	"context"
	"fmt"
	"time"
)

// Status prints the current session state.
func (a *App) Status(ctx context.Context) error {
	st := a.orch.State()

	printlnFn("Status:     ", string(st.Status))
	printlnFn("Initialized:", fmt.Sprintf("%v", st.Initialized))
	if st.User != nil {
		printlnFn("User:       ", st.User.Email)
		printlnFn("Provider:   ", st.Provider)
		if st.User.ProfileToken != "" {
			printlnFn("Profile:    ", "complete")
		} else {
			printlnFn("Profile:    ", "missing")
		}
	}
	if st.SessionExpiry > 0 {
		printlnFn("Expires:    ", time.UnixMilli(st.SessionExpiry).Format(time.RFC3339))
	}
	if st.LastRefresh > 0 {
		printlnFn("Refreshed:  ", time.UnixMilli(st.LastRefresh).Format(time.RFC3339))
	}
	if st.Err != "" {
		printlnFn("Error:      ", st.Err)
	}
	return nil
}
