package cli

import "context"

// Logout signs out of the active provider and erases local session material.
func (a *App) Logout(ctx context.Context) error {
	if err := a.orch.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	printlnFn("Logged out")
	return nil
}
