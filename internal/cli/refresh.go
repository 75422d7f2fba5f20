package cli

import "context"

// Refresh re-runs session recovery on demand.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.orch.Refresh(ctx); err != nil {
		printlnFn("Refresh failed:", err.Error())
		return err
	}
	printlnFn("Refreshed; status:", string(a.orch.State().Status))
	return nil
}
