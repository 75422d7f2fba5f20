// Package cli implements sessionctl, an interactive shell for exercising the
// session subsystem against real providers: sign in, watch recovery and
// refresh behavior, update the profile, sign out.
package cli
