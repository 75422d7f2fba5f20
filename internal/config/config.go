// Package config holds runtime settings for the mobile session library and
// the sessionctl tool. Values are layered: defaults, then JSON file, then
// command-line flags, with later sources taking precedence.
package config

import "time"

// Config holds runtime settings for the session subsystem.
//
// Refresh timing fields correspond to the scheduler contract: a proactive
// refresh fires RefreshBuffer before token expiry, never sooner than
// RefreshBuffer from now and never later than MaxRefreshDelay; tokens with
// unknown expiry are refreshed every DefaultRefreshInterval; foreground
// transitions are throttled to at most one refresh per ForegroundThrottle.
type Config struct {
	DatabasePath      string
	AWSRegion         string
	CognitoClientID   string
	FirebaseAPIKey    string
	ProfileServiceURL string

	// DeviceSecret is the host-supplied secret (typically sourced from the
	// OS keystore) the encrypted token store derives its key from.
	DeviceSecret string

	RefreshBuffer          time.Duration
	DefaultRefreshInterval time.Duration
	MaxRefreshDelay        time.Duration
	ForegroundThrottle     time.Duration
	ProviderTimeout        time.Duration

	// DisableLegacyFallback forbids the plaintext fallback write when the
	// secure token store is unavailable. Off by default: session survival
	// is preferred over at-rest confidentiality.
	DisableLegacyFallback bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "session.db"
	c.ProfileServiceURL = "http://127.0.0.1:8080"
	c.RefreshBuffer = 2 * time.Minute
	c.DefaultRefreshInterval = 6 * time.Hour
	c.MaxRefreshDelay = 12 * time.Hour
	c.ForegroundThrottle = 1 * time.Minute
	c.ProviderTimeout = 15 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
