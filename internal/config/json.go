package config

import (
	"encoding/json"
	"os"

	"github.com/pawkeeper/mobilesession/internal/flagx"
	"github.com/pawkeeper/mobilesession/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so config files can specify intervals either as strings
// like "2m" or as integer nanoseconds. Zero values leave the corresponding
// Config field untouched.
type JSONConfig struct {
	DatabasePath      string `json:"database_path"`
	AWSRegion         string `json:"aws_region"`
	CognitoClientID   string `json:"cognito_client_id"`
	FirebaseAPIKey    string `json:"firebase_api_key"`
	ProfileServiceURL string `json:"profile_service_url"`

	RefreshBuffer          timex.Duration `json:"refresh_buffer"`
	DefaultRefreshInterval timex.Duration `json:"default_refresh_interval"`
	MaxRefreshDelay        timex.Duration `json:"max_refresh_delay"`
	ForegroundThrottle     timex.Duration `json:"foreground_throttle"`
	ProviderTimeout        timex.Duration `json:"provider_timeout"`

	DisableLegacyFallback bool `json:"disable_legacy_fallback"`
}

// parseJSON overlays cfg with values loaded from the JSON file named by the
// -c/-config flag. No file flag means no JSON layer. Read or unmarshal
// errors panic, matching flag-parsing behavior; LoadConfig runs at startup
// where a bad config file should be fatal.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.AWSRegion != "" {
		cfg.AWSRegion = jc.AWSRegion
	}
	if jc.CognitoClientID != "" {
		cfg.CognitoClientID = jc.CognitoClientID
	}
	if jc.FirebaseAPIKey != "" {
		cfg.FirebaseAPIKey = jc.FirebaseAPIKey
	}
	if jc.ProfileServiceURL != "" {
		cfg.ProfileServiceURL = jc.ProfileServiceURL
	}
	if jc.RefreshBuffer.Duration != 0 {
		cfg.RefreshBuffer = jc.RefreshBuffer.Duration
	}
	if jc.DefaultRefreshInterval.Duration != 0 {
		cfg.DefaultRefreshInterval = jc.DefaultRefreshInterval.Duration
	}
	if jc.MaxRefreshDelay.Duration != 0 {
		cfg.MaxRefreshDelay = jc.MaxRefreshDelay.Duration
	}
	if jc.ForegroundThrottle.Duration != 0 {
		cfg.ForegroundThrottle = jc.ForegroundThrottle.Duration
	}
	if jc.ProviderTimeout.Duration != 0 {
		cfg.ProviderTimeout = jc.ProviderTimeout.Duration
	}
	if jc.DisableLegacyFallback {
		cfg.DisableLegacyFallback = true
	}
}
