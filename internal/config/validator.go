package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"skillguard/internal/finding"
)

// ValidateConfig validates configuration values and returns an error if any
// are invalid. This function should be called after viper has loaded the
// configuration.
func ValidateConfig() error {
	var errors []string

	// Validate timeout values (must be positive)
	// Try GetDuration first, then fall back to GetInt (seconds) if that fails
	for _, key := range []string{"scanner.audit_timeout", "scanner.lock_timeout"} {
		if !viper.IsSet(key) {
			continue
		}
		var timeout time.Duration
		if d := viper.GetDuration(key); d != 0 {
			timeout = d
		} else if s := viper.GetInt(key); s != 0 {
			timeout = time.Duration(s) * time.Second
		}
		if timeout <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %v", key, timeout))
		}
	}

	// Validate max file size (if set, must be positive)
	if viper.IsSet("scanner.max_file_size") {
		if n := viper.GetInt64("scanner.max_file_size"); n <= 0 {
			errors = append(errors, fmt.Sprintf("scanner.max_file_size must be positive, got: %d", n))
		}
	}

	// Validate OSV endpoint (if set, must be an http(s) URL)
	if viper.IsSet("osv.url") {
		u := viper.GetString("osv.url")
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errors = append(errors, fmt.Sprintf("osv.url must be an http(s) URL, got: %s", u))
		}
	}

	// Validate notification threshold (if set, must be a known risk level)
	if viper.IsSet("notifications.slack.min_level") {
		level := viper.GetString("notifications.slack.min_level")
		if _, err := finding.ParseRiskLevel(level); err != nil {
			errors = append(errors, fmt.Sprintf("notifications.slack.min_level must be one of safe, low, medium, high, critical, got: %s", level))
		}
	}

	// Validate history backend (if set, must be a supported store)
	if viper.IsSet("history.backend") {
		switch strings.ToLower(viper.GetString("history.backend")) {
		case "sqlite", "sqlite3", "postgres", "postgresql", "":
		default:
			errors = append(errors, fmt.Sprintf("history.backend must be sqlite or postgres, got: %s", viper.GetString("history.backend")))
		}
	}

	// If there are any errors, return them
	if len(errors) > 0 {
		errorMsg := errors[0]
		for i := 1; i < len(errors); i++ {
			errorMsg += "\n  " + errors[i]
		}
		return fmt.Errorf("configuration validation failed:\n  %s", errorMsg)
	}

	return nil
}
