package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"skillguard/internal/risk"
	"skillguard/internal/telemetry"
)

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// explicit .env loading; a missing .env is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search skillguard.yaml in the working directory, then ~/.skillguard.
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".skillguard"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("skillguard")
	}

	viper.SetEnvPrefix("SKILLGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// Honor a plain SLACK_WEBHOOK_URL when the prefixed variable is absent.
	if os.Getenv("SKILLGUARD_NOTIFICATIONS_SLACK_WEBHOOK_URL") == "" && os.Getenv("SLACK_WEBHOOK_URL") != "" {
		viper.SetDefault("notifications.slack.webhook_url", os.Getenv("SLACK_WEBHOOK_URL"))
	}

	// Set defaults
	viper.SetDefault("offline", false)
	viper.SetDefault("no_color", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("scanner.audit_timeout", "2m")
	viper.SetDefault("scanner.lock_timeout", "1m")
	viper.SetDefault("scanner.max_file_size", 1<<20)
	viper.SetDefault("osv.url", "https://api.osv.dev")

	// Notification defaults
	viper.SetDefault("notifications.slack.min_level", "high")

	// History defaults
	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.path", ".skillguard.db")
	viper.SetDefault("history.dsn", "")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		telemetry.LogDebug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		telemetry.LogError("cannot read config file", err, "path", cfgFile)
	}
}

// AuditTimeout returns the budget for the npm audit subprocess.
func AuditTimeout() time.Duration {
	return durationKey("scanner.audit_timeout", 2*time.Minute)
}

// LockTimeout returns the budget for synthesizing a missing lock file.
func LockTimeout() time.Duration {
	return durationKey("scanner.lock_timeout", time.Minute)
}

func durationKey(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

// MaxFileSize returns the per-file byte cap for source analysis.
func MaxFileSize() int64 {
	if n := viper.GetInt64("scanner.max_file_size"); n > 0 {
		return n
	}
	return 1 << 20
}

// OSVEndpoints derives the batch and single-query URLs from osv.url.
func OSVEndpoints() (batchURL, queryURL string) {
	base := strings.TrimRight(viper.GetString("osv.url"), "/")
	return base + "/v1/querybatch", base + "/v1/query"
}

// ScoringOverrides collects the weights.* tables for the risk scorer. Keys
// under weights.category, weights.severity and weights.dependency map onto
// the scorer's category, code-severity and dependency-severity weights.
func ScoringOverrides() risk.Overrides {
	return risk.Overrides{
		Category:     weightTable("weights.category"),
		CodeSeverity: weightTable("weights.severity"),
		DepSeverity:  weightTable("weights.dependency"),
	}
}

func weightTable(key string) map[string]int {
	raw := viper.GetStringMap(key)
	if len(raw) == 0 {
		return nil
	}
	table := make(map[string]int, len(raw))
	for k := range raw {
		table[k] = viper.GetInt(key + "." + k)
	}
	return table
}
