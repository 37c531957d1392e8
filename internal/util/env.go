// Package util holds small helpers shared by both binaries.
package util

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// EnvOrDefault returns the trimmed environment variable value or fallback when it is
// empty.
func EnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// EnvDuration parses the environment variable as a duration. Unset or unparsable
// values yield fallback; the latter is logged.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	raw := EnvOrDefault(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration", slog.String("key", key), slog.String("value", raw))
		return fallback
	}
	return d
}
