// Package logs holds the engine's system log as shown by the log viewer.
package logs

import (
	"strconv"
	"strings"

	"github.com/ternarybob/prinde/internal/models"
)

// Classify derives the display level of a raw log line. The first matching
// marker wins, checked in the order INFO, WARN, ERR.
func Classify(line string) (string, int) {
	switch {
	case strings.Contains(line, "INFO"):
		return "info", models.LogLevelInfo
	case strings.Contains(line, "WARN"):
		return "warn", models.LogLevelWarn
	case strings.Contains(line, "ERR"):
		return "error", models.LogLevelError
	default:
		return "debug", models.LogLevelDebug
	}
}

// ParseLevel accepts a level name or its number. Unknown input means debug.
func ParseLevel(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	switch s {
	case "info":
		return models.LogLevelInfo
	case "warn", "warning":
		return models.LogLevelWarn
	case "error", "err":
		return models.LogLevelError
	default:
		return models.LogLevelDebug
	}
}
