// Package sysutil holds process-level helpers shared by config loading and
// the server entrypoint.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// ParseLogLevel maps a LOG_LEVEL value to a zerolog level. Matching is
// case-insensitive, "warning" is accepted for warn, and anything empty or
// unknown means info.
func ParseLogLevel(lvl string) zerolog.Level {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	l, err := zerolog.ParseLevel(s)
	if err != nil || s == "" || l == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return l
}

// SetLogLevel applies ParseLogLevel(lvl) globally and returns the result.
func SetLogLevel(lvl string) zerolog.Level {
	l := ParseLogLevel(lvl)
	zerolog.SetGlobalLevel(l)
	return l
}

// IsTruthy reports whether v spells true: "1", "true", "yes", "y" or "on",
// ignoring case and surrounding space.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
