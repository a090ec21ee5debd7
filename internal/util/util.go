// Package util provides small helpers shared across fueltwin.
package util

import (
	"strings"
	"time"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg normalizes one command argument: surrounding whitespace and quotes
// are removed and doubled quotes unescaped.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// SanitizeName makes s safe to use inside a file name.
func SanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// SimDuration converts simulation seconds to a time.Duration.
func SimDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
