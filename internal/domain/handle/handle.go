// Package handle validates creator handles used as URL path segments.
package handle

import (
	"regexp"
	"strings"
)

// MaxLength is the longest accepted handle.
const MaxLength = 64

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// IsValid reports whether h is safe to render as a single URL path segment:
// no separators, no traversal, no control characters.
func IsValid(h string) bool {
	if h == "" || len(h) > MaxLength {
		return false
	}
	if !handlePattern.MatchString(h) {
		return false
	}
	if strings.HasPrefix(h, ".") || strings.Contains(h, "..") {
		return false
	}
	return true
}
