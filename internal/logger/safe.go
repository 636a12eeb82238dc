package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MaxErrorLen caps how many bytes of an error message reach the logs.
const MaxErrorLen = 200

// SafeError renders err for logging with control characters replaced by
// spaces and the message cut to MaxErrorLen bytes on a rune boundary.
// Backend errors may echo request data, so they are logged only through it.
func SafeError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", Sanitize(err.Error()))
}

// Sanitize applies the SafeError rules to an arbitrary string.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	if len(s) <= MaxErrorLen {
		return s
	}
	cut := MaxErrorLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
