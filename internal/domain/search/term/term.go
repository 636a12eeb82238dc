// Package term normalizes and validates raw, user-typed search input.
package term

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/marketsearch/internal/domain"
)

// Search input limits.
const (
	// MaxLength is the maximum term length, in characters, after normalization.
	MaxLength = 200
	// MinLength is the minimum term length accepted for querying.
	MinLength    = 2
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 50
)

var (
	safePattern  = regexp.MustCompile(`^[a-zA-Z0-9\s\-_'.,]+$`)
	digitPattern = regexp.MustCompile(`^\d+$`)
)

// Term is a validated search term. The zero value is not a valid term.
type Term struct {
	value string
}

// New validates a normalized term.
// Returns domain.ErrTermTooShort or domain.ErrUnsafeTerm (both wrap domain.ErrInvalidInput).
func New(normalized string) (Term, error) {
	if utf8.RuneCountInString(normalized) < MinLength {
		return Term{}, domain.ErrTermTooShort
	}
	if !IsSafe(normalized) {
		return Term{}, domain.ErrUnsafeTerm
	}
	return Term{value: normalized}, nil
}

// Parse normalizes and validates a raw term in one step.
func Parse(raw string) (Term, error) {
	return New(Normalize(raw))
}

// String returns the term text.
func (t Term) String() string { return t.value }

// IsZero reports whether t was never validated.
func (t Term) IsZero() bool { return t.value == "" }

// IsSafe reports whether s is non-empty and built only from letters, digits,
// whitespace and - _ ' . , characters.
func IsSafe(s string) bool {
	return s != "" && safePattern.MatchString(s)
}

// Normalize trims s, caps it at MaxLength characters and strips control bytes
// (0x00-0x1F, 0x7F). An absent term is passed as "". Never fails.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxLength {
		s = string([]rune(s)[:MaxLength])
	}
	s = StripControl(s)
	return strings.TrimSpace(s)
}

// StripControl removes ASCII control characters (0x00-0x1F and 0x7F).
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return -1
		}
		return r
	}, s)
}

// ParseLimit accepts a digit-only string and clamps it to [MinLimit, MaxLimit].
// Anything else, including an absent value, yields DefaultLimit.
func ParseLimit(raw string) int {
	if !digitPattern.MatchString(raw) {
		return DefaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// overflowing digit strings are still "too large"
		return MaxLimit
	}
	return ClampLimit(n)
}

// ClampLimit clamps n to [MinLimit, MaxLimit].
func ClampLimit(n int) int {
	if n < MinLimit {
		return MinLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
