package logger

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "connection refused", "connection refused"},
		{"newlines", "line1\nline2\r\x1b[31m", "line1 line2  [31m"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	long := strings.Repeat("a", MaxErrorLen+50)
	got := Sanitize(long)
	if got != strings.Repeat("a", MaxErrorLen)+"..." {
		t.Errorf("unexpected truncation: len=%d", len(got))
	}
}

func TestSanitize_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("a", MaxErrorLen-1) + "é" + "tail"
	got := Sanitize(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	body := strings.TrimSuffix(got, "...")
	if body != strings.Repeat("a", MaxErrorLen-1) {
		t.Errorf("cut inside a rune: %q", body)
	}
}

func TestSafeError(t *testing.T) {
	f := SafeError(errors.New("bad\nthing"))
	if f.Key != "error" || f.Type != zapcore.StringType || f.String != "bad thing" {
		t.Errorf("unexpected field: %+v", f)
	}
	if SafeError(nil) != zap.Skip() {
		t.Error("nil error should be skipped")
	}
}
