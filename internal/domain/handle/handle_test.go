package handle

import (
	"strings"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"anna", true},
		{"anna_b.shop", true},
		{"Studio-42", true},
		{"", false},
		{"../etc/passwd", false},
		{"..", false},
		{".hidden", false},
		{"a..b", false},
		{"a/b", false},
		{`a\b`, false},
		{"anna\x00", false},
		{"an na", false},
		{"anna%2F", false},
		{"ánna", false},
		{strings.Repeat("a", MaxLength), true},
		{strings.Repeat("a", MaxLength+1), false},
	}
	for _, tt := range tests {
		if got := IsValid(tt.in); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
