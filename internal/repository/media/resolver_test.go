package media

import "testing"

func TestPublicURL(t *testing.T) {
	r := NewResolver("https://proj.example.co/", "listing-photos")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"simple", "abc/1.jpg", "https://proj.example.co/storage/v1/object/public/listing-photos/abc/1.jpg"},
		{"escaped", "abc/my photo#1.jpg", "https://proj.example.co/storage/v1/object/public/listing-photos/abc/my%20photo%231.jpg"},
		{"empty", "", ""},
		{"absolute", "/etc/passwd", ""},
		{"traversal", "../etc/passwd", ""},
		{"inner traversal", "a/../../b.jpg", ""},
		{"dot segment", "a/./b.jpg", ""},
		{"double slash", "a//b.jpg", ""},
		{"backslash", `a\b.jpg`, ""},
		{"control", "a/b\n.jpg", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.PublicURL(tc.path); got != tc.want {
				t.Errorf("PublicURL(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestPublicURL_BucketsAreSeparate(t *testing.T) {
	listings := NewResolver("https://cdn.example.com", "listing-photos")
	avatars := NewResolver("https://cdn.example.com", "avatars")

	if listings.PublicURL("x.png") == avatars.PublicURL("x.png") {
		t.Error("buckets should produce different URLs")
	}
	if got := avatars.PublicURL("u/1.png"); got != "https://cdn.example.com/storage/v1/object/public/avatars/u/1.png" {
		t.Errorf("got %q", got)
	}
}
