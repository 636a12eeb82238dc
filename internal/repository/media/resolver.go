// Package media turns object storage paths into public URLs.
package media

import (
	"net/url"
	"strings"
	"unicode"
)

// Resolver builds public object URLs for one storage bucket.
type Resolver struct {
	prefix string
}

// NewResolver returns a resolver for bucket under baseURL, producing
// {baseURL}/storage/v1/object/public/{bucket}/{path}.
func NewResolver(baseURL, bucket string) *Resolver {
	return &Resolver{
		prefix: strings.TrimRight(baseURL, "/") + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/",
	}
}

// PublicURL returns the URL for path, or "" when path is empty or unsafe
// (absolute, contains "..", backslashes or control characters).
func (r *Resolver) PublicURL(path string) string {
	if !isSafePath(path) {
		return ""
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return r.prefix + strings.Join(segs, "/")
}

func isSafePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return strings.IndexFunc(p, unicode.IsControl) < 0
}
