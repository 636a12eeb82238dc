package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// opsRealm is advertised in WWW-Authenticate on rejected ops requests.
const opsRealm = `Bearer realm="marketsearch-ops"`

// BearerAuthMiddleware guards operational endpoints with static bearer keys.
// Empty keys are ignored; with no usable key the middleware is a pass-through.
// The scheme name is matched case-insensitively.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var keys [][]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason := bearerToken(r.Header.Get("Authorization"))
			if reason == "" && !matchesAny(token, keys) {
				reason = "invalid api key"
			}
			if reason != "" {
				w.Header().Set("WWW-Authenticate", opsRealm)
				writeError(w, http.StatusUnauthorized, "unauthorized", reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential, or returns a rejection reason.
func bearerToken(header string) ([]byte, string) {
	if header == "" {
		return nil, "missing authorization header"
	}
	scheme, cred, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(cred) == "" {
		return nil, "authorization header must use Bearer scheme"
	}
	return []byte(strings.TrimSpace(cred)), ""
}

// matchesAny compares against every key so timing does not reveal which one matched.
func matchesAny(token []byte, keys [][]byte) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(token, k)
	}
	return found == 1
}
