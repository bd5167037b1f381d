package middleware

import (
	"crypto/rsa"
	"net/http"
)

// OptionalAuthMiddleware is identical to AuthMiddleware
// except that it lets the request through if *no* token is present.
// A token that is present must still be valid.
func OptionalAuthMiddleware(pub *rsa.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractBearerToken(r)
			if err != nil || pub == nil {
				next.ServeHTTP(w, r) // unauthenticated – allowed
				return
			}
			authenticate(w, r, next, pub, tokenStr)
		})
	}
}
