package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/shared/go-utils"
)

type contextKey string

const ContextKeyUserID = contextKey("userID")

var errMissingBearer = errors.New("missing Authorization header")

// AuthMiddleware for protected endpoints. A missing or invalid bearer token
// is answered with 401.
func AuthMiddleware(pub *rsa.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractBearerToken(r)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, err.Error(), nil,
				)
				return
			}
			authenticate(w, r, next, pub, tokenStr)
		})
	}
}

// UserIDFromContext returns the authenticated account id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(ContextKeyUserID).(string)
	return sub, ok && sub != ""
}

func authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, pub *rsa.PublicKey, tokenStr string) {
	sub, vErr := ValidateToken(tokenStr, pub)
	if vErr != nil {
		if errors.Is(vErr, jwt.ErrTokenExpired) {
			utils.RespondErrorWithCode(
				w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token expired", nil, vErr,
			)
			return
		}
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token", nil, vErr,
		)
		return
	}

	ctx := context.WithValue(r.Context(), ContextKeyUserID, sub)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func extractBearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", errMissingBearer
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if tok == "" {
		return "", errMissingBearer
	}
	return tok, nil
}
