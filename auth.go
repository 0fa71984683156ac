package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenVerifier checks the HMAC-signed bearer tokens the frontend gateway
// attaches to wizard requests.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, including expiry.
func (v *TokenVerifier) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("token is not valid")
	}
	return nil
}

// CreateApiToken mints a short-lived HS256 token for the given subject. Used
// by deploy tooling and tests; the server itself only verifies.
func CreateApiToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// authMiddleware rejects requests without a valid bearer token. A nil
// verifier disables authentication, which is the local-development default.
func authMiddleware(verifier *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				slog.Debug("Request without bearer token rejected", "path", r.URL.Path)
				respondWithErr(w, http.StatusUnauthorized, "missing bearer token", "missing bearer token", nil)
				return
			}
			if err := verifier.Verify(tokenString); err != nil {
				slog.Debug("Request with invalid bearer token rejected", "path", r.URL.Path, "error", err)
				respondWithErr(w, http.StatusUnauthorized, "invalid bearer token", "invalid bearer token", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
