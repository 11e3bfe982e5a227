package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/domain"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticKeyValidator accepts a single configured API key.
type StaticKeyValidator struct {
	key []byte
	id  string
}

// NewStaticKeyValidator returns a validator for key. The client id it reports is a short
// fingerprint of the key, safe to log.
func NewStaticKeyValidator(key string) *StaticKeyValidator {
	sum := sha256.Sum256([]byte(key))
	return &StaticKeyValidator{key: []byte(key), id: "key_" + hex.EncodeToString(sum[:4])}
}

func (v *StaticKeyValidator) ValidateAPIKey(_ context.Context, token string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(token), v.key) != 1 {
		return "", domain.ErrInvalidAPIKey
	}
	return v.id, nil
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			clientID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClientID(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDKey).(string)
	return clientID
}
