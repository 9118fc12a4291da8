package router

import (
	"net/http"
	"strings"

	"github.com/sellergrid/service-core-go/internal/requestctx"
	"github.com/sellergrid/service-core-go/internal/result"
	"github.com/sellergrid/service-core-go/internal/token"
)

// RequireSession validates the bearer token as a session token and injects
// the subject identity id into the request context. Expired and invalid
// tokens are both rejected with 401; the body distinguishes them so clients
// can re-authenticate on expiry.
func RequireSession(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			validated := tokens.Validate(raw, token.PurposeSession)
			if !validated.OK() {
				if validated.Kind() == result.KindTokenExpired {
					http.Error(w, "token expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := requestctx.WithSubject(r.Context(), validated.Value())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
