package session

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "cortex/pkg/domain"
)

// Claims are the JWT claims the middleware expects from the authentication
// collaborator: the subject user and an optional active-tenant indicator.
type Claims struct {
	ActiveTenant string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// Middleware validates a bearer token and stamps the verified identity onto
// the request context. Requests without a token pass through
// unauthenticated; downstream authorization decides what that means.
func Middleware(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := &Claims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				return signingKey, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !parsed.Valid {
				if logger != nil {
					logger.WarnContext(r.Context(), "rejected bearer token", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			userID, err := id.ParseUserID(claims.Subject)
			if err != nil || userID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			ident := Identity{UserID: userID}
			if claims.ActiveTenant != "" {
				if tenantID, err := id.ParseTenantID(claims.ActiveTenant); err == nil {
					ident.ActiveTenant = tenantID
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return auth[7:]
	}
	return ""
}
