package session

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "cortex/pkg/domain"
)

var testSigningKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims, key []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func identityCapture(captured *Identity, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		*captured = ident
		*found = ok
		w.WriteHeader(http.StatusOK)
	})
}

func serve(t *testing.T, authorization string) (Identity, bool) {
	t.Helper()
	var captured Identity
	var found bool

	mw := Middleware(testSigningKey, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := mw(identityCapture(&captured, &found))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return captured, found
}

func TestMiddlewareValidToken(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	token := signToken(t, &Claims{
		ActiveTenant: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSigningKey)

	ident, found := serve(t, "Bearer "+token)
	require.True(t, found)
	assert.Equal(t, id.UserID(userID), ident.UserID)
	assert.Equal(t, id.TenantID(tenantID), ident.ActiveTenant)
}

func TestMiddlewareTokenWithoutTenant(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSigningKey)

	ident, found := serve(t, "Bearer "+token)
	require.True(t, found)
	assert.Equal(t, id.UserID(userID), ident.UserID)
	assert.True(t, ident.ActiveTenant.IsNil())
}

func TestMiddlewareNoToken(t *testing.T) {
	_, found := serve(t, "")
	assert.False(t, found)
}

func TestMiddlewareWrongKey(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, []byte("other-key"))

	_, found := serve(t, "Bearer "+token)
	assert.False(t, found)
}

func TestMiddlewareExpiredToken(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, testSigningKey)

	_, found := serve(t, "Bearer "+token)
	assert.False(t, found)
}

func TestMiddlewareMalformedSubject(t *testing.T) {
	token := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSigningKey)

	_, found := serve(t, "Bearer "+token)
	assert.False(t, found)
}
