package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carrental/internal/config"
	"carrental/internal/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() config.APIAuthConfig {
	return config.APIAuthConfig{
		JWTSecret:    "test-secret",
		TokenTTL:     "1h",
		Issuer:       "carrental-test",
		HeaderAPIKey: "x-api-key",
		HeaderExtra:  "x-api-extra",
		APIKeys: []config.APIClientKey{
			{Key: "ops-key", Extra: "ops-extra", Name: "ops", UserID: 1, Role: models.RoleAdmin},
			{Key: "ro-key", Name: "reader", UserID: 2, Role: models.RoleUser, Permissions: []string{permReadBookings}},
		},
	}
}

func TestTokenManager(t *testing.T) {
	m := NewTokenManager(testAuthConfig())
	user := &models.User{ID: 7, Username: "alice", Role: models.RoleAdmin}

	t.Run("RoundTrip", func(t *testing.T) {
		token, expiresAt, err := m.Issue(user)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

		claims, err := m.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, models.RoleAdmin, claims.Role)
		assert.Equal(t, "7", claims.Subject)
	})

	t.Run("Expired", func(t *testing.T) {
		old := NewTokenManager(testAuthConfig())
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := old.Issue(user)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.JWTSecret = "other"
		token, _, err := NewTokenManager(cfg).Issue(user)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.Issuer = "someone-else"
		token, _, err := NewTokenManager(cfg).Issue(user)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})

	t.Run("UnsignedToken", func(t *testing.T) {
		claims := Claims{UserID: 7, Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: "carrental-test"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, errInvalidToken)
	})
}

func TestHTTPAuth_Identify(t *testing.T) {
	cfg := testAuthConfig()
	tokens := NewTokenManager(cfg)
	auth := NewHTTPAuth(cfg, tokens)

	var got *Principal
	handler := auth.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(setup func(r *http.Request)) int {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/api/bookings/me", http.NoBody)
		setup(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("Anonymous", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(func(*http.Request) {}))
		assert.Nil(t, got)
	})

	t.Run("Bearer", func(t *testing.T) {
		token, _, err := tokens.Issue(&models.User{ID: 3, Username: "bob", Role: models.RoleUser})
		require.NoError(t, err)
		code := serve(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) })
		assert.Equal(t, http.StatusOK, code)
		require.NotNil(t, got)
		assert.Equal(t, int64(3), got.UserID)
		assert.False(t, got.IsAdmin())
	})

	t.Run("BadBearer", func(t *testing.T) {
		code := serve(func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") })
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("BasicScheme", func(t *testing.T) {
		code := serve(func(r *http.Request) { r.Header.Set("Authorization", "Basic Zm9vOmJhcg==") })
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("APIKey", func(t *testing.T) {
		code := serve(func(r *http.Request) {
			r.Header.Set("x-api-key", "ops-key")
			r.Header.Set("x-api-extra", "ops-extra")
		})
		assert.Equal(t, http.StatusOK, code)
		require.NotNil(t, got)
		assert.True(t, got.IsAdmin())
		assert.Equal(t, int64(1), got.UserID)
	})

	t.Run("APIKeyWrongExtra", func(t *testing.T) {
		code := serve(func(r *http.Request) {
			r.Header.Set("x-api-key", "ops-key")
			r.Header.Set("x-api-extra", "nope")
		})
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("UnknownAPIKey", func(t *testing.T) {
		code := serve(func(r *http.Request) { r.Header.Set("x-api-key", "wrong") })
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}

func TestRequiredPermissionHTTP(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/bookings/me", permReadBookings},
		{http.MethodGet, "/api/bookings/12", permReadBookings},
		{http.MethodPost, "/api/bookings", permWriteBookings},
		{http.MethodDelete, "/api/bookings/12", permWriteBookings},
		{http.MethodGet, "/api/bookings/all", permAdmin},
		{http.MethodPost, "/api/admin/cars", permAdmin},
		{http.MethodGet, "/api/cars", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
		assert.Equal(t, tt.want, requiredPermissionHTTP(req), "%s %s", tt.method, tt.path)
	}
}

func TestCheckPermissions(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", http.NoBody)

	assert.NoError(t, checkPermissions(&Principal{UserID: 1}, req))
	assert.ErrorIs(t, checkPermissions(&Principal{UserID: 1, Permissions: []string{permReadBookings}}, req), errPermissionDenied)
	assert.NoError(t, checkPermissions(&Principal{UserID: 1, Permissions: []string{permWriteBookings}}, req))
}
