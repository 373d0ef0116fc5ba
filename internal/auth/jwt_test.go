package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	token, err := m.GenerateAccessToken("user-1", RoleOwner)
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, RoleOwner, claims.Role)
}

func TestJWTRejectsForeignSecretAndExpiry(t *testing.T) {
	token, err := NewJWTManager("other", time.Minute).GenerateAccessToken("user-1", RolePlayer)
	require.NoError(t, err)
	_, err = NewJWTManager("secret", time.Minute).ParseAndValidate(token)
	assert.Error(t, err)

	expired, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken("user-1", RolePlayer)
	require.NoError(t, err)
	_, err = NewJWTManager("secret", time.Minute).ParseAndValidate(expired)
	assert.Error(t, err)
}

func TestJWTChecksIssuerRoleAndSkew(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: RolePlayer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	signed, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ParseAndValidate(signed)
	assert.Error(t, err, "foreign issuer")

	_, err = m.GenerateAccessToken("user-1", Role("superuser"))
	assert.Error(t, err)
	_, err = m.GenerateAccessToken("", RolePlayer)
	assert.Error(t, err)

	// A token from a replica whose clock runs slightly ahead is still accepted.
	issuer := NewJWTManager("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(10 * time.Second) }
	token, err := issuer.GenerateAccessToken("user-1", RolePlayer)
	require.NoError(t, err)
	_, err = m.ParseAndValidate(token)
	assert.NoError(t, err)
}

func TestMiddlewareSetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("secret", time.Minute)

	r := gin.New()
	r.GET("/admin", AuthRequired(m), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "admin": IsAdmin(c)})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", http.StatusUnauthorized},
		{"player forbidden", "Bearer " + mustToken(t, m, RolePlayer), http.StatusForbidden},
		{"admin allowed", "Bearer " + mustToken(t, m, RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func mustToken(t *testing.T, m *JWTManager, role Role) string {
	t.Helper()
	token, err := m.GenerateAccessToken("user-1", role)
	require.NoError(t, err)
	return token
}
