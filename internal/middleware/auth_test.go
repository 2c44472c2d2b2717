package middleware

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

var secret = []byte("s3cret")

func sign(t *testing.T, key []byte, claims Claims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestParseToken(t *testing.T) {
	claims, err := ParseToken(sign(t, secret, Claims{Role: "supervisor", Permissions: []string{PermWagesRead}}), secret)
	require.NoError(t, err)
	assert.Equal(t, "supervisor", claims.Role)
	assert.True(t, claims.has(PermWagesRead))
	assert.False(t, claims.has(PermAuditRead))

	_, err = ParseToken(sign(t, []byte("other"), Claims{}), secret)
	assert.Error(t, err)

	expired := Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}
	_, err = ParseToken(sign(t, secret, expired), secret)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(none, secret)
	assert.Error(t, err)
}

func TestRequirePermissionSetsActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", NewGuard(secret)(PermProductionRead, PermWagesRead), func(c *gin.Context) {
		c.String(http.StatusOK, ActorID(c))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	both := sign(t, secret, Claims{
		Permissions:      []string{PermProductionRead, PermWagesRead},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	})
	w := call("Bearer " + both)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	one := sign(t, secret, Claims{Permissions: []string{PermProductionRead}})
	assert.Equal(t, http.StatusForbidden, call("Bearer "+one).Code, "every listed permission is required")

	admin := sign(t, secret, Claims{Role: RoleAdmin})
	assert.Equal(t, http.StatusOK, call("Bearer "+admin).Code)

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token "+both).Code)
}
