package middleware

import (
	"errors"
	"net/http"
	"strings"

	"garmentflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Permission codes carried in the token's permissions claim
const (
	PermProductionRead  = "production.read"
	PermProductionWrite = "production.write"
	PermWagesRead       = "wages.read"
	PermAuditRead       = "audit.read"
)

// RoleAdmin passes every permission check
const RoleAdmin = "admin"

// Context keys set by RequirePermission
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// Claims is the token payload issued by the external auth service
type Claims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

func (c *Claims) has(perm string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ParseToken verifies an HMAC-signed token and returns its claims
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// RequirePermission validates the JWT and checks the permissions claim holds every required code.
// Role "admin" always passes.
func RequirePermission(secret []byte, requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		claims, err := ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		for _, required := range requiredPerms {
			if !claims.has(required) {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// ActorID returns the authenticated subject, or "" outside RequirePermission
func ActorID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Guard builds permission middleware bound to one signing secret
type Guard func(requiredPerms ...string) gin.HandlerFunc

func NewGuard(secret []byte) Guard {
	return func(requiredPerms ...string) gin.HandlerFunc {
		return RequirePermission(secret, requiredPerms...)
	}
}
