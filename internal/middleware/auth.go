package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"inventnet/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"
	// InternalCallKey is set to true when the request authenticated with the
	// internal service key instead of a user token.
	InternalCallKey   = "internal_call"
	InternalKeyHeader = "X-Internal-Key"
)

// Roles with access to the lifecycle endpoints.
const (
	RolAdministrador = "administrador"
	RolSupervisor    = "supervisor"
	RolOperador      = "operador"
)

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Rol      string `json:"rol"`
	jwt.RegisteredClaims
}

func parseBearer(c *gin.Context, secret string) (*JWTClaims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}
		claims, ok := parseBearer(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
// Internal calls pass: the service key is not bound to a role.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if IsInternalCall(c) {
			c.Next()
			return
		}
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// InternalKeyOrJWT accepts either the X-Internal-Key header (scheduler, CLI)
// or a valid user token. An empty internalKey disables the header path.
func InternalKeyOrJWT(internalKey, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(InternalKeyHeader); key != "" {
			if internalKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(internalKey)) != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Clave interna invalida"))
				return
			}
			c.Set(InternalCallKey, true)
			c.Next()
			return
		}
		claims, ok := parseBearer(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
// Returns nil for internal calls and unauthenticated routes.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

func IsInternalCall(c *gin.Context) bool {
	return c.GetBool(InternalCallKey)
}
