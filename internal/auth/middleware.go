package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

func AuthMiddleware(issuer, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is empty"})
			c.Abort()
			return
		}

		claims, err := ValidateToken(tokenString, issuer, secret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or malformed token"})
			}
			c.Abort()
			return
		}

		c.Set(identityKey, Identity{UserID: claims.UserID, GymID: claims.GymID, Scopes: claims.Scopes})

		c.Next()
	}
}

// RequireGym rejects requests whose :gymID differs from the token's gym.
// The mismatch is a 404 so other tenants' ids cannot be probed.
func RequireGym() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Identity not found"})
			c.Abort()
			return
		}

		gymID, err := strconv.Atoi(c.Param("gymID"))
		if err != nil || gymID != id.GymID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Gym not found", "code": "GYM_NOT_FOUND"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Identity not found"})
			c.Abort()
			return
		}

		claims := JWTClaims{Scopes: id.Scopes}
		if !claims.HasScope(scope) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}

	id, ok := v.(Identity)
	return id, ok
}

func GetUserID(c *gin.Context) (int, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		return 0, false
	}
	return id.UserID, true
}
