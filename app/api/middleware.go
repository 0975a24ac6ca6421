package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsroom/app/auth"
	"github.com/lysyi3m/newsroom/app/database"
)

const claimsKey = "claims"

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// cronAuthMiddleware guards the cron endpoints with a shared secret.
func cronAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := bearerToken(c)

		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Cron secret required",
				"details": "Provide the secret in Authorization: Bearer <secret>",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid cron secret",
			})
			return
		}

		c.Next()
	}
}

// requireAuth accepts a valid token for an account that still exists. The
// role comes from the stored user, so a role change applies to tokens
// issued before it.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := h.issuer.Parse(bearerToken(c))
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, auth.ErrMissingToken) {
				message = "Authentication required"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		user, err := h.store.GetUser(c.Request.Context(), claims.Subject)
		if errors.Is(err, database.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			return
		}
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		claims.Role = user.Role

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func requireRole(roles ...database.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || !slices.Contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*auth.Claims)
	return claims
}
