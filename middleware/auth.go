package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/models"
)

const (
	ContextUser   = "user"
	ContextUserID = "user_id"
)

// TokenValidator resolves an access token to a user id.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

// UserLoader loads a user with its role.
type UserLoader interface {
	LoadUser(ctx context.Context, id string) (*models.User, error)
}

func unauthorized(c *gin.Context, errMsg, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   errMsg,
		"message": message,
	})
}

// AuthMiddleware validates Bearer tokens and sets the user in the context.
func AuthMiddleware(tokens TokenValidator, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required", "Please provide a valid token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			unauthorized(c, "Invalid token format", "Token must be in format: Bearer <token>")
			return
		}

		authenticate(c, tokens, users, tokenString)
	}
}

// WebSocketAuthMiddleware reads the token from the query string, since
// browsers cannot set headers on websocket upgrades.
func WebSocketAuthMiddleware(tokens TokenValidator, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			unauthorized(c, "Token required", "Please provide a valid token in query parameters")
			return
		}
		authenticate(c, tokens, users, tokenString)
	}
}

func authenticate(c *gin.Context, tokens TokenValidator, users UserLoader, tokenString string) {
	userID, err := tokens.ValidateAccessToken(tokenString)
	if err != nil {
		logger.L().Debug("🔍 Token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
		unauthorized(c, "Invalid token", "Token is invalid or expired")
		return
	}

	user, err := users.LoadUser(c.Request.Context(), userID)
	if err != nil {
		unauthorized(c, "User not found", "User associated with token not found")
		return
	}
	if user.Status == models.UserStatusSuspended {
		unauthorized(c, "User inactive", "User account is suspended")
		return
	}

	c.Set(ContextUser, user)
	c.Set(ContextUserID, user.ID)
	c.Next()
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   "Forbidden",
		"message": message,
	})
}

// RequireRoleType allows users whose role has one of the given types.
func RequireRoleType(roleTypes ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "Unauthorized", "Authentication required")
			return
		}
		for _, t := range roleTypes {
			if user.RoleType() == t {
				c.Next()
				return
			}
		}
		forbidden(c, "Insufficient role")
	}
}

// RequirePermission allows users holding any of the given permissions.
func RequirePermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthorized(c, "Unauthorized", "Authentication required")
			return
		}
		if user.Role == nil || !user.Role.HasAnyPermission(perms...) {
			forbidden(c, "Insufficient permissions")
			return
		}
		c.Next()
	}
}
