package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/services"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RegisterAuthRoutes mounts login, token and profile endpoints.
func RegisterAuthRoutes(router *gin.RouterGroup, d Dependencies, auth gin.HandlerFunc) {
	limited := middleware.AuthRateLimitMiddleware(d.Limiter)

	router.POST("/login", limited, func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := d.Auth.Login(c.Request.Context(), req.Email, req.Password, clientInfo(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, result, "Login successful")
	})

	router.POST("/refresh", limited, func(c *gin.Context) {
		var req refreshRequest
		if !bindJSON(c, &req) {
			return
		}
		pair, err := d.JWT.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondError(c, tokenError(err))
			return
		}
		respond(c, http.StatusOK, pair, "Token refreshed")
	})

	router.POST("/logout", auth, func(c *gin.Context) {
		var req refreshRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := d.JWT.RevokeRefreshToken(c.Request.Context(), req.RefreshToken); err != nil {
			respondError(c, tokenError(err))
			return
		}
		respond(c, http.StatusOK, nil, "Logged out successfully")
	})

	me := func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)
		respond(c, http.StatusOK, user, "")
	}
	router.GET("/me", auth, me)
	router.GET("/me/collector", auth, middleware.RequireRoleType(models.RoleTypeCollector), me)
	router.GET("/me/admin", auth, middleware.RequireRoleType(models.RoleTypeAdmin), me)

	router.GET("/powersync/jwks", func(c *gin.Context) {
		c.JSON(http.StatusOK, d.PowerSync.JWKS())
	})

	router.GET("/powersync/token", auth, func(c *gin.Context) {
		token, err := d.PowerSync.GenerateToken(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, token)
	})
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{
		DeviceID:  c.GetHeader("X-Device-ID"),
		UserAgent: c.GetHeader("User-Agent"),
		IPAddress: c.ClientIP(),
	}
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, services.ErrRefreshTokenNotFound):
		return utils.Unauthorized("Invalid refresh token")
	case errors.Is(err, services.ErrRefreshTokenInvalid):
		return utils.Unauthorized("Refresh token is invalid or expired")
	}
	return err
}
