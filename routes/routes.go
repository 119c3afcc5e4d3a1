package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/services"
	"github.com/shamsucomsoft/onv-ncne-api/storage"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
	"github.com/shamsucomsoft/onv-ncne-api/websocket"
)

// Dependencies are the services the HTTP layer dispatches to.
type Dependencies struct {
	Auth        *services.AuthService
	JWT         *services.JWTService
	PowerSync   *services.PowerSyncService
	Users       *services.UserManagerService
	Surveys     *services.SurveyService
	Communities *services.CommunityService
	Dashboard   *services.DashboardService
	Public      *services.PublicService
	Sync        *services.SyncService
	Store       storage.Store
	Hub         *websocket.Hub
	Limiter     *middleware.RateLimiter
}

// RegisterRoutes mounts every endpoint on router.
func RegisterRoutes(router *gin.Engine, d Dependencies) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": d.Store.Location()})
	})

	auth := middleware.AuthMiddleware(d.JWT, d.Auth)

	RegisterAuthRoutes(router.Group("/auth"), d, auth)
	RegisterUserManagerRoutes(router.Group("/user-manager"), d.Users, auth)
	RegisterSkillsSurveyRoutes(router.Group("/skills-survey", auth), d.Surveys)
	RegisterCommunityRoutes(router.Group("/communities"), d.Communities, auth)
	RegisterDashboardRoutes(router.Group("/dashboard", auth, middleware.RequirePermission(models.PermDashboardRead)), d.Dashboard)
	RegisterPublicRoutes(router.Group("/public/nomadic"), d.Public)
	RegisterSyncRoutes(router.Group("/sync", auth), d.Sync)
	RegisterStorageRoutes(router.Group("/storage"), d.Store)

	router.GET("/ws/sync",
		middleware.WebSocketAuthMiddleware(d.JWT, d.Auth),
		middleware.RequireRoleType(models.RoleTypeAdmin),
		func(c *gin.Context) {
			d.Hub.Serve(c.Writer, c.Request, c.GetString(middleware.ContextUserID))
		})
}

// respond writes the standard success envelope.
func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// respondError maps a service error to its HTTP status. Unexpected errors
// are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	status := utils.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("❌ Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{
		"success": false,
		"status":  status,
		"error":   http.StatusText(status),
		"message": utils.MessageOf(err),
	})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"status":  http.StatusBadRequest,
			"error":   "Invalid request",
			"message": err.Error(),
		})
		return false
	}
	return true
}

// readResult answers analytics reads. Failures keep a 200 status and carry
// the error in the body.
func readResult(c *gin.Context, data interface{}, err error, what string) {
	if err != nil {
		logger.L().Error("❌ Failed to retrieve "+what, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Failed to retrieve " + what,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": capitalize(what) + " retrieved successfully",
		"data":    data,
	})
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-32) + s[1:]
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}
