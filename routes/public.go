package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/services"
)

// RegisterPublicRoutes mounts unauthenticated headline figures.
func RegisterPublicRoutes(router *gin.RouterGroup, svc *services.PublicService) {
	handle := func(read func(*gin.Context) (interface{}, error)) gin.HandlerFunc {
		return func(c *gin.Context) {
			data, err := read(c)
			if err != nil {
				logger.L().Error("❌ Public read failed", zap.String("path", c.FullPath()), zap.Error(err))
				c.JSON(http.StatusOK, gin.H{"success": false, "message": "Failed to retrieve data", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
		}
	}

	router.GET("/summary", handle(func(c *gin.Context) (interface{}, error) { return svc.Summary(c.Request.Context()) }))
	router.GET("/demographics", handle(func(c *gin.Context) (interface{}, error) { return svc.Demographics(c.Request.Context()) }))
	router.GET("/skills", handle(func(c *gin.Context) (interface{}, error) { return svc.Skills(c.Request.Context()) }))
	router.GET("/barriers", handle(func(c *gin.Context) (interface{}, error) { return svc.Barriers(c.Request.Context()) }))
}
