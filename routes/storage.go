package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shamsucomsoft/onv-ncne-api/storage"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

func RegisterStorageRoutes(router *gin.RouterGroup, store storage.Store) {
	// GET /storage/public-url?path=nomadic/basic-information/<id>.jpg
	router.GET("/public-url", func(c *gin.Context) {
		path := c.Query("path")
		if path == "" {
			respondError(c, utils.BadRequest("path is required"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": store.PublicURL(path)})
	})
}
