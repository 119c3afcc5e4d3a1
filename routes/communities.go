package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/services"
)

func RegisterCommunityRoutes(router *gin.RouterGroup, svc *services.CommunityService, auth gin.HandlerFunc) {
	router.GET("/data", func(c *gin.Context) {
		data, err := svc.Data(c.Request.Context())
		readResult(c, data, err, "communities data")
	})

	router.GET("", auth, middleware.RequirePermission(models.PermCollectionsRead), func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, list, "Communities retrieved successfully")
	})

	router.POST("", auth, middleware.RequirePermission(models.PermCollectionsCreate), func(c *gin.Context) {
		var in services.CreateCommunityInput
		if !bindJSON(c, &in) {
			return
		}
		community, err := svc.Create(c.Request.Context(), in, currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, community, "Community created successfully")
	})
}
