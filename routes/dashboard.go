package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shamsucomsoft/onv-ncne-api/services"
)

// RegisterDashboardRoutes mounts the filtered analytics reads. Every
// endpoint accepts state, zone, dateFrom and dateTo.
func RegisterDashboardRoutes(router *gin.RouterGroup, svc *services.DashboardService) {
	filtered := func(what string, read func(*gin.Context, services.DashboardFilter) (interface{}, error)) gin.HandlerFunc {
		return func(c *gin.Context) {
			f, err := services.ParseDashboardFilter(c.Query("state"), c.Query("zone"), c.Query("dateFrom"), c.Query("dateTo"))
			if err != nil {
				respondError(c, err)
				return
			}
			data, err := read(c, f)
			readResult(c, data, err, what)
		}
	}

	router.GET("/stats", filtered("dashboard statistics", func(c *gin.Context, f services.DashboardFilter) (interface{}, error) {
		return svc.Stats(c.Request.Context(), f)
	}))
	router.GET("/insights", filtered("dashboard insights", func(c *gin.Context, f services.DashboardFilter) (interface{}, error) {
		return svc.Insights(c.Request.Context(), f)
	}))
	router.GET("/states", filtered("states list", func(c *gin.Context, f services.DashboardFilter) (interface{}, error) {
		return svc.States(c.Request.Context(), f)
	}))
	router.GET("/lite", filtered("dashboard summary", func(c *gin.Context, f services.DashboardFilter) (interface{}, error) {
		return svc.Lite(c.Request.Context(), f)
	}))
}
