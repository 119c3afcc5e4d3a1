package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/services"
)

// RegisterSkillsSurveyRoutes mounts survey CRUD. Survey ids may come from
// offline clients, so they are not required to be UUIDs.
func RegisterSkillsSurveyRoutes(router *gin.RouterGroup, svc *services.SurveyService) {
	perm := middleware.RequirePermission

	router.POST("", perm(models.PermCollectionsCreate), func(c *gin.Context) {
		var in services.SurveyInput
		if !bindJSON(c, &in) {
			return
		}
		survey, err := svc.Create(c.Request.Context(), in, currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusCreated, survey, "Survey created successfully")
	})

	router.GET("", perm(models.PermCollectionsRead), func(c *gin.Context) {
		filter := services.SurveyFilter{
			State:          c.Query("state"),
			LGA:            c.Query("lga"),
			TypeOfNomadism: c.Query("typeOfNomadism"),
			Sex:            c.Query("sex"),
		}
		page, err := svc.List(c.Request.Context(), filter, pagination(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, page, "Surveys retrieved successfully")
	})

	router.GET("/stats", perm(models.PermCollectionsRead), func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, stats, "Survey statistics retrieved successfully")
	})

	router.GET("/:id", perm(models.PermCollectionsRead), func(c *gin.Context) {
		survey, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, survey, "Survey retrieved successfully")
	})

	router.PATCH("/:id", perm(models.PermCollectionsUpdate), func(c *gin.Context) {
		var in services.SurveyInput
		if !bindJSON(c, &in) {
			return
		}
		survey, err := svc.Update(c.Request.Context(), c.Param("id"), in, currentUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, survey, "Survey updated successfully")
	})

	router.DELETE("/:id", perm(models.PermCollectionsDelete), func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, nil, "Survey deleted successfully")
	})
}
