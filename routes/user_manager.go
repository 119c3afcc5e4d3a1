package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shamsucomsoft/onv-ncne-api/middleware"
	"github.com/shamsucomsoft/onv-ncne-api/models"
	"github.com/shamsucomsoft/onv-ncne-api/services"
	"github.com/shamsucomsoft/onv-ncne-api/utils"
)

// idParam returns the :id path parameter when it is a valid UUID and
// answers 400 otherwise.
func idParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, utils.BadRequest("Validation failed (uuid is expected)"))
		return "", false
	}
	return id, true
}

func pagination(c *gin.Context) utils.Pagination {
	return utils.ParsePagination(c.Query("page"), c.Query("limit"))
}

// RegisterUserManagerRoutes mounts user, invitation and role management.
// Accepting an invitation is the only public endpoint.
func RegisterUserManagerRoutes(router *gin.RouterGroup, svc *services.UserManagerService, auth gin.HandlerFunc) {
	router.POST("/users/accept-invitation", func(c *gin.Context) {
		var in services.AcceptInvitationInput
		if !bindJSON(c, &in) {
			return
		}
		user, err := svc.AcceptInvitation(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		respond(c, http.StatusOK, user, "Invitation accepted successfully")
	})

	protected := router.Group("", auth)
	perm := middleware.RequirePermission

	users := protected.Group("/users")
	{
		users.POST("", perm(models.PermUsersCreate), func(c *gin.Context) {
			var in services.CreateUserInput
			if !bindJSON(c, &in) {
				return
			}
			user, err := svc.CreateUser(c.Request.Context(), in)
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusCreated, user, "User created successfully")
		})

		users.GET("", perm(models.PermUsersRead), func(c *gin.Context) {
			page, err := svc.ListUsers(c.Request.Context(), pagination(c))
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, page, "Users fetched successfully")
		})

		users.GET("/:id", perm(models.PermUsersRead), func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			user, err := svc.GetUser(c.Request.Context(), id)
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, user, "User fetched successfully")
		})

		users.PATCH("/:id", perm(models.PermUsersUpdate), func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			var in services.UpdateUserInput
			if !bindJSON(c, &in) {
				return
			}
			user, err := svc.UpdateUser(c.Request.Context(), id, in)
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, user, "User updated successfully")
		})

		users.DELETE("/:id", perm(models.PermUsersDelete), func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			if err := svc.DeleteUser(c.Request.Context(), id); err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, nil, "User deleted successfully")
		})

		users.POST("/invite", perm(models.PermUsersInvite), func(c *gin.Context) {
			var in services.InviteUserInput
			if !bindJSON(c, &in) {
				return
			}
			user, err := svc.InviteUser(c.Request.Context(), in, currentUserID(c))
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusCreated, user, "User invited successfully")
		})

		users.DELETE("/:id/revoke-invitation", perm(models.PermUsersInvite), func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			if err := svc.RevokeInvitation(c.Request.Context(), id); err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, nil, "Invitation revoked successfully")
		})
	}

	roles := protected.Group("/roles")
	{
		roles.POST("", perm(models.PermRolesCreate), func(c *gin.Context) {
			var in services.RoleInput
			if !bindJSON(c, &in) {
				return
			}
			role, err := svc.CreateRole(c.Request.Context(), in, currentUserID(c))
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusCreated, role, "Role created successfully")
		})

		roles.GET("", perm(models.PermRolesRead), func(c *gin.Context) {
			page, err := svc.ListRoles(c.Request.Context(), pagination(c))
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, page, "Roles fetched successfully")
		})

		roles.GET("/:id", perm(models.PermRolesRead), func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			role, err := svc.GetRole(c.Request.Context(), id)
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, role, "Role fetched successfully")
		})

		roles.PATCH("/:id", perm(models.PermRolesUpdate), func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			var in services.RoleInput
			if !bindJSON(c, &in) {
				return
			}
			role, err := svc.UpdateRole(c.Request.Context(), id, in)
			if err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, role, "Role updated successfully")
		})

		roles.DELETE("/:id", perm(models.PermRolesDelete), func(c *gin.Context) {
			id, ok := idParam(c)
			if !ok {
				return
			}
			if err := svc.DeleteRole(c.Request.Context(), id); err != nil {
				respondError(c, err)
				return
			}
			respond(c, http.StatusOK, nil, "Role deleted successfully")
		})
	}
}
