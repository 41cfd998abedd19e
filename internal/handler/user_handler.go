package handler

import (
	"net/http"

	"fleetgate/internal/middleware"
	"fleetgate/internal/service"
	"fleetgate/pkg/apperr"
	"fleetgate/pkg/pagination"
	"fleetgate/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler exposes the administration surface for authentication
// subjects (the gateway's own users)
type UserHandler struct {
	userService service.UserService
	tokens      middleware.TokenVerifier
	rbac        middleware.Authorizer
}

// NewUserHandler sets up the routing dependencies for user endpoints
func NewUserHandler(userService service.UserService, tokens middleware.TokenVerifier, rbac middleware.Authorizer) *UserHandler {
	return &UserHandler{userService: userService, tokens: tokens, rbac: rbac}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users", middleware.RequireAuth(h.tokens))
	{
		users.GET("", middleware.RequirePermission(h.rbac, "users", "read"), h.ListUsers)
		users.GET("/:id", middleware.RequirePermission(h.rbac, "users", "read"), h.GetUserByID)
		users.POST("", middleware.RequirePermission(h.rbac, "users", "create"), h.CreateUser)
		users.PUT("/:id", middleware.RequirePermission(h.rbac, "users", "update"), h.UpdateUser)
		users.DELETE("/:id", middleware.RequirePermission(h.rbac, "users", "delete"), h.DeleteUser)
	}
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}

	c.JSON(http.StatusCreated, response.OK(user))
}

// ListUsers handles GET /users with pagination controls
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, "failed to fetch users"))
		return
	}

	c.JSON(http.StatusOK, response.OK(pagination.Paged(users, total, p)))
}

// GetUserByID handles GET /users/:id
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}

	c.JSON(http.StatusOK, response.OK(user))
}

// UpdateUser handles PUT /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload"))
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}

	c.JSON(http.StatusOK, response.OK(user))
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}

	c.JSON(http.StatusOK, response.OK("user deleted"))
}
