package handler

import (
	"net/http"

	"fleetgate/internal/middleware"
	"fleetgate/internal/service"
	"fleetgate/pkg/apperr"
	"fleetgate/pkg/response"

	"github.com/gin-gonic/gin"
)

// RoleHandler exposes the role and permission administration surface
type RoleHandler struct {
	roleService service.RoleService
	tokens      middleware.TokenVerifier
	rbac        middleware.Authorizer
}

// NewRoleHandler sets up the routing dependencies for role endpoints
func NewRoleHandler(roleService service.RoleService, tokens middleware.TokenVerifier, rbac middleware.Authorizer) *RoleHandler {
	return &RoleHandler{roleService: roleService, tokens: tokens, rbac: rbac}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/roles", middleware.RequireAuth(h.tokens))
	{
		roles.GET("", middleware.RequirePermission(h.rbac, "roles", "read"), h.ListRoles)
		roles.GET("/:id", middleware.RequirePermission(h.rbac, "roles", "read"), h.GetRole)
		roles.POST("", middleware.RequirePermission(h.rbac, "roles", "create"), h.CreateRole)
		roles.PUT("/:id", middleware.RequirePermission(h.rbac, "roles", "update"), h.UpdateRole)
		roles.PUT("/:id/permissions", middleware.RequirePermission(h.rbac, "roles", "update"), h.UpdateRolePermissions)
		roles.DELETE("/:id", middleware.RequirePermission(h.rbac, "roles", "delete"), h.DeleteRole)
	}

	router.GET("/permissions",
		middleware.RequireAuth(h.tokens),
		middleware.RequirePermission(h.rbac, "roles", "read"),
		h.ListPermissions,
	)
}

func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, "failed to fetch roles"))
		return
	}
	c.JSON(http.StatusOK, response.OK(roles))
}

func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusOK, response.OK(role))
}

func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload"))
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), req)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusCreated, response.OK(role))
}

func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload"))
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusOK, response.OK(role))
}

func (h *RoleHandler) UpdateRolePermissions(c *gin.Context) {
	var req service.UpdateRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload"))
		return
	}

	role, err := h.roleService.UpdateRolePermissions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusOK, response.OK(role))
}

func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roleService.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusOK, response.OK("role deleted"))
}

func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, "failed to fetch permissions"))
		return
	}
	c.JSON(http.StatusOK, response.OK(perms))
}
