package handler

import (
	"net/http"

	"fleetgate/internal/middleware"
	"fleetgate/internal/service"
	"fleetgate/pkg/apperr"
	"fleetgate/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrgHandler exposes the organizational-scope administration surface
// (departments and the teams scope checks are evaluated against)
type OrgHandler struct {
	orgService service.OrgService
	tokens     middleware.TokenVerifier
	rbac       middleware.Authorizer
}

// NewOrgHandler sets up the routing dependencies for org endpoints
func NewOrgHandler(orgService service.OrgService, tokens middleware.TokenVerifier, rbac middleware.Authorizer) *OrgHandler {
	return &OrgHandler{orgService: orgService, tokens: tokens, rbac: rbac}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *OrgHandler) RegisterRoutes(router *gin.RouterGroup) {
	org := router.Group("/org", middleware.RequireAuth(h.tokens))
	{
		org.GET("/departments", middleware.RequirePermission(h.rbac, "users", "read"), h.ListDepartments)
		org.POST("/departments", middleware.RequirePermission(h.rbac, "users", "create"), h.CreateDepartment)
		org.GET("/teams", middleware.RequirePermission(h.rbac, "users", "read"), h.ListTeams)
		org.POST("/teams", middleware.RequirePermission(h.rbac, "users", "create"), h.CreateTeam)
	}
}

func (h *OrgHandler) CreateDepartment(c *gin.Context) {
	var req service.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload"))
		return
	}

	dept, err := h.orgService.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusCreated, response.OK(dept))
}

func (h *OrgHandler) CreateTeam(c *gin.Context) {
	var req service.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload"))
		return
	}

	team, err := h.orgService.CreateTeam(c.Request.Context(), req)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}
	c.JSON(http.StatusCreated, response.OK(team))
}

func (h *OrgHandler) ListTeams(c *gin.Context) {
	teams, err := h.orgService.ListTeams(c.Request.Context())
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, "failed to fetch teams"))
		return
	}
	c.JSON(http.StatusOK, response.OK(teams))
}

func (h *OrgHandler) ListDepartments(c *gin.Context) {
	depts, err := h.orgService.ListDepartments(c.Request.Context())
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, "failed to fetch departments"))
		return
	}
	c.JSON(http.StatusOK, response.OK(depts))
}
