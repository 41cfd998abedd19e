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

// AuditHandler exposes the security event log
type AuditHandler struct {
	auditService service.AuditService
	tokens       middleware.TokenVerifier
	rbac         middleware.Authorizer
}

// NewAuditHandler sets up the routing dependencies for audit endpoints
func NewAuditHandler(auditService service.AuditService, tokens middleware.TokenVerifier, rbac middleware.Authorizer) *AuditHandler {
	return &AuditHandler{auditService: auditService, tokens: tokens, rbac: rbac}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit/security-events",
		middleware.RequireAuth(h.tokens),
		middleware.RequirePermission(h.rbac, "audit", "read"),
		h.ListSecurityEvents,
	)
}

// ListSecurityEvents handles GET /audit/security-events
func (h *AuditHandler) ListSecurityEvents(c *gin.Context) {
	p := pagination.Parse(c)

	events, total, err := h.auditService.ListSecurityEvents(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, "failed to fetch security events"))
		return
	}

	c.JSON(http.StatusOK, response.OK(pagination.Paged(events, total, p)))
}
