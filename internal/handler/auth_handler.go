package handler

import (
	"net/http"
	"time"

	"fleetgate/internal/middleware"
	"fleetgate/internal/model"
	"fleetgate/internal/service"
	"fleetgate/pkg/apperr"
	"fleetgate/pkg/response"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthHandler exposes login, refresh and logout endpoints
type AuthHandler struct {
	tokens        service.TokenService
	rbac          service.RBACService
	accessMaxAge  int
	refreshMaxAge int
}

// NewAuthHandler sets up the routing dependencies for auth endpoints
func NewAuthHandler(tokens service.TokenService, rbac service.RBACService, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		tokens:        tokens,
		rbac:          rbac,
		accessMaxAge:  int(accessTTL.Seconds()),
		refreshMaxAge: int(refreshTTL.Seconds()),
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.POST("/logout-all", middleware.RequireAuth(h.tokens), h.LogoutAll)
		auth.GET("/me", middleware.RequireAuth(h.tokens), h.Me)
	}
}

// Login authenticates by email and password and returns a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "invalid request payload"))
		return
	}

	pair, err := h.tokens.Issue(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}

	middleware.SetTokenCookies(c, pair, h.accessMaxAge, h.refreshMaxAge)
	c.JSON(http.StatusOK, response.OK(pair))
}

// Refresh rotates a refresh token into a fresh token pair. The token is
// read from the refresh_token cookie first, body fallback.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, cookieErr := c.Cookie("refresh_token")
	if cookieErr != nil || refreshToken == "" {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			c.JSON(http.StatusBadRequest, response.Fail(apperr.ErrValidation.Code, "refresh token is required"))
			return
		}
		refreshToken = req.RefreshToken
	}

	pair, err := h.tokens.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		appErr := apperr.From(err)
		middleware.ClearTokenCookies(c)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}

	middleware.SetTokenCookies(c, pair, h.accessMaxAge, h.refreshMaxAge)
	c.JSON(http.StatusOK, response.OK(pair))
}

// Logout clears auth cookies for this client only
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.OK("logged out"))
}

// LogoutAll revokes every refresh session of the authenticated subject
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, response.Fail(apperr.ErrInvalidToken.Code, "authentication required"))
		return
	}

	if err := h.tokens.RevokeAll(c.Request.Context(), subject.ID, model.RevokeReasonLogout); err != nil {
		appErr := apperr.From(err)
		c.JSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
		return
	}

	middleware.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.OK("logged out everywhere"))
}

// Me returns the authenticated subject's claims and effective permissions
func (h *AuthHandler) Me(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, response.Fail(apperr.ErrInvalidToken.Code, "authentication required"))
		return
	}

	perms, err := h.rbac.EffectivePermissions(c.Request.Context(), subject.Roles)
	if err != nil {
		perms = []string{}
	}

	c.JSON(http.StatusOK, response.OK(map[string]interface{}{
		"id":          subject.ID,
		"email":       subject.Email,
		"roles":       subject.Roles,
		"team_id":     subject.TeamID,
		"permissions": perms,
	}))
}
