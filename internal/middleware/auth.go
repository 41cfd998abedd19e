package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"fleetgate/internal/service"
	"fleetgate/pkg/apperr"
	"fleetgate/pkg/response"

	"github.com/gin-gonic/gin"
)

const subjectKey = "subject"

// TokenVerifier authenticates a raw access token into a Subject.
type TokenVerifier interface {
	Verify(accessToken string) (*service.Subject, error)
}

// Authorizer evaluates role/permission rules for a subject.
type Authorizer interface {
	Authorize(ctx context.Context, subject *service.Subject, resource, action string) error
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, pair *service.TokenPair, accessMaxAge, refreshMaxAge int) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", pair.AccessToken, accessMaxAge, "/", "", secure, true)
	c.SetCookie("refresh_token", pair.RefreshToken, refreshMaxAge, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// extractToken reads the access token from the access_token cookie,
// falling back to the Authorization header.
func extractToken(c *gin.Context) (string, *apperr.Error) {
	if tokenString, err := c.Cookie("access_token"); err == nil && tokenString != "" {
		return tokenString, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", apperr.ErrInvalidToken.WithMessage("authorization is missing")
	}
	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || tokenString == "" {
		return "", apperr.ErrInvalidToken.WithMessage("invalid authorization format, expected 'Bearer <token>'")
	}
	return tokenString, nil
}

// RequireAuth validates the access token and stores the authenticated
// Subject in the request context.
func RequireAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, appErr := extractToken(c)
		if appErr != nil {
			c.AbortWithStatusJSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
			return
		}

		subject, err := tokens.Verify(tokenString)
		if err != nil {
			appErr := apperr.From(err)
			c.AbortWithStatusJSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
			return
		}

		c.Set(subjectKey, subject)
		c.Next()
	}
}

// RequirePermission checks that the authenticated subject may perform
// action on resource. Must run after RequireAuth.
func RequirePermission(rbac Authorizer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := GetSubject(c)
		if subject == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail(apperr.ErrInvalidToken.Code, "authentication required"))
			return
		}

		if err := rbac.Authorize(c.Request.Context(), subject, resource, action); err != nil {
			appErr := apperr.From(err)
			c.AbortWithStatusJSON(appErr.Status, response.Fail(appErr.Code, appErr.Message))
			return
		}

		c.Next()
	}
}

// GetSubject returns the authenticated subject set by RequireAuth, or nil.
func GetSubject(c *gin.Context) *service.Subject {
	v, exists := c.Get(subjectKey)
	if !exists {
		return nil
	}
	subject, ok := v.(*service.Subject)
	if !ok {
		return nil
	}
	return subject
}
