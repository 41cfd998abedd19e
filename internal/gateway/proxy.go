package gateway

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"fleetgate/internal/service"
	"fleetgate/pkg/apperr"
	"fleetgate/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenVerifier authenticates a raw access token into a Subject.
type TokenVerifier interface {
	Verify(accessToken string) (*service.Subject, error)
}

// Authorizer evaluates role/permission rules for a subject.
type Authorizer interface {
	Authorize(ctx context.Context, subject *service.Subject, resource, action string) error
}

// ScopeChecker evaluates organizational team-scope rules for a subject.
type ScopeChecker interface {
	AuthorizeScope(subject *service.Subject, requestedTeamID string) error
}

// forwardedHeaders is the explicit allowlist of inbound headers the proxy
// forwards. Anything not listed stays on this side of the boundary; the
// x-forwarded-* set is injected separately.
var forwardedHeaders = []string{
	"Authorization",
	"Content-Type",
	"Accept",
	"Accept-Language",
	"User-Agent",
	"X-Request-ID",
	"X-Team-ID",
}

// hopByHopHeaders are recomputed by the outbound transport, never copied.
// Copying a downstream content-length or content-encoding onto a
// re-serialized body corrupts the response.
var hopByHopHeaders = map[string]struct{}{
	"Connection":        {},
	"Content-Length":    {},
	"Content-Encoding":  {},
	"Transfer-Encoding": {},
	"Keep-Alive":        {},
}

// Proxy forwards authenticated requests to the downstream resource
// services and relays their responses verbatim. It is stateless per
// request; its only persistent state is the immutable route table.
type Proxy struct {
	table  *Table
	client *http.Client
	tokens TokenVerifier
	rbac   Authorizer
	scope  ScopeChecker
}

// NewProxy builds the gateway proxy. The timeout bounds every downstream
// call independently; one slow downstream never blocks other requests.
func NewProxy(table *Table, tokens TokenVerifier, rbac Authorizer, scope ScopeChecker, timeout time.Duration) *Proxy {
	return &Proxy{
		table:  table,
		client: &http.Client{Timeout: timeout},
		tokens: tokens,
		rbac:   rbac,
		scope:  scope,
	}
}

// Handler is the single gin entry point for every proxied path.
func (p *Proxy) Handler(c *gin.Context) {
	route, ok := p.table.Match(c.Request.URL.Path)
	if !ok {
		writeError(c, apperr.ErrRouteNotFound)
		return
	}

	if route.RequiresAuth {
		subject, err := p.authenticate(c)
		if err != nil {
			writeError(c, apperr.From(err))
			return
		}

		if route.Resource != "" {
			action, ok := actionForMethod(c.Request.Method)
			if !ok {
				writeError(c, apperr.ErrInsufficientPerms.WithMessage("method not allowed on this resource"))
				return
			}
			if err := p.rbac.Authorize(c.Request.Context(), subject, route.Resource, action); err != nil {
				writeError(c, apperr.From(err))
				return
			}
		}

		if route.TeamScoped {
			if err := p.scope.AuthorizeScope(subject, requestedTeamID(c)); err != nil {
				writeError(c, apperr.From(err))
				return
			}
		}
	}

	p.forward(c, route)
}

func (p *Proxy) authenticate(c *gin.Context) (*service.Subject, error) {
	tokenString, err := c.Cookie("access_token")
	if err != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		var found bool
		tokenString, found = strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			return nil, apperr.ErrInvalidToken.WithMessage("missing bearer token")
		}
	}
	return p.tokens.Verify(tokenString)
}

// requestedTeamID extracts the team the caller is acting on: X-Team-ID
// header first, team_id query fallback.
func requestedTeamID(c *gin.Context) string {
	if teamID := c.GetHeader("X-Team-ID"); teamID != "" {
		return teamID
	}
	return c.Query("team_id")
}

func (p *Proxy) forward(c *gin.Context, route *Route) {
	outURL := route.Downstream + route.DownstreamPath(c.Request.URL.Path)
	if c.Request.URL.RawQuery != "" {
		outURL += "?" + c.Request.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, outURL, c.Request.Body)
	if err != nil {
		writeError(c, apperr.ErrGatewayUnavailable.WithMessage("failed to build downstream request"))
		return
	}

	for _, name := range forwardedHeaders {
		if v := c.GetHeader(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	req.Header.Set("X-Forwarded-For", c.ClientIP())
	req.Header.Set("X-Forwarded-Host", c.Request.Host)
	proto := "http"
	if c.Request.TLS != nil {
		proto = "https"
	}
	req.Header.Set("X-Forwarded-Proto", proto)

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("gateway: downstream %s unreachable: %v", outURL, err)
		writeError(c, apperr.ErrGatewayUnavailable)
		return
	}
	defer resp.Body.Close()

	// Relay status and body verbatim for every status class: a downstream
	// 4xx/5xx must reach the client unmodified.
	for name, values := range resp.Header {
		if _, hop := hopByHopHeaders[http.CanonicalHeaderKey(name)]; hop {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Printf("gateway: relay from %s interrupted: %v", outURL, err)
	}
}

func actionForMethod(method string) (string, bool) {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read", true
	case http.MethodPost:
		return "create", true
	case http.MethodPut, http.MethodPatch:
		return "update", true
	case http.MethodDelete:
		return "delete", true
	default:
		return "", false
	}
}

func writeError(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.Status, response.Fail(err.Code, err.Message))
}
