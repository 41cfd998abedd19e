package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetgate/internal/service"
	"fleetgate/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubVerifier struct {
	subject *service.Subject
	err     error
}

func (s stubVerifier) Verify(string) (*service.Subject, error) {
	return s.subject, s.err
}

type stubAuthorizer struct {
	err          error
	lastResource string
	lastAction   string
}

func (s *stubAuthorizer) Authorize(_ context.Context, _ *service.Subject, resource, action string) error {
	s.lastResource = resource
	s.lastAction = action
	return s.err
}

type stubScope struct {
	err           error
	lastRequested string
}

func (s *stubScope) AuthorizeScope(_ *service.Subject, requestedTeamID string) error {
	s.lastRequested = requestedTeamID
	return s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, routes []Route, tokens TokenVerifier, rbac Authorizer, scope ScopeChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	table, err := NewTable(routes)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	proxy := NewProxy(table, tokens, rbac, scope, 2*time.Second)
	router := gin.New()
	router.NoRoute(proxy.Handler)
	return router
}

func testSubject() *service.Subject {
	return &service.Subject{
		ID:     uuid.New(),
		Email:  "u@x.com",
		Roles:  []string{"dispatcher"},
		TeamID: uuid.New().String(),
	}
}

func decodeEnvelope(t *testing.T, body string) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (body %q)", err, body)
	}
	return env
}

func TestProxyRelaysDownstreamResponseVerbatim(t *testing.T) {
	const body = `{"error":"order 42 not found"}`
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Downstream-Version", "1.4.2")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(body))
	}))
	defer backend.Close()

	router := newTestRouter(t,
		[]Route{{PathPrefix: "/api/orders", Downstream: backend.URL}},
		stubVerifier{}, &stubAuthorizer{}, &stubScope{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/42", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 relayed from downstream", w.Code)
	}
	if got := w.Body.String(); got != body {
		t.Errorf("body = %q, want downstream body verbatim %q", got, body)
	}
	if got := w.Header().Get("X-Downstream-Version"); got != "1.4.2" {
		t.Errorf("X-Downstream-Version = %q, want copied from downstream", got)
	}
}

func TestProxyStripsHopByHopResponseHeaders(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "identity")
		w.Header().Set("Keep-Alive", "timeout=5")
		_, _ = w.Write([]byte("ok"))
	}))
	defer backend.Close()

	router := newTestRouter(t,
		[]Route{{PathPrefix: "/api/orders", Downstream: backend.URL}},
		stubVerifier{}, &stubAuthorizer{}, &stubScope{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	if v := w.Header().Get("Content-Encoding"); v != "" {
		t.Errorf("Content-Encoding = %q, want stripped", v)
	}
	if v := w.Header().Get("Keep-Alive"); v != "" {
		t.Errorf("Keep-Alive = %q, want stripped", v)
	}
}

func TestProxyRewritesPathAndFiltersHeaders(t *testing.T) {
	var got *http.Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cp := *r
		cp.Header = r.Header.Clone()
		got = &cp
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	router := newTestRouter(t,
		[]Route{{PathPrefix: "/api/orders", Downstream: backend.URL, RewritePrefix: "/orders"}},
		stubVerifier{}, &stubAuthorizer{}, &stubScope{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/42?status=open", nil)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("X-Team-ID", "team-1")
	req.Header.Set("X-Internal-Secret", "must-not-cross")
	req.Header.Set("Cookie", "access_token=abc")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("downstream never received the request")
	}
	if got.URL.Path != "/orders/42" {
		t.Errorf("downstream path = %s, want /orders/42", got.URL.Path)
	}
	if got.URL.RawQuery != "status=open" {
		t.Errorf("downstream query = %s, want status=open", got.URL.RawQuery)
	}
	if got.Header.Get("Authorization") != "Bearer tok" {
		t.Error("Authorization must be forwarded")
	}
	if got.Header.Get("X-Team-ID") != "team-1" {
		t.Error("X-Team-ID must be forwarded")
	}
	if got.Header.Get("X-Internal-Secret") != "" {
		t.Error("headers outside the allowlist must not cross the boundary")
	}
	if got.Header.Get("Cookie") != "" {
		t.Error("cookies must not cross the boundary")
	}
	if got.Header.Get("X-Forwarded-For") == "" {
		t.Error("X-Forwarded-For must be injected")
	}
	if got.Header.Get("X-Forwarded-Host") == "" {
		t.Error("X-Forwarded-Host must be injected")
	}
	if got.Header.Get("X-Forwarded-Proto") != "http" {
		t.Errorf("X-Forwarded-Proto = %q, want http", got.Header.Get("X-Forwarded-Proto"))
	}
}

func TestProxyDownstreamUnreachable(t *testing.T) {
	// Claim a port, then free it so nothing listens there.
	backend := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := backend.URL
	backend.Close()

	router := newTestRouter(t,
		[]Route{{PathPrefix: "/api/orders", Downstream: deadURL}},
		stubVerifier{}, &stubAuthorizer{}, &stubScope{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	env := decodeEnvelope(t, w.Body.String())
	if env.Success || env.Code != "GatewayUnavailable" {
		t.Errorf("envelope = %+v, want success=false code=GatewayUnavailable", env)
	}
}

func TestProxyUnknownRoute(t *testing.T) {
	router := newTestRouter(t,
		[]Route{{PathPrefix: "/api/orders", Downstream: "http://localhost:8083"}},
		stubVerifier{}, &stubAuthorizer{}, &stubScope{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if env := decodeEnvelope(t, w.Body.String()); env.Code != "RouteNotFound" {
		t.Errorf("code = %s, want RouteNotFound", env.Code)
	}
}

func TestProxyAuthRequired(t *testing.T) {
	var downstreamHit bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstreamHit = true
	}))
	defer backend.Close()

	routes := []Route{{PathPrefix: "/api/orders", Downstream: backend.URL, RequiresAuth: true}}

	t.Run("missing token", func(t *testing.T) {
		router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, &stubAuthorizer{}, &stubScope{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		if env := decodeEnvelope(t, w.Body.String()); env.Code != "InvalidToken" {
			t.Errorf("code = %s, want InvalidToken", env.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		router := newTestRouter(t, routes, stubVerifier{err: apperr.ErrTokenExpired}, &stubAuthorizer{}, &stubScope{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer expired")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		if env := decodeEnvelope(t, w.Body.String()); env.Code != "TokenExpired" {
			t.Errorf("code = %s, want TokenExpired", env.Code)
		}
	})

	t.Run("valid bearer token", func(t *testing.T) {
		router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, &stubAuthorizer{}, &stubScope{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer ok")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !downstreamHit {
			t.Error("downstream should have been reached")
		}
	})
}

func TestProxyPermissionCheckPerMethod(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer backend.Close()

	routes := []Route{{PathPrefix: "/api/orders", Downstream: backend.URL, RequiresAuth: true, Resource: "orders"}}

	cases := []struct {
		method string
		action string
	}{
		{http.MethodGet, "read"},
		{http.MethodHead, "read"},
		{http.MethodPost, "create"},
		{http.MethodPut, "update"},
		{http.MethodPatch, "update"},
		{http.MethodDelete, "delete"},
	}

	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			rbac := &stubAuthorizer{}
			router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, rbac, &stubScope{})
			req := httptest.NewRequest(tc.method, "/api/orders", nil)
			req.Header.Set("Authorization", "Bearer ok")
			router.ServeHTTP(httptest.NewRecorder(), req)

			if rbac.lastResource != "orders" || rbac.lastAction != tc.action {
				t.Errorf("authorized %s:%s, want orders:%s", rbac.lastResource, rbac.lastAction, tc.action)
			}
		})
	}

	t.Run("unmapped method denied", func(t *testing.T) {
		router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, &stubAuthorizer{}, &stubScope{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer ok")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})

	t.Run("denied by rbac", func(t *testing.T) {
		router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, &stubAuthorizer{err: apperr.ErrInsufficientPerms}, &stubScope{})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/orders/42", nil)
		req.Header.Set("Authorization", "Bearer ok")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
		if env := decodeEnvelope(t, w.Body.String()); env.Code != "InsufficientPermissions" {
			t.Errorf("code = %s, want InsufficientPermissions", env.Code)
		}
	})
}

func TestProxyTeamScope(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer backend.Close()

	routes := []Route{{PathPrefix: "/api/riders", Downstream: backend.URL, RequiresAuth: true, TeamScoped: true}}

	t.Run("header wins over query", func(t *testing.T) {
		scope := &stubScope{}
		router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, &stubAuthorizer{}, scope)
		req := httptest.NewRequest(http.MethodGet, "/api/riders?team_id=from-query", nil)
		req.Header.Set("Authorization", "Bearer ok")
		req.Header.Set("X-Team-ID", "from-header")
		router.ServeHTTP(httptest.NewRecorder(), req)

		if scope.lastRequested != "from-header" {
			t.Errorf("requested team = %q, want from-header", scope.lastRequested)
		}
	})

	t.Run("query used when header absent", func(t *testing.T) {
		scope := &stubScope{}
		router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, &stubAuthorizer{}, scope)
		req := httptest.NewRequest(http.MethodGet, "/api/riders?team_id=from-query", nil)
		req.Header.Set("Authorization", "Bearer ok")
		router.ServeHTTP(httptest.NewRecorder(), req)

		if scope.lastRequested != "from-query" {
			t.Errorf("requested team = %q, want from-query", scope.lastRequested)
		}
	})

	t.Run("scope denied", func(t *testing.T) {
		router := newTestRouter(t, routes, stubVerifier{subject: testSubject()}, &stubAuthorizer{}, &stubScope{err: apperr.ErrTeamAccessDenied})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/riders", nil)
		req.Header.Set("Authorization", "Bearer ok")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
		if env := decodeEnvelope(t, w.Body.String()); env.Code != "TeamAccessDenied" {
			t.Errorf("code = %s, want TeamAccessDenied", env.Code)
		}
	})
}

func TestProxyForwardsRequestBody(t *testing.T) {
	var gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer backend.Close()

	router := newTestRouter(t,
		[]Route{{PathPrefix: "/api/orders", Downstream: backend.URL}},
		stubVerifier{}, &stubAuthorizer{}, &stubScope{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"rider_id":"r1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if gotBody != `{"rider_id":"r1"}` {
		t.Errorf("downstream body = %q, want request body verbatim", gotBody)
	}
}
