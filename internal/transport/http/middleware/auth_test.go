package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/infra/security"
	"github.com/arklim/social-platform-trust/internal/usecase/usecasetest"
)

func newAuthRouter(t *testing.T, trustHeader bool) (*gin.Engine, *security.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := security.NewTokenManager("test-secret", "trust-service", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	store := usecasetest.NewStore()
	store.PutUser(domain.User{ID: "admin-1", Username: "root", Email: "root@example.com", Role: domain.UserRoleAdmin})
	store.PutUser(domain.User{ID: "user-1", Username: "alice", Email: "alice@example.com", Role: domain.UserRoleGeneral})

	auth := NewAuthenticator(tokens, store.Users(), trustHeader, zaptest.NewLogger(t))

	router := gin.New()
	router.Use(EnrichContext())
	router.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		id, _ := GetAuthenticatedUserID(c)
		c.String(http.StatusOK, id)
	})
	router.GET("/admin", auth.RequireAuth(), auth.RequireRole(domain.UserRoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, tokens
}

func serve(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRequireAuthBearerToken(t *testing.T) {
	router, tokens := newAuthRouter(t, false)

	token, _, err := tokens.Issue(domain.User{ID: "user-1", Role: domain.UserRoleGeneral})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	rr := serve(router, "/me", map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusOK || rr.Body.String() != "user-1" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}

	cases := []map[string]string{
		nil,
		{"Authorization": "Basic abc"},
		{"Authorization": "Bearer "},
		{"Authorization": "Bearer not-a-token"},
		{UserIDHeader: "user-1"},
	}
	for _, headers := range cases {
		if rr := serve(router, "/me", headers); rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %v, got %d", headers, rr.Code)
		}
	}
}

func TestRequireAuthUserIDHeader(t *testing.T) {
	router, _ := newAuthRouter(t, true)

	rr := serve(router, "/me", map[string]string{UserIDHeader: "user-1"})
	if rr.Code != http.StatusOK || rr.Body.String() != "user-1" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	router, _ := newAuthRouter(t, true)

	if rr := serve(router, "/admin", map[string]string{UserIDHeader: "admin-1"}); rr.Code != http.StatusNoContent {
		t.Fatalf("expected admin to pass, got %d", rr.Code)
	}
	if rr := serve(router, "/admin", map[string]string{UserIDHeader: "user-1"}); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for general user, got %d", rr.Code)
	}
	if rr := serve(router, "/admin", map[string]string{UserIDHeader: "ghost"}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", rr.Code)
	}
}
