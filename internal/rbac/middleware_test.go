package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, role string, mw gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if role != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", role))
		}
		c.Next()
	})
	r.GET("/x", mw, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AllowsListedRole(t *testing.T) {
	if code := doRequest(t, RoleOwner, RequireAnyRole(RoleOwner)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := doRequest(t, RoleAdmin, RequireAnyRole(RoleOwner)); code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
}

func TestRequireAnyRole_RejectsMissingIdentity(t *testing.T) {
	if code := doRequest(t, "", RequireAnyRole(RoleOwner)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
