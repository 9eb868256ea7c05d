package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// Go HTTP testing: httptest.NewRecorder() captures the response without starting
// a real server. Combined with gin's test mode, this lets you test handlers
// and middleware in isolation — fast and without network I/O.

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAdminAuth_Valid(t *testing.T) {
	router := gin.New()
	router.Use(AdminAuth("s3cret"))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("POST", "/test", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAdminAuth_Missing(t *testing.T) {
	router := gin.New()
	router.Use(AdminAuth("s3cret"))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("POST", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdminAuth_Invalid(t *testing.T) {
	router := gin.New()
	router.Use(AdminAuth("s3cret"))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("POST", "/test", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestAdminAuth_Unconfigured(t *testing.T) {
	router := gin.New()
	router.Use(AdminAuth(""))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("POST", "/test", nil)
	req.Header.Set("X-Admin-Secret", "anything")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
