package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/auth"
	"github.com/CarOnePlus/CarOnePlus/internal/common/config"
	"github.com/gin-gonic/gin"
)

type fakeRevocations struct {
	revoked map[string]bool
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return f.revoked[tokenID], nil
}

func newAuthTestRouter(cfg config.AuthConfig, rev TokenRevocations) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuth(cfg, rev, nil), func(c *gin.Context) {
		ai, ok := AuthFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "missing auth info"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": ai.Subject})
	})
	return r
}

func TestJWTAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "caroneplus",
		Audience:  "caroneplus",
	}

	token, _, err := auth.GenerateAccessToken(cfg, "u-1", []string{"user"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	r := newAuthTestRouter(cfg, &fakeRevocations{revoked: map[string]bool{}})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	// 缺少 Authorization 头
	req2 := httptest.NewRequest(http.MethodGet, "/me", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w2.Code)
	}

	// 错误签名
	bad := config.AuthConfig{Enabled: true, JWTSecret: "other-secret", Issuer: cfg.Issuer, Audience: cfg.Audience}
	badToken, _, err := auth.GenerateAccessToken(bad, "u-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	req3 := httptest.NewRequest(http.MethodGet, "/me", nil)
	req3.Header.Set("Authorization", "Bearer "+badToken)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, req3)
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad signature, got %d", w3.Code)
	}
}

func TestJWTAuthMiddlewareRevokedToken(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "caroneplus",
		Audience:  "caroneplus",
	}

	token, _, err := auth.GenerateAccessToken(cfg, "u-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}

	rev := &fakeRevocations{revoked: map[string]bool{claims.ID: true}}
	r := newAuthTestRouter(cfg, rev)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", w.Code)
	}
}
