package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

func newTestApp(t *testing.T, devMode bool) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg, err := Parse([]byte("db:\n  driver: sqlite\n  sqlite_path: \":memory:\"\nauth:\n  jwt_secret: app-secret\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg.DevMode = devMode
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	a, err := New(cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return a
}

func TestAppServesProjectsWithoutRedisOrLLM(t *testing.T) {
	a := newTestApp(t, false)
	tok, err := services.SignToken(services.AuthConfig{Secret: "app-secret"}, uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{"name":"Wired"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/dev/prompt-cache", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("dev route should be absent outside dev mode, got %d", rec.Code)
	}
}

func TestAppDevModeExposesPromptCacheRoute(t *testing.T) {
	a := newTestApp(t, true)
	tok, _ := services.SignToken(services.AuthConfig{Secret: "app-secret"}, uuid.New(), time.Minute)

	req := httptest.NewRequest(http.MethodDelete, "/api/dev/prompt-cache", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("prompt cache: %d %s", rec.Code, rec.Body.String())
	}
}
