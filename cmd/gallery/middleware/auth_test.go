package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/service"
	"github.com/aziwar/dr-islam-gallery/common/config"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/aziwar/dr-islam-gallery/common/ratelimit"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openLimiter struct{}

func (l *openLimiter) Check(ctx context.Context, key string, limit int64, windowSec int) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: true, CurrentCount: 1, Limit: limit}, nil
}

func (l *openLimiter) GetCurrentCount(ctx context.Context, key string) (int64, error) {
	return 0, nil
}

func (l *openLimiter) Reset(ctx context.Context, key string) error {
	return nil
}

func TestRequireAdmin(t *testing.T) {
	cfg := config.AuthConfig{
		AdminToken:    "admin-token",
		RequestLimit:  50,
		RequestWindow: 15 * time.Minute,
		FailedLimit:   5,
		LockoutWindow: 30 * time.Minute,
	}
	gate := service.NewAuthGate(cfg, &openLimiter{}, nil, logger.New("error", "json"))

	e := echo.New()
	handler := RequireAdmin(gate)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/gallery", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no token must be rejected")

	req = httptest.NewRequest(http.MethodGet, "/admin/gallery", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/gallery", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
