package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/aziwar/dr-islam-gallery/cmd/gallery/models"
	"github.com/aziwar/dr-islam-gallery/common/config"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/aziwar/dr-islam-gallery/common/ratelimit"
	"github.com/google/uuid"
)

// Limiter is the rate-limit surface the auth gate needs
type Limiter interface {
	Check(ctx context.Context, key string, limit int64, windowSec int) (*ratelimit.Result, error)
	GetCurrentCount(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// TokenStore holds CSRF tokens with TTL. Satisfied by the common redis client.
type TokenStore interface {
	Set(ctx context.Context, key, value string, expiry time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

// AuthGate validates the admin bearer token with per-IP request limiting and
// failed-attempt lockout, and issues session CSRF tokens. All counters live
// in Redis, so denials hold across service instances.
type AuthGate struct {
	token   string
	cfg     config.AuthConfig
	limiter Limiter
	tokens  TokenStore
	log     *logger.Logger
}

// NewAuthGate creates a new auth gate
func NewAuthGate(cfg config.AuthConfig, limiter Limiter, tokens TokenStore, log *logger.Logger) *AuthGate {
	return &AuthGate{
		token:   cfg.AdminToken,
		cfg:     cfg,
		limiter: limiter,
		tokens:  tokens,
		log:     log,
	}
}

func adminRequestKey(ip string) string {
	return fmt.Sprintf("rate_limit:admin:%s", ip)
}

func failedAuthKey(ip string) string {
	return fmt.Sprintf("failed_auth:%s", ip)
}

func csrfKey(sessionID string) string {
	return fmt.Sprintf("csrf:%s", sessionID)
}

// Authorize checks a request against the admin gate. Denial order: request
// window, lockout, token presence, token value. A missing or wrong token
// counts as a failed attempt; success clears the IP's failure counter.
func (g *AuthGate) Authorize(ctx context.Context, authHeader, clientIP string) error {
	if clientIP != "" {
		result, err := g.limiter.Check(ctx, adminRequestKey(clientIP), g.cfg.RequestLimit, int(g.cfg.RequestWindow.Seconds()))
		if err != nil {
			return fmt.Errorf("admin rate limit check: %w", err)
		}
		if !result.Allowed {
			return fmt.Errorf("%w: retry after %ds", models.ErrRateLimited, result.RetryAfterSeconds)
		}

		failures, err := g.limiter.GetCurrentCount(ctx, failedAuthKey(clientIP))
		if err != nil {
			return fmt.Errorf("lockout check: %w", err)
		}
		if failures >= g.cfg.FailedLimit {
			return models.ErrAccountLocked
		}
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		g.recordFailure(ctx, clientIP)
		return models.ErrMissingToken
	}

	provided := strings.TrimPrefix(authHeader, "Bearer ")
	if len(provided) != len(g.token) ||
		subtle.ConstantTimeCompare([]byte(provided), []byte(g.token)) != 1 {
		g.recordFailure(ctx, clientIP)
		return models.ErrInvalidToken
	}

	if clientIP != "" {
		if err := g.limiter.Reset(ctx, failedAuthKey(clientIP)); err != nil {
			g.log.Warn("failed to clear failure counter", "client_ip", clientIP, "error", err)
		}
	}

	return nil
}

// recordFailure increments the IP's failure counter inside the lockout window
func (g *AuthGate) recordFailure(ctx context.Context, clientIP string) {
	if clientIP == "" {
		return
	}

	if _, err := g.limiter.Check(ctx, failedAuthKey(clientIP), g.cfg.FailedLimit, int(g.cfg.LockoutWindow.Seconds())); err != nil {
		g.log.Warn("failed to record auth failure", "client_ip", clientIP, "error", err)
	}
}

// IssueCSRF creates a CSRF token for the session. The previous token for the
// same session is replaced; expiry is the store TTL.
func (g *AuthGate) IssueCSRF(ctx context.Context, sessionID string) (string, error) {
	token := uuid.NewString()
	if err := g.tokens.Set(ctx, csrfKey(sessionID), token, g.cfg.CSRFTokenExpiry); err != nil {
		return "", fmt.Errorf("failed to store CSRF token: %w", err)
	}

	return token, nil
}

// ValidateCSRF checks a provided token against the stored one in constant
// time. Missing or expired tokens validate false.
func (g *AuthGate) ValidateCSRF(ctx context.Context, sessionID, provided string) bool {
	stored, err := g.tokens.Get(ctx, csrfKey(sessionID))
	if err != nil {
		return false
	}

	return len(stored) == len(provided) &&
		subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}
