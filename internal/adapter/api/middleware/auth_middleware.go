package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"petadopt/internal/infrastructure/ratelimit"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
	"petadopt/pkg/response"
)

// TokenVerifier turns a session token into a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	limiter  *ratelimit.RateLimiter
}

// NewAuthMiddleware verifies tokens with verifier. Failed verifications are
// throttled per client IP under the login policy when limiter is set.
func NewAuthMiddleware(verifier TokenVerifier, limiter *ratelimit.RateLimiter) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		limiter:  limiter,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		if err := m.verify(c, parts[1]); err != nil {
			return response.Error(c, err)
		}
		return next(c)
	}
}

// AuthenticateWebSocket accepts the token as a query parameter, since browsers
// cannot set headers on WebSocket upgrades.
func (m *AuthMiddleware) AuthenticateWebSocket(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			if parts := strings.Split(c.Request().Header.Get("Authorization"), " "); len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		if token == "" {
			return response.Error(c, errors.Unauthorized("Token is required", nil))
		}

		if err := m.verify(c, token); err != nil {
			return response.Error(c, err)
		}
		return next(c)
	}
}

func (m *AuthMiddleware) verify(c echo.Context, token string) error {
	ip := c.RealIP()
	if m.limiter != nil {
		if tokens, _ := m.limiter.GetStatus(ip, ratelimit.ActionLogin); tokens < 1 {
			logger.Warn("SECURITY: token verification blocked for IP %s", ip)
			return errors.TooManyRequests("Too many failed sign-in attempts", nil)
		}
	}

	uid, err := m.verifier.VerifyToken(c.Request().Context(), token)
	if err != nil || uid == "" {
		if m.limiter != nil {
			m.limiter.Allow(ip, ratelimit.ActionLogin)
		}
		return errors.Unauthorized("Invalid or expired token", err)
	}

	c.Set("uid", uid)
	return nil
}
