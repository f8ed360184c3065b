package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"petadopt/internal/infrastructure/ratelimit"
	"petadopt/pkg/errors"
	"petadopt/pkg/logger"
	"petadopt/pkg/response"
)

// RequestRateLimit throttles requests per client IP under the request policy.
func RequestRateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			allowed, wait := limiter.Allow(ip, ratelimit.ActionRequest)
			if !allowed {
				retryAfter := int(math.Ceil(wait.Seconds()))
				logger.Info("RATE LIMIT: blocked request from IP %s (retry in %ds)", ip, retryAfter)

				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return response.Fail(c, http.StatusTooManyRequests, errors.CodeTooManyRequests,
					"Rate limit exceeded", map[string]int{"retry_after": retryAfter})
			}

			return next(c)
		}
	}
}
