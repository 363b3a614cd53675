package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/common/ratelimit"
)

// ClientRateLimitMiddleware limits requests per client IP under policy.
// A nil checker disables limiting. Limiter errors fail open.
func ClientRateLimitMiddleware(checker ratelimit.Checker, policy ratelimit.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if checker == nil {
			return next
		}
		return func(c echo.Context) error {
			result, err := checker.CheckClientLimit(c.Request().Context(), policy, c.RealIP())
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"success": false,
					"message": "Too many requests. Please wait a moment and try again.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window_seconds":      policy.WindowSeconds,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
