package middleware

import (
	"net/http"

	"auction-ledger/internal/domain"

	"github.com/labstack/echo/v4"
)

// PrincipalHeader carries the host-authenticated caller identity. The
// service trusts it as-is; authentication happens upstream.
const PrincipalHeader = "X-Principal"

const principalContextKey = "principal"

// Identity extracts the caller principal and rejects requests without
// one. The sentinel identity can never be claimed by a caller.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller := domain.Principal(c.Request().Header.Get(PrincipalHeader))
			if caller.IsAnonymous() {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "caller identity required",
				})
			}
			c.Set(principalContextKey, caller)
			return next(c)
		}
	}
}

// CallerFromContext returns the principal set by Identity, or Anonymous
// on routes that do not run it.
func CallerFromContext(c echo.Context) domain.Principal {
	if caller, ok := c.Get(principalContextKey).(domain.Principal); ok {
		return caller
	}
	return domain.Anonymous
}
