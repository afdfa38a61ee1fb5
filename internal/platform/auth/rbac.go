package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that rejects callers whose role is not in
// the given set. Admins always pass.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFromContext(c.Request().Context())
			if id.ID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if id.IsAdmin() {
				return next(c)
			}
			for _, required := range roles {
				if id.Role == required {
					return next(c)
				}
			}

			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}
