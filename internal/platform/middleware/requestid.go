package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader is the header used to propagate request identifiers.
const RequestIDHeader = "X-Request-ID"

type ridCtxKey struct{}

// RequestID assigns each request an identifier, honouring one supplied by the
// caller. The ID is stored under the "request_id" context key, injected into
// the request context for downstream services, and echoed back in the
// response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			ctx := context.WithValue(c.Request().Context(), ridCtxKey{}, rid)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

// RequestIDFromContext returns the request identifier injected by RequestID,
// or "" when the context did not pass through the middleware.
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(ridCtxKey{}).(string)
	return rid
}
