package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit returns middleware that caps request body size. defaultBytes
// applies to ordinary JSON endpoints; uploadBytes applies to document upload
// requests, which carry multipart file content and are allowed to be larger.
//
// Oversized requests are rejected with 413. The wrapping reader enforces the
// cap even when Content-Length is absent or lies.
func BodyLimit(defaultBytes, uploadBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Body == nil || c.Request().Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if isUploadRequest(c.Request()) {
				limit = uploadBytes
			}

			if c.Request().ContentLength > limit {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
			}

			c.Request().Body = &limitedReadCloser{
				ReadCloser: c.Request().Body,
				remaining:  limit,
			}

			return next(c)
		}
	}
}

func isUploadRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/documents")
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (n int, err error) {
	if r.exceeded {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}

	n, err = r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)

	if r.remaining < 0 {
		r.exceeded = true
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	return n, err
}
