package documents

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medexam/medexam/internal/platform/apierr"
	"github.com/medexam/medexam/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/bookings/:id/documents", h.Upload)
	api.GET("/bookings/:id/documents", h.List)
	api.GET("/documents/:id", h.Download)
	api.DELETE("/documents/:id", h.Delete, auth.RequireRole(auth.RoleAdmin))
}

// Upload accepts a multipart form with a "file" part and a "category" field.
func (h *Handler) Upload(c echo.Context) error {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid booking id")
	}
	category, ok := ParseCategory(c.FormValue("category"))
	if !ok {
		return apierr.Validation("category must be one of report, referral, consent, other")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apierr.Validation("a file part is required")
	}
	src, err := fh.Open()
	if err != nil {
		return apierr.Validation("unreadable file part")
	}
	defer src.Close()

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	actor := auth.IdentityFromContext(c.Request().Context())
	d, err := h.svc.Upload(c.Request().Context(), actor, bookingID, category, fh.Filename, contentType, src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apierr.OK(d))
}

func (h *Handler) List(c echo.Context) error {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid booking id")
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	docs, err := h.svc.List(c.Request().Context(), actor, bookingID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(docs))
}

func (h *Handler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid document id")
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	d, content, err := h.svc.Open(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	defer content.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, d.Filename))
	return c.Stream(http.StatusOK, d.ContentType, content)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid document id")
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
