package booking

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medexam/medexam/internal/platform/apierr"
	"github.com/medexam/medexam/internal/platform/auth"
	"github.com/medexam/medexam/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the booking surface. extra lets the caller attach
// route-level middleware to the creation endpoint, which runs under a
// stricter rate bucket.
func (h *Handler) RegisterRoutes(api *echo.Group, extra ...echo.MiddlewareFunc) {
	g := api.Group("/bookings")
	g.GET("", h.List)
	g.POST("", h.Create, extra...)
	g.GET("/:id", h.Get)
	g.GET("/:id/progress", h.ListProgress)
	g.POST("/:id/progress", h.UpdateProgress)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	b, err := h.svc.Create(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apierr.OK(b))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid booking id")
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	b, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(b))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter, err := filterFromQuery(c)
	if err != nil {
		return err
	}

	actor := auth.IdentityFromContext(c.Request().Context())
	items, total, err := h.svc.List(c.Request().Context(), actor, filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Booking{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateProgress(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid booking id")
	}
	var req UpdateProgressRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	b, err := h.svc.UpdateProgress(c.Request().Context(), actor, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(b))
}

func (h *Handler) ListProgress(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid booking id")
	}
	actor := auth.IdentityFromContext(c.Request().Context())
	entries, err := h.svc.ListProgress(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*ProgressEntry{}
	}
	return c.JSON(http.StatusOK, apierr.OK(entries))
}

func filterFromQuery(c echo.Context) (ListFilter, error) {
	var f ListFilter

	if raw := c.QueryParam("status"); raw != "" {
		switch s := Status(raw); s {
		case StatusActive, StatusClosed, StatusArchived:
			f.Status = s
		default:
			return f, apierr.Validation("unknown status %q", raw)
		}
	}
	if raw := c.QueryParam("specialistId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apierr.Validation("invalid specialistId")
		}
		f.SpecialistID = id
	}
	if raw := c.QueryParam("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, apierr.Validation("startDate must be YYYY-MM-DD or RFC3339")
		}
		f.StartDate = t
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, apierr.Validation("endDate must be YYYY-MM-DD or RFC3339")
		}
		f.EndDate = t
	}
	return f, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
