package audit

import (
	"net/http"
	"time"

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit-events", h.List, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	filter := ListFilter{
		ActorID:    c.QueryParam("actor_id"),
		EntityType: c.QueryParam("entity_type"),
		EntityID:   c.QueryParam("entity_id"),
		Action:     c.QueryParam("action"),
	}
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apierr.Validation("since must be RFC3339")
		}
		filter.Since = t
	}
	if raw := c.QueryParam("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apierr.Validation("until must be RFC3339")
		}
		filter.Until = t
	}

	events, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*Event{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg))
}
