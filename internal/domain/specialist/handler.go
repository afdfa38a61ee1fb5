package specialist

import (
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/specialists", auth.RequireRole(auth.RoleUser, auth.RoleSpecialist))
	g.POST("", h.Create, auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update, auth.RequireRole(auth.RoleAdmin))
	g.DELETE("/:id", h.Delete, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateSpecialistRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	sp, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apierr.OK(sp))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid specialist id")
	}
	sp, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(sp))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	var orgID uuid.UUID
	if raw := c.QueryParam("organization_id"); raw != "" {
		var err error
		if orgID, err = uuid.Parse(raw); err != nil {
			return apierr.Validation("invalid organization_id")
		}
	}
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))

	items, total, err := h.svc.List(c.Request().Context(), orgID, activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Specialist{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid specialist id")
	}
	var req UpdateSpecialistRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	sp, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(sp))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid specialist id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
