package admin

import (
	"net/http"

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
	g := api.Group("/organizations", auth.RequireRole(auth.RoleAdmin))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	org, err := h.svc.CreateOrganization(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apierr.OK(org))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid organization id")
	}
	org, err := h.svc.GetOrganization(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(org))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOrganizations(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Organization{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid organization id")
	}
	var req UpdateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	org, err := h.svc.UpdateOrganization(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(org))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid organization id")
	}
	if err := h.svc.DeleteOrganization(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
