package identity

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
	examinees := api.Group("/examinees", auth.RequireRole(auth.RoleUser, auth.RoleSpecialist))
	examinees.POST("", h.CreateExaminee, auth.RequireRole(auth.RoleUser))
	examinees.GET("", h.ListExaminees)
	examinees.GET("/:id", h.GetExaminee)
	examinees.PUT("/:id", h.UpdateExaminee, auth.RequireRole(auth.RoleUser))
	examinees.DELETE("/:id", h.DeleteExaminee, auth.RequireRole(auth.RoleAdmin))

	referrers := api.Group("/referrers", auth.RequireRole(auth.RoleUser, auth.RoleSpecialist))
	referrers.POST("", h.CreateReferrer, auth.RequireRole(auth.RoleAdmin))
	referrers.GET("", h.ListReferrers)
	referrers.GET("/:id", h.GetReferrer)
	referrers.PUT("/:id", h.UpdateReferrer, auth.RequireRole(auth.RoleAdmin))
	referrers.DELETE("/:id", h.DeleteReferrer, auth.RequireRole(auth.RoleAdmin))
}

// -- Examinee handlers --

func (h *Handler) CreateExaminee(c echo.Context) error {
	var req CreateExamineeRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	e, err := h.svc.CreateExaminee(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apierr.OK(e))
}

func (h *Handler) GetExaminee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid examinee id")
	}
	e, err := h.svc.GetExaminee(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(e))
}

func (h *Handler) ListExaminees(c echo.Context) error {
	pg := pagination.FromContext(c)
	orgID, err := optionalUUID(c.QueryParam("organization_id"))
	if err != nil {
		return apierr.Validation("invalid organization_id")
	}
	items, total, err := h.svc.ListExaminees(c.Request().Context(), orgID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Examinee{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateExaminee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid examinee id")
	}
	var req UpdateExamineeRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	e, err := h.svc.UpdateExaminee(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(e))
}

func (h *Handler) DeleteExaminee(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid examinee id")
	}
	if err := h.svc.DeleteExaminee(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Referrer handlers --

func (h *Handler) CreateReferrer(c echo.Context) error {
	var req CreateReferrerRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.svc.CreateReferrer(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, apierr.OK(r))
}

func (h *Handler) GetReferrer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid referrer id")
	}
	r, err := h.svc.GetReferrer(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(r))
}

func (h *Handler) ListReferrers(c echo.Context) error {
	pg := pagination.FromContext(c)
	orgID, err := optionalUUID(c.QueryParam("organization_id"))
	if err != nil {
		return apierr.Validation("invalid organization_id")
	}
	items, total, err := h.svc.ListReferrers(c.Request().Context(), orgID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Referrer{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateReferrer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid referrer id")
	}
	var req UpdateReferrerRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.svc.UpdateReferrer(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apierr.OK(r))
}

func (h *Handler) DeleteReferrer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierr.Validation("invalid referrer id")
	}
	if err := h.svc.DeleteReferrer(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func optionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
