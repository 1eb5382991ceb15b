package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/service"
)

// OrganizationHandler exposes organization and membership management
// (§4.I), enforced internally by the service's role-floor checks.
type OrganizationHandler struct {
	svc *service.OrganizationService
}

func NewOrganizationHandler(svc *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

type organizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *OrganizationHandler) Create(c echo.Context) error {
	var req organizationRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	org := &domain.Organization{Name: req.Name, Slug: req.Slug}
	created, err := h.svc.Create(c.Request().Context(), dctx(c).UserID, org)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *OrganizationHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	org, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, org)
}

func (h *OrganizationHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req organizationRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	org := &domain.Organization{ID: id, Name: req.Name, Slug: req.Slug}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), org)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *OrganizationHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OrganizationHandler) ListMembers(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	members, err := h.svc.ListMembers(c.Request().Context(), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

type addMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (h *OrganizationHandler) AddMember(c echo.Context) error {
	var req addMemberRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return WriteError(c, domain.NewSchemaError("userId must be a valid id"))
	}
	member, err := h.svc.AddMember(c.Request().Context(), dctx(c), userID, domain.Role(req.Role))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *OrganizationHandler) RemoveMember(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return WriteError(c, domain.NewSchemaError("invalid user id"))
	}
	if err := h.svc.RemoveMember(c.Request().Context(), dctx(c), userID); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h *OrganizationHandler) ChangeMemberRole(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return WriteError(c, domain.NewSchemaError("invalid user id"))
	}
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	if err := h.svc.ChangeMemberRole(c.Request().Context(), dctx(c), userID, domain.Role(req.Role)); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OrganizationHandler) ReactivateMember(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return WriteError(c, domain.NewSchemaError("invalid user id"))
	}
	member, err := h.svc.ReactivateMember(c.Request().Context(), dctx(c), userID)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, member)
}
