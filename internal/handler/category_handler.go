package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/service"
)

// CategoryHandler exposes category CRUD (§4.A).
type CategoryHandler struct {
	svc *service.CategoryService
}

func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

type categoryRequest struct {
	Name         string  `json:"name"`
	NameHe       string  `json:"nameHe"`
	Type         string  `json:"type"`
	Color        string  `json:"color"`
	Icon         string  `json:"icon"`
	ParentID     *string `json:"parentId,omitempty"`
	DisplayOrder int     `json:"displayOrder"`
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	userID, orgID := dctx(c).Stamp()
	cat := &domain.Category{
		UserID: userID, OrganizationID: orgID,
		Name: req.Name, NameHe: req.NameHe, Type: domain.EntryType(req.Type),
		Color: req.Color, Icon: req.Icon, DisplayOrder: req.DisplayOrder,
	}
	if req.ParentID != nil {
		if id, err := uuid.Parse(*req.ParentID); err == nil {
			cat.ParentID = &id
		}
	}
	created, err := h.svc.Create(c.Request().Context(), dctx(c), cat)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	cat, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) List(c echo.Context) error {
	includeArchived := c.QueryParam("include_archived") == "true"
	result, err := h.svc.List(c.Request().Context(), dctx(c), includeArchived, pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), id, req.Name, req.Color, req.Icon, req.DisplayOrder)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *CategoryHandler) Archive(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Archive(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
