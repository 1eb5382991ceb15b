package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/tenancy"
)

// AuditHandler exposes the append-only mutation log, gated to admin or
// owner (§4.I, §4.L).
type AuditHandler struct {
	repo domain.AuditLogRepository
}

func NewAuditHandler(repo domain.AuditLogRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) ListForOrganization(c echo.Context) error {
	d := dctx(c)
	if err := tenancy.Require(d, tenancy.ActionAuditView); err != nil {
		return WriteError(c, err)
	}
	result, err := h.repo.ListForOrganization(c.Request().Context(), d.OrganizationID, pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *AuditHandler) ListForRecord(c echo.Context) error {
	d := dctx(c)
	if err := tenancy.Require(d, tenancy.ActionAuditView); err != nil {
		return WriteError(c, err)
	}
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	table := c.Param("table")
	entries, err := h.repo.ListForRecord(c.Request().Context(), table, id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
