package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/service"
)

// AlertHandler exposes alert regeneration, listing, and read/dismiss
// state changes.
type AlertHandler struct {
	engine *service.AlertEngine
	repo   domain.AlertRepository
}

func NewAlertHandler(engine *service.AlertEngine, repo domain.AlertRepository) *AlertHandler {
	return &AlertHandler{engine: engine, repo: repo}
}

func (h *AlertHandler) Generate(c echo.Context) error {
	alerts, err := h.engine.Generate(c.Request().Context(), dctx(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) List(c echo.Context) error {
	unreadOnly := c.QueryParam("unread_only") == "true"
	result, err := h.repo.List(c.Request().Context(), dctx(c), unreadOnly, pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *AlertHandler) MarkRead(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.repo.MarkRead(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AlertHandler) Dismiss(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.repo.Dismiss(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
