package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"fortunaflow/internal/service"
)

// DashboardHandler exposes the read-only aggregated views.
type DashboardHandler struct {
	svc *service.DashboardAggregator
}

func NewDashboardHandler(svc *service.DashboardAggregator) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Summary(c echo.Context) error {
	summary, err := h.svc.Summary(c.Request().Context(), dctx(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *DashboardHandler) PeriodSeries(c echo.Context) error {
	kind := service.PeriodKind(c.QueryParam("kind"))
	if kind == "" {
		kind = service.PeriodMonthly
	}
	points, err := h.svc.PeriodSeries(c.Request().Context(), dctx(c), kind)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, points)
}

func (h *DashboardHandler) CategoryBreakdown(c echo.Context) error {
	items, err := h.svc.CategoryBreakdown(c.Request().Context(), dctx(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *DashboardHandler) UpcomingPayments(c echo.Context) error {
	days, err := strconv.Atoi(c.QueryParam("days"))
	if err != nil || days <= 0 {
		days = 30
	}
	payments, err := h.svc.UpcomingPayments(c.Request().Context(), dctx(c), days)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (h *DashboardHandler) FinancialHealthScore(c echo.Context) error {
	score, err := h.svc.FinancialHealthScore(c.Request().Context(), dctx(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, score)
}
