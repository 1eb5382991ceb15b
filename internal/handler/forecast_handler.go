package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"fortunaflow/internal/service"
)

// ForecastHandler exposes the monthly and weekly forward projections.
type ForecastHandler struct {
	svc *service.ForecastEngine
}

func NewForecastHandler(svc *service.ForecastEngine) *ForecastHandler {
	return &ForecastHandler{svc: svc}
}

func (h *ForecastHandler) Monthly(c echo.Context) error {
	months, err := strconv.Atoi(c.QueryParam("months"))
	if err != nil || months <= 0 {
		months = service.DefaultForecastMonths
	}
	forecast, err := h.svc.ComputeMonthlyForecast(c.Request().Context(), dctx(c), months)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, forecast)
}

func (h *ForecastHandler) Weekly(c echo.Context) error {
	weeks, err := strconv.Atoi(c.QueryParam("weeks"))
	if err != nil || weeks <= 0 {
		weeks = service.DefaultForecastWeeks
	}
	forecast, err := h.svc.ComputeWeeklyForecast(c.Request().Context(), dctx(c), weeks)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, forecast)
}
