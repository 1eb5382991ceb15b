package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"fortunaflow/internal/automation"
	"fortunaflow/internal/domain"
)

// AutomationHandler lets a caller trigger or preview the recurring-charge
// materialisation the scheduler otherwise runs once a day (§4.G).
type AutomationHandler struct {
	processor *automation.Processor
}

func NewAutomationHandler(processor *automation.Processor) *AutomationHandler {
	return &AutomationHandler{processor: processor}
}

func (h *AutomationHandler) Process(c echo.Context) error {
	preview := c.QueryParam("preview") == "true"
	referenceDate := time.Now().UTC()
	if v := c.QueryParam("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return WriteError(c, domain.NewSchemaError("date must be YYYY-MM-DD"))
		}
		referenceDate = d
	}
	result, err := h.processor.Process(c.Request().Context(), dctx(c), referenceDate, preview)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
