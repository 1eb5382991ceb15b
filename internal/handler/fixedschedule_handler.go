package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/service"
)

// FixedScheduleHandler exposes fixed-schedule CRUD plus pause/resume.
type FixedScheduleHandler struct {
	svc *service.FixedScheduleService
}

func NewFixedScheduleHandler(svc *service.FixedScheduleService) *FixedScheduleHandler {
	return &FixedScheduleHandler{svc: svc}
}

type fixedScheduleRequest struct {
	Name       string  `json:"name"`
	Amount     string  `json:"amount"`
	Currency   string  `json:"currency"`
	Type       string  `json:"type"`
	CategoryID *string `json:"categoryId,omitempty"`
	DayOfMonth int     `json:"dayOfMonth"`
	StartDate  string  `json:"startDate"`
	EndDate    *string `json:"endDate,omitempty"`
}

func (r fixedScheduleRequest) toDomain() (*domain.FixedSchedule, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, domain.NewSchemaError("amount must be a valid decimal string")
	}
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, domain.NewSchemaError("startDate must be YYYY-MM-DD")
	}
	fs := &domain.FixedSchedule{
		Name: r.Name, Amount: amount, Currency: r.Currency, Type: domain.EntryType(r.Type),
		DayOfMonth: r.DayOfMonth, StartDate: start,
	}
	if r.CategoryID != nil {
		id, err := uuid.Parse(*r.CategoryID)
		if err != nil {
			return nil, domain.NewSchemaError("categoryId must be a valid id")
		}
		fs.CategoryID = &id
	}
	if r.EndDate != nil {
		end, err := time.Parse("2006-01-02", *r.EndDate)
		if err != nil {
			return nil, domain.NewSchemaError("endDate must be YYYY-MM-DD")
		}
		fs.EndDate = &end
	}
	return fs, nil
}

func (h *FixedScheduleHandler) Create(c echo.Context) error {
	var req fixedScheduleRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	fs, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	created, err := h.svc.Create(c.Request().Context(), dctx(c), fs)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *FixedScheduleHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	fs, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, fs)
}

func (h *FixedScheduleHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("active_only") == "true"
	result, err := h.svc.List(c.Request().Context(), dctx(c), activeOnly, pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *FixedScheduleHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req fixedScheduleRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	patch, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), id, func(fs *domain.FixedSchedule) error {
		fs.Name, fs.Amount, fs.Currency, fs.Type = patch.Name, patch.Amount, patch.Currency, patch.Type
		fs.CategoryID, fs.DayOfMonth, fs.StartDate, fs.EndDate = patch.CategoryID, patch.DayOfMonth, patch.StartDate, patch.EndDate
		return nil
	})
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *FixedScheduleHandler) Pause(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Pause(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *FixedScheduleHandler) Resume(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Resume(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *FixedScheduleHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
