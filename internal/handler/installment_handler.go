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

// InstallmentHandler exposes installment CRUD and payment recording.
type InstallmentHandler struct {
	svc     *service.InstallmentService
	payment *service.PaymentCoordinator
}

func NewInstallmentHandler(svc *service.InstallmentService, payment *service.PaymentCoordinator) *InstallmentHandler {
	return &InstallmentHandler{svc: svc, payment: payment}
}

type installmentRequest struct {
	Name             string  `json:"name"`
	TotalAmount      string  `json:"totalAmount"`
	NumberOfPayments int     `json:"numberOfPayments"`
	Type             string  `json:"type"`
	CategoryID       *string `json:"categoryId,omitempty"`
	StartDate        string  `json:"startDate"`
	DayOfMonth       int     `json:"dayOfMonth"`
	Currency         string  `json:"currency"`
}

func (r installmentRequest) toDomain() (*domain.Installment, error) {
	total, err := decimal.NewFromString(r.TotalAmount)
	if err != nil {
		return nil, domain.NewSchemaError("totalAmount must be a valid decimal string")
	}
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, domain.NewSchemaError("startDate must be YYYY-MM-DD")
	}
	inst := &domain.Installment{
		Name: r.Name, TotalAmount: total, NumberOfPayments: r.NumberOfPayments,
		Type: domain.EntryType(r.Type), StartDate: start, DayOfMonth: r.DayOfMonth, Currency: r.Currency,
	}
	if r.CategoryID != nil {
		id, err := uuid.Parse(*r.CategoryID)
		if err != nil {
			return nil, domain.NewSchemaError("categoryId must be a valid id")
		}
		inst.CategoryID = &id
	}
	return inst, nil
}

func (h *InstallmentHandler) Create(c echo.Context) error {
	var req installmentRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	inst, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	created, err := h.svc.Create(c.Request().Context(), dctx(c), inst)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *InstallmentHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	inst, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *InstallmentHandler) List(c echo.Context) error {
	result, err := h.svc.List(c.Request().Context(), dctx(c), pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *InstallmentHandler) Outstanding(c echo.Context) error {
	result, err := h.svc.Outstanding(c.Request().Context(), dctx(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *InstallmentHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req installmentRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	patch, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), id, func(i *domain.Installment) error {
		i.Name, i.TotalAmount, i.NumberOfPayments, i.Type = patch.Name, patch.TotalAmount, patch.NumberOfPayments, patch.Type
		i.CategoryID, i.StartDate, i.DayOfMonth, i.Currency = patch.CategoryID, patch.StartDate, patch.DayOfMonth, patch.Currency
		return nil
	})
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *InstallmentHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *InstallmentHandler) RecordPayment(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	txn, inst, err := h.payment.RecordInstallmentPayment(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"transaction": txn, "installment": inst})
}

func (h *InstallmentHandler) ReversePayment(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	inst, err := h.payment.ReverseInstallmentPayment(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, inst)
}
