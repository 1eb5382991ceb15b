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

// BankBalanceHandler exposes balance snapshot CRUD.
type BankBalanceHandler struct {
	svc *service.BankBalanceService
}

func NewBankBalanceHandler(svc *service.BankBalanceService) *BankBalanceHandler {
	return &BankBalanceHandler{svc: svc}
}

type bankBalanceRequest struct {
	Balance       string  `json:"balance"`
	Currency      string  `json:"currency"`
	EffectiveDate string  `json:"effectiveDate"`
	Notes         string  `json:"notes,omitempty"`
	BankAccountID *string `json:"bankAccountId,omitempty"`
}

func (h *BankBalanceHandler) Create(c echo.Context) error {
	var req bankBalanceRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		return WriteError(c, domain.NewSchemaError("balance must be a valid decimal string"))
	}
	date, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		return WriteError(c, domain.NewSchemaError("effectiveDate must be YYYY-MM-DD"))
	}
	userID, orgID := dctx(c).Stamp()
	bal := &domain.BankBalance{
		UserID: userID, OrganizationID: orgID, Balance: balance, Currency: req.Currency,
		EffectiveDate: date, Notes: req.Notes,
	}
	if req.BankAccountID != nil {
		if id, err := uuid.Parse(*req.BankAccountID); err == nil {
			bal.BankAccountID = &id
		}
	}
	created, err := h.svc.Create(c.Request().Context(), dctx(c), bal)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *BankBalanceHandler) Current(c echo.Context) error {
	bal, err := h.svc.Current(c.Request().Context(), dctx(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, bal)
}

func (h *BankBalanceHandler) List(c echo.Context) error {
	result, err := h.svc.List(c.Request().Context(), dctx(c), pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *BankBalanceHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ExpectedIncomeHandler exposes the per-month expected-income override.
type ExpectedIncomeHandler struct {
	svc *service.ExpectedIncomeService
}

func NewExpectedIncomeHandler(svc *service.ExpectedIncomeService) *ExpectedIncomeHandler {
	return &ExpectedIncomeHandler{svc: svc}
}

type expectedIncomeRequest struct {
	Month          string `json:"month"` // YYYY-MM
	ExpectedAmount string `json:"expectedAmount"`
	Notes          string `json:"notes,omitempty"`
}

func (h *ExpectedIncomeHandler) Upsert(c echo.Context) error {
	var req expectedIncomeRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		return WriteError(c, domain.NewSchemaError("month must be YYYY-MM"))
	}
	amount, err := decimal.NewFromString(req.ExpectedAmount)
	if err != nil {
		return WriteError(c, domain.NewSchemaError("expectedAmount must be a valid decimal string"))
	}
	userID, orgID := dctx(c).Stamp()
	ei := &domain.ExpectedIncome{UserID: userID, OrganizationID: orgID, Month: month, ExpectedAmount: amount, Notes: req.Notes}
	updated, err := h.svc.Upsert(c.Request().Context(), dctx(c), ei)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *ExpectedIncomeHandler) ForMonth(c echo.Context) error {
	month, err := time.Parse("2006-01", c.QueryParam("month"))
	if err != nil {
		return WriteError(c, domain.NewSchemaError("month must be YYYY-MM"))
	}
	ei, err := h.svc.ForMonth(c.Request().Context(), dctx(c), month)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, ei)
}

func (h *ExpectedIncomeHandler) List(c echo.Context) error {
	result, err := h.svc.List(c.Request().Context(), dctx(c), pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ExpectedIncomeHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
