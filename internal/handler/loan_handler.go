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

// LoanHandler exposes loan CRUD, pause/resume, amortisation schedule,
// and payment recording.
type LoanHandler struct {
	svc     *service.LoanService
	payment *service.PaymentCoordinator
}

func NewLoanHandler(svc *service.LoanService, payment *service.PaymentCoordinator) *LoanHandler {
	return &LoanHandler{svc: svc, payment: payment}
}

type loanRequest struct {
	Name           string  `json:"name"`
	OriginalAmount string  `json:"originalAmount"`
	MonthlyPayment string  `json:"monthlyPayment"`
	InterestRate   string  `json:"interestRate"`
	TotalPayments  int     `json:"totalPayments"`
	StartDate      string  `json:"startDate"`
	DayOfMonth     int     `json:"dayOfMonth"`
	CategoryID     *string `json:"categoryId,omitempty"`
	Currency       string  `json:"currency"`
}

func (r loanRequest) toDomain() (*domain.Loan, error) {
	original, err := decimal.NewFromString(r.OriginalAmount)
	if err != nil {
		return nil, domain.NewSchemaError("originalAmount must be a valid decimal string")
	}
	monthly, err := decimal.NewFromString(r.MonthlyPayment)
	if err != nil {
		return nil, domain.NewSchemaError("monthlyPayment must be a valid decimal string")
	}
	rate, err := decimal.NewFromString(r.InterestRate)
	if err != nil {
		return nil, domain.NewSchemaError("interestRate must be a valid decimal string")
	}
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, domain.NewSchemaError("startDate must be YYYY-MM-DD")
	}
	loan := &domain.Loan{
		Name: r.Name, OriginalAmount: original, MonthlyPayment: monthly, InterestRate: rate,
		TotalPayments: r.TotalPayments, StartDate: start, DayOfMonth: r.DayOfMonth, Currency: r.Currency,
	}
	if r.CategoryID != nil {
		id, err := uuid.Parse(*r.CategoryID)
		if err != nil {
			return nil, domain.NewSchemaError("categoryId must be a valid id")
		}
		loan.CategoryID = &id
	}
	return loan, nil
}

func (h *LoanHandler) Create(c echo.Context) error {
	var req loanRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	loan, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	created, err := h.svc.Create(c.Request().Context(), dctx(c), loan)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *LoanHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	loan, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *LoanHandler) List(c echo.Context) error {
	result, err := h.svc.List(c.Request().Context(), dctx(c), pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *LoanHandler) Active(c echo.Context) error {
	result, err := h.svc.Active(c.Request().Context(), dctx(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *LoanHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req loanRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	patch, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), id, func(l *domain.Loan) error {
		l.Name, l.OriginalAmount, l.MonthlyPayment, l.InterestRate = patch.Name, patch.OriginalAmount, patch.MonthlyPayment, patch.InterestRate
		l.TotalPayments, l.StartDate, l.DayOfMonth = patch.TotalPayments, patch.StartDate, patch.DayOfMonth
		l.CategoryID, l.Currency = patch.CategoryID, patch.Currency
		return nil
	})
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *LoanHandler) Pause(c echo.Context) error {
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

func (h *LoanHandler) Resume(c echo.Context) error {
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

func (h *LoanHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *LoanHandler) Schedule(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	rows, err := h.svc.Schedule(c.Request().Context(), dctx(c), id, time.Now().UTC())
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

type loanPaymentRequest struct {
	Amount string `json:"amount"`
}

func (h *LoanHandler) RecordPayment(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req loanPaymentRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return WriteError(c, domain.NewSchemaError("amount must be a valid decimal string"))
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return WriteError(c, err)
	}
	txn, loan, err := h.payment.RecordLoanPayment(c.Request().Context(), dctx(c), id, amount)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"transaction": txn, "loan": loan})
}

func (h *LoanHandler) ReversePayment(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	loan, err := h.payment.ReverseLoanPayment(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, loan)
}
