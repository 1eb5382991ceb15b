package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/service"
)

// ApprovalHandler exposes the org expense approval workflow.
type ApprovalHandler struct {
	svc *service.ApprovalService
}

func NewApprovalHandler(svc *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

type approvalRequest struct {
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	CategoryID  *string `json:"categoryId,omitempty"`
	Description string  `json:"description"`
}

func (h *ApprovalHandler) Submit(c echo.Context) error {
	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return WriteError(c, domain.NewSchemaError("amount must be a valid decimal string"))
	}
	approval := &domain.ExpenseApproval{Amount: amount, Currency: req.Currency, Description: req.Description}
	if req.CategoryID != nil {
		if id, err := uuid.Parse(*req.CategoryID); err == nil {
			approval.CategoryID = &id
		}
	}
	created, err := h.svc.Submit(c.Request().Context(), dctx(c), approval)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *ApprovalHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	approval, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, approval)
}

func (h *ApprovalHandler) List(c echo.Context) error {
	var status *domain.ApprovalStatus
	if v := c.QueryParam("status"); v != "" {
		s := domain.ApprovalStatus(v)
		status = &s
	}
	result, err := h.svc.List(c.Request().Context(), dctx(c), status, pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *ApprovalHandler) Approve(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	resolved, err := h.svc.Approve(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *ApprovalHandler) Reject(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	resolved, err := h.svc.Reject(c.Request().Context(), dctx(c), id, req.Reason)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}
