package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/csvexport"
	"fortunaflow/internal/domain"
	"fortunaflow/internal/service"
)

// TransactionHandler exposes transaction CRUD, bulk operations, and
// export (§4.A, §9 Open Question: bulk caps at 500, one audit row each).
type TransactionHandler struct {
	svc         *service.TransactionService
	categorySvc *service.CategoryService
}

func NewTransactionHandler(svc *service.TransactionService, categorySvc *service.CategoryService) *TransactionHandler {
	return &TransactionHandler{svc: svc, categorySvc: categorySvc}
}

type transactionRequest struct {
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Type        string  `json:"type"`
	CategoryID  *string `json:"categoryId,omitempty"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

func (r transactionRequest) toDomain() (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, domain.NewSchemaError("amount must be a valid decimal string")
	}
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, domain.NewSchemaError("date must be YYYY-MM-DD")
	}
	txn := &domain.Transaction{
		Amount: amount, Currency: r.Currency, Type: domain.EntryType(r.Type),
		Description: r.Description, Date: date,
	}
	if r.CategoryID != nil {
		id, err := uuid.Parse(*r.CategoryID)
		if err != nil {
			return nil, domain.NewSchemaError("categoryId must be a valid id")
		}
		txn.CategoryID = &id
	}
	return txn, nil
}

func (h *TransactionHandler) Create(c echo.Context) error {
	var req transactionRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	txn, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	userID, orgID := dctx(c).Stamp()
	txn.UserID, txn.OrganizationID = userID, orgID
	created, err := h.svc.Create(c.Request().Context(), dctx(c), txn)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *TransactionHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	txn, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, txn)
}

func (h *TransactionHandler) List(c echo.Context) error {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		return WriteError(c, err)
	}
	result, err := h.svc.List(c.Request().Context(), dctx(c), filter, pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *TransactionHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req transactionRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	patch, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), id, func(t *domain.Transaction) error {
		t.Amount, t.Currency, t.Type, t.Description, t.Date = patch.Amount, patch.Currency, patch.Type, patch.Description, patch.Date
		t.CategoryID = patch.CategoryID
		return nil
	})
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *TransactionHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type bulkCreateRequest struct {
	Transactions []transactionRequest `json:"transactions"`
}

func (h *TransactionHandler) BulkCreate(c echo.Context) error {
	var req bulkCreateRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	userID, orgID := dctx(c).Stamp()
	txns := make([]*domain.Transaction, 0, len(req.Transactions))
	for _, r := range req.Transactions {
		t, err := r.toDomain()
		if err != nil {
			return WriteError(c, err)
		}
		t.UserID, t.OrganizationID = userID, orgID
		txns = append(txns, t)
	}
	created, err := h.svc.BulkCreate(c.Request().Context(), dctx(c), txns)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *TransactionHandler) BulkDelete(c echo.Context) error {
	var req bulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return WriteError(c, domain.NewSchemaError("ids must be valid ids"))
		}
		ids = append(ids, id)
	}
	count, err := h.svc.BulkDelete(c.Request().Context(), dctx(c), ids)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": count})
}

type bulkUpdateRequest struct {
	Updates []struct {
		ID     string             `json:"id"`
		Fields transactionRequest `json:"fields"`
	} `json:"updates"`
}

func (h *TransactionHandler) BulkUpdate(c echo.Context) error {
	var req bulkUpdateRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	items := make([]service.BulkUpdateItem, 0, len(req.Updates))
	for _, u := range req.Updates {
		id, err := uuid.Parse(u.ID)
		if err != nil {
			return WriteError(c, domain.NewSchemaError("id must be a valid id"))
		}
		patch, err := u.Fields.toDomain()
		if err != nil {
			return WriteError(c, err)
		}
		items = append(items, service.BulkUpdateItem{ID: id, Patch: func(t *domain.Transaction) error {
			t.Amount, t.Currency, t.Type, t.Description, t.Date = patch.Amount, patch.Currency, patch.Type, patch.Description, patch.Date
			t.CategoryID = patch.CategoryID
			return nil
		}})
	}
	results, errs := h.svc.BulkUpdate(c.Request().Context(), dctx(c), items)
	if len(results) == 1 && errs[0] != nil {
		return WriteError(c, errs[0])
	}
	type outcome struct {
		Transaction *domain.Transaction `json:"transaction,omitempty"`
		Error       string              `json:"error,omitempty"`
	}
	out := make([]outcome, len(results))
	for i := range results {
		if errs[i] != nil {
			out[i] = outcome{Error: errs[i].Error()}
			continue
		}
		out[i] = outcome{Transaction: results[i]}
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TransactionHandler) ExportCSV(c echo.Context) error {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		return WriteError(c, err)
	}
	rows, err := h.svc.Export(c.Request().Context(), dctx(c), filter)
	if err != nil {
		return WriteError(c, err)
	}
	lookup := func(id *uuid.UUID) (string, string) {
		if id == nil || h.categorySvc == nil {
			return "", ""
		}
		cat, err := h.categorySvc.Get(c.Request().Context(), dctx(c), *id)
		if err != nil {
			return "", ""
		}
		return cat.Name, cat.NameHe
	}
	body, err := csvexport.TransactionsCSV(rows, lookup)
	if err != nil {
		return WriteError(c, domain.NewDependencyError("failed to render csv", err))
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	return c.Blob(http.StatusOK, "text/csv", body)
}

func parseTransactionFilter(c echo.Context) (domain.TransactionFilter, error) {
	var filter domain.TransactionFilter
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, domain.NewSchemaError("from must be YYYY-MM-DD")
		}
		filter.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, domain.NewSchemaError("to must be YYYY-MM-DD")
		}
		filter.To = &t
	}
	if v := c.QueryParam("type"); v != "" {
		et := domain.EntryType(v)
		filter.Type = &et
	}
	if v := c.QueryParam("pattern"); v != "" {
		ep := domain.EntryPattern(v)
		filter.Pattern = &ep
	}
	catID, err := bindOptionalUUIDQuery(c, "category_id")
	if err != nil {
		return filter, err
	}
	filter.CategoryID = catID
	return filter, nil
}
