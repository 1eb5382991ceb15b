package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/service"
)

// SubscriptionHandler exposes subscription CRUD, pause/resume, and the
// renewing-soon view.
type SubscriptionHandler struct {
	svc *service.SubscriptionService
}

func NewSubscriptionHandler(svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

type subscriptionRequest struct {
	Name            string  `json:"name"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency"`
	BillingCycle    string  `json:"billingCycle"`
	NextRenewalDate string  `json:"nextRenewalDate"`
	AutoRenew       bool    `json:"autoRenew"`
	Provider        string  `json:"provider,omitempty"`
	CreditCardID    *string `json:"creditCardId,omitempty"`
	CategoryID      *string `json:"categoryId,omitempty"`
}

func (r subscriptionRequest) toDomain() (*domain.Subscription, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, domain.NewSchemaError("amount must be a valid decimal string")
	}
	next, err := time.Parse("2006-01-02", r.NextRenewalDate)
	if err != nil {
		return nil, domain.NewSchemaError("nextRenewalDate must be YYYY-MM-DD")
	}
	sub := &domain.Subscription{
		Name: r.Name, Amount: amount, Currency: r.Currency, BillingCycle: domain.BillingCycle(r.BillingCycle),
		NextRenewalDate: next, AutoRenew: r.AutoRenew, Provider: r.Provider, IsActive: true,
	}
	if r.CreditCardID != nil {
		id, err := uuid.Parse(*r.CreditCardID)
		if err != nil {
			return nil, domain.NewSchemaError("creditCardId must be a valid id")
		}
		sub.CreditCardID = &id
	}
	if r.CategoryID != nil {
		id, err := uuid.Parse(*r.CategoryID)
		if err != nil {
			return nil, domain.NewSchemaError("categoryId must be a valid id")
		}
		sub.CategoryID = &id
	}
	return sub, nil
}

func (h *SubscriptionHandler) Create(c echo.Context) error {
	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	sub, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	created, err := h.svc.Create(c.Request().Context(), dctx(c), sub)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *SubscriptionHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	sub, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("active_only") == "true"
	result, err := h.svc.List(c.Request().Context(), dctx(c), activeOnly, pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *SubscriptionHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req subscriptionRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	patch, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), id, func(sub *domain.Subscription) error {
		sub.Name, sub.Amount, sub.Currency, sub.BillingCycle = patch.Name, patch.Amount, patch.Currency, patch.BillingCycle
		sub.NextRenewalDate, sub.AutoRenew, sub.Provider = patch.NextRenewalDate, patch.AutoRenew, patch.Provider
		sub.CreditCardID, sub.CategoryID = patch.CreditCardID, patch.CategoryID
		return nil
	})
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *SubscriptionHandler) Pause(c echo.Context) error {
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

func (h *SubscriptionHandler) Resume(c echo.Context) error {
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

func (h *SubscriptionHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SubscriptionHandler) DueRenewals(c echo.Context) error {
	days, err := strconv.Atoi(c.QueryParam("days"))
	if err != nil || days <= 0 {
		days = 30
	}
	result, err := h.svc.DueRenewals(c.Request().Context(), dctx(c), days)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// CreditCardHandler exposes credit-card CRUD.
type CreditCardHandler struct {
	svc *service.CreditCardService
}

func NewCreditCardHandler(svc *service.CreditCardService) *CreditCardHandler {
	return &CreditCardHandler{svc: svc}
}

type creditCardRequest struct {
	Name           string `json:"name"`
	LastFourDigits string `json:"lastFourDigits"`
	CardNetwork    string `json:"cardNetwork"`
	Issuer         string `json:"issuer"`
	CreditLimit    string `json:"creditLimit"`
	BillingDay     int    `json:"billingDay"`
	Currency       string `json:"currency"`
	Color          string `json:"color"`
}

func (r creditCardRequest) toDomain() (*domain.CreditCard, error) {
	limit, err := decimal.NewFromString(r.CreditLimit)
	if err != nil {
		return nil, domain.NewSchemaError("creditLimit must be a valid decimal string")
	}
	return &domain.CreditCard{
		Name: r.Name, LastFourDigits: r.LastFourDigits, CardNetwork: r.CardNetwork, Issuer: r.Issuer,
		CreditLimit: limit, BillingDay: r.BillingDay, Currency: r.Currency, Color: r.Color, IsActive: true,
	}, nil
}

func (h *CreditCardHandler) Create(c echo.Context) error {
	var req creditCardRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	cc, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	created, err := h.svc.Create(c.Request().Context(), dctx(c), cc)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *CreditCardHandler) Get(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	cc, err := h.svc.Get(c.Request().Context(), dctx(c), id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, cc)
}

func (h *CreditCardHandler) List(c echo.Context) error {
	result, err := h.svc.List(c.Request().Context(), dctx(c), pageFromQuery(c))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *CreditCardHandler) Update(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	var req creditCardRequest
	if err := c.Bind(&req); err != nil {
		return WriteError(c, domain.NewSchemaError("invalid request body"))
	}
	patch, err := req.toDomain()
	if err != nil {
		return WriteError(c, err)
	}
	updated, err := h.svc.Update(c.Request().Context(), dctx(c), id, func(cc *domain.CreditCard) error {
		cc.Name, cc.LastFourDigits, cc.CardNetwork, cc.Issuer = patch.Name, patch.LastFourDigits, patch.CardNetwork, patch.Issuer
		cc.CreditLimit, cc.BillingDay, cc.Currency, cc.Color = patch.CreditLimit, patch.BillingDay, patch.Currency, patch.Color
		return nil
	})
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *CreditCardHandler) Delete(c echo.Context) error {
	id, err := bindID(c)
	if err != nil {
		return WriteError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), dctx(c), id); err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
