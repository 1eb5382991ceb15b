package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingCycle is a closed enumeration (§3 Subscription).
type BillingCycle string

const (
	BillingMonthly    BillingCycle = "monthly"
	BillingQuarterly  BillingCycle = "quarterly"
	BillingSemiAnnual BillingCycle = "semi_annual"
	BillingAnnual     BillingCycle = "annual"
)

var billingCycleMonths = map[BillingCycle]int{
	BillingMonthly:    1,
	BillingQuarterly:  3,
	BillingSemiAnnual: 6,
	BillingAnnual:     12,
}

// Subscription is a recurring charge on a fixed billing cycle (§3).
type Subscription struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"userId"`
	OrganizationID   *uuid.UUID      `json:"organizationId,omitempty"`
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	BillingCycle     BillingCycle    `json:"billingCycle"`
	NextRenewalDate  time.Time       `json:"nextRenewalDate"`
	IsActive         bool            `json:"isActive"`
	PausedAt         *time.Time      `json:"pausedAt,omitempty"`
	AutoRenew        bool            `json:"autoRenew"`
	Provider         string          `json:"provider,omitempty"`
	CreditCardID     *uuid.UUID      `json:"creditCardId,omitempty"`
	CategoryID       *uuid.UUID      `json:"categoryId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (s *Subscription) Validate() error {
	name, err := ValidateName(s.Name)
	if err != nil {
		return err
	}
	s.Name = name
	if err := ValidateAmount(s.Amount); err != nil {
		return err
	}
	if err := ValidateCurrency(s.Currency); err != nil {
		return err
	}
	if _, ok := billingCycleMonths[s.BillingCycle]; !ok {
		return NewSchemaError("billing_cycle must be one of monthly, quarterly, semi_annual, annual")
	}
	return nil
}

// AdvanceRenewal returns the next renewal date after the current one.
func (s *Subscription) AdvanceRenewal() time.Time {
	months := billingCycleMonths[s.BillingCycle]
	y, m, d := s.NextRenewalDate.Date()
	total := int(m) - 1 + months
	year := y + total/12
	month := total%12 + 1
	day := ClampDayToMonth(year, month, d)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// SubscriptionRepository persists subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, dctx DataContext, sub *Subscription) (*Subscription, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*Subscription, error)
	List(ctx context.Context, dctx DataContext, activeOnly bool, page Page) (PagedResult[Subscription], error)
	Update(ctx context.Context, dctx DataContext, id uuid.UUID, patch func(*Subscription) error) (*Subscription, error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
	ListRenewingWithin(ctx context.Context, dctx DataContext, days int) ([]Subscription, error)
}

// CreditCard is a card used as a payment source for subscriptions/
// transactions (§3 CreditCard).
type CreditCard struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	Name           string     `json:"name"`
	LastFourDigits string     `json:"lastFourDigits"`
	CardNetwork    string     `json:"cardNetwork"`
	Issuer         string     `json:"issuer"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	BillingDay     int        `json:"billingDay"`
	Currency       string     `json:"currency"`
	IsActive       bool       `json:"isActive"`
	Color          string     `json:"color"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (c *CreditCard) Validate() error {
	name, err := ValidateName(c.Name)
	if err != nil {
		return err
	}
	c.Name = name
	if err := ValidateAmount(c.CreditLimit); err != nil {
		return err
	}
	if err := ValidateCurrency(c.Currency); err != nil {
		return err
	}
	if err := ValidateBillingDay(c.BillingDay); err != nil {
		return err
	}
	if err := ValidateColor(c.Color); err != nil {
		return err
	}
	if len(c.LastFourDigits) != 4 {
		return NewSchemaError("last_four_digits must be exactly 4 digits")
	}
	return nil
}

// CreditCardRepository persists credit cards.
type CreditCardRepository interface {
	Create(ctx context.Context, dctx DataContext, cc *CreditCard) (*CreditCard, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*CreditCard, error)
	List(ctx context.Context, dctx DataContext, page Page) (PagedResult[CreditCard], error)
	Update(ctx context.Context, dctx DataContext, id uuid.UUID, patch func(*CreditCard) error) (*CreditCard, error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
}
