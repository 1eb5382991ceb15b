package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankBalance is a point-in-time balance snapshot; at most one row per
// owner_scope has IsCurrent=true (§3 BankBalance).
type BankBalance struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       string          `json:"currency"`
	EffectiveDate  time.Time       `json:"effectiveDate"`
	IsCurrent      bool            `json:"isCurrent"`
	Notes          string          `json:"notes,omitempty"`
	BankAccountID  *uuid.UUID      `json:"bankAccountId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (b *BankBalance) Validate() error {
	if err := ValidateCurrency(b.Currency); err != nil {
		return err
	}
	if len(b.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// BankBalanceRepository persists bank balances. Create auto-flips any
// other current row to false for the same owner_scope in the same
// transaction (unique (user_id, effective_date) per §6).
type BankBalanceRepository interface {
	Create(ctx context.Context, dctx DataContext, bal *BankBalance) (*BankBalance, error)
	GetCurrent(ctx context.Context, dctx DataContext) (*BankBalance, error)
	List(ctx context.Context, dctx DataContext, page Page) (PagedResult[BankBalance], error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
}

// ExpectedIncome is a per-month expected-income override (§3).
type ExpectedIncome struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	Month          time.Time       `json:"month"` // first-of-month
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (e *ExpectedIncome) Validate() error {
	if err := ValidateAmount(e.ExpectedAmount); err != nil {
		return err
	}
	if len(e.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// ExpectedIncomeRepository persists expected-income rows, unique on
// (owner_scope, month).
type ExpectedIncomeRepository interface {
	Upsert(ctx context.Context, dctx DataContext, ei *ExpectedIncome) (*ExpectedIncome, error)
	GetForMonth(ctx context.Context, dctx DataContext, month time.Time) (*ExpectedIncome, error)
	List(ctx context.Context, dctx DataContext, page Page) (PagedResult[ExpectedIncome], error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
}
