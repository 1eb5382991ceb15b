package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryPattern tags the provenance of a transaction; the four provenance
// links below are mutually exclusive in meaning and used to dedupe
// projections (§3 Transaction).
type EntryPattern string

const (
	EntryPatternOneTime     EntryPattern = "one_time"
	EntryPatternRecurring   EntryPattern = "recurring"
	EntryPatternInstallment EntryPattern = "installment"
	EntryPatternLoanPayment EntryPattern = "loan_payment"
)

// Transaction is a single materialised money movement.
type Transaction struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"userId"`
	OrganizationID    *uuid.UUID       `json:"organizationId,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	Type              EntryType        `json:"type"`
	CategoryID        *uuid.UUID       `json:"categoryId,omitempty"`
	Description       string           `json:"description"`
	Date              time.Time        `json:"date"`
	EntryPattern      EntryPattern     `json:"entryPattern"`
	IsRecurring       bool             `json:"isRecurring"`
	RecurringSourceID *uuid.UUID       `json:"recurringSourceId,omitempty"`
	InstallmentID     *uuid.UUID       `json:"installmentId,omitempty"`
	InstallmentNumber *int             `json:"installmentNumber,omitempty"`
	LoanID            *uuid.UUID       `json:"loanId,omitempty"`
	CreditCardID      *uuid.UUID       `json:"creditCardId,omitempty"`
	BankAccountID     *uuid.UUID       `json:"bankAccountId,omitempty"`
	OriginalAmount    *decimal.Decimal `json:"originalAmount,omitempty"`
	OriginalCurrency  *string          `json:"originalCurrency,omitempty"`
	ExchangeRate      *decimal.Decimal `json:"exchangeRate,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Validate enforces amount/currency/type floors.
func (t *Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	switch t.Type {
	case EntryTypeIncome, EntryTypeExpense:
	default:
		return NewSchemaError("type must be income or expense")
	}
	desc, err := ValidateName(t.Description)
	if err != nil {
		return err
	}
	t.Description = desc
	return nil
}

// TransactionFilter is the List narrow-by-field filter (all optional).
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	Type       *EntryType
	CategoryID *uuid.UUID
	Pattern    *EntryPattern
}

// TransactionRepository persists transactions.
type TransactionRepository interface {
	Create(ctx context.Context, dctx DataContext, txn *Transaction) (*Transaction, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, dctx DataContext, filter TransactionFilter, page Page) (PagedResult[Transaction], error)
	Update(ctx context.Context, dctx DataContext, id uuid.UUID, patch func(*Transaction) error) (*Transaction, error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error

	// BulkCreate/BulkDelete support the supplemented bulk endpoints
	// (max 500 per call, per §9 Open Question resolution).
	BulkCreate(ctx context.Context, dctx DataContext, txns []*Transaction) ([]*Transaction, error)
	BulkDelete(ctx context.Context, dctx DataContext, ids []uuid.UUID) (int, error)

	// ListInRange fetches materialised transactions for the projection
	// and forecast engines; no pagination, used internally.
	ListInRange(ctx context.Context, dctx DataContext, start, end time.Time) ([]Transaction, error)

	// ExistsForSource is the idempotency-fingerprint query the automation
	// service uses instead of trusting a counter (§9).
	ExistsForSource(ctx context.Context, dctx DataContext, sourceKind EntryPattern, sourceID uuid.UUID, date time.Time) (bool, error)

	// ExportRows streams a flat, ownership-filtered row set for CSV/JSON
	// export (§1 non-goal: the serialiser itself, not the row source).
	ExportRows(ctx context.Context, dctx DataContext, filter TransactionFilter) ([]Transaction, error)
}
