package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/amortization"
)

// LoanStatus is a closed enumeration (§3 Loan).
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanPaused    LoanStatus = "paused"
)

// Loan is an amortising loan tracked by payments_made/remaining_balance.
type Loan struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"userId"`
	OrganizationID   *uuid.UUID      `json:"organizationId,omitempty"`
	Name             string          `json:"name"`
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	MonthlyPayment   decimal.Decimal `json:"monthlyPayment"`
	InterestRate     decimal.Decimal `json:"interestRate"` // annual percentage
	TotalPayments    int             `json:"totalPayments"`
	PaymentsMade     int             `json:"paymentsMade"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	Status           LoanStatus      `json:"status"`
	StartDate        time.Time       `json:"startDate"`
	DayOfMonth       int             `json:"dayOfMonth"`
	CategoryID       *uuid.UUID      `json:"categoryId,omitempty"`
	Currency         string          `json:"currency"`
	OriginalCurrency *string         `json:"originalCurrency,omitempty"`
	ExchangeRate     *decimal.Decimal `json:"exchangeRate,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Validate enforces the entity-store floors plus the amortisation
// sanity check from §4.C (monthly_payment must cover first interest).
func (l *Loan) Validate() error {
	name, err := ValidateName(l.Name)
	if err != nil {
		return err
	}
	l.Name = name
	if err := ValidateAmount(l.OriginalAmount); err != nil {
		return err
	}
	if err := ValidateAmount(l.MonthlyPayment); err != nil {
		return err
	}
	if err := ValidateCurrency(l.Currency); err != nil {
		return err
	}
	if err := ValidateDayOfMonth(l.DayOfMonth); err != nil {
		return err
	}
	if l.TotalPayments <= 0 {
		return NewSchemaError("total_payments must be positive")
	}
	if l.InterestRate.IsNegative() {
		return NewSchemaError("interest_rate must be non-negative")
	}
	if err := l.AmortizationParams().ValidateAmortizes(); err != nil {
		return NewInvariantError(err.Error())
	}
	return nil
}

// AmortizationParams projects the loan into the pure amortisation input.
func (l *Loan) AmortizationParams() amortization.Params {
	return amortization.Params{
		OriginalAmount:     l.OriginalAmount,
		MonthlyPayment:     l.MonthlyPayment,
		InterestRateAnnual: l.InterestRate,
		TotalPayments:      l.TotalPayments,
		StartDate:          l.StartDate,
		DayOfMonth:         l.DayOfMonth,
		PaymentsMade:       l.PaymentsMade,
	}
}

// AdmitsMonth mirrors Installment.AdmitsMonth for the projection
// engine: the k-th month from start_date must be within
// [1, total_payments] and not yet paid.
func (l *Loan) AdmitsMonth(year, month int) (k int, ok bool) {
	y, m, _ := l.StartDate.Date()
	monthsFromStart := (year-int(y))*12 + (month - int(m))
	k = monthsFromStart + 1
	if k < 1 || k > l.TotalPayments {
		return 0, false
	}
	if k <= l.PaymentsMade {
		return k, false
	}
	return k, true
}

// OccurrenceDate returns the due date in (year, month): day_of_month
// clamped to the length of that month.
func (l *Loan) OccurrenceDate(year, month int) time.Time {
	day := ClampDayToMonth(year, month, l.DayOfMonth)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// LoanRepository persists loans.
type LoanRepository interface {
	Create(ctx context.Context, dctx DataContext, loan *Loan) (*Loan, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*Loan, error)
	List(ctx context.Context, dctx DataContext, page Page) (PagedResult[Loan], error)
	Update(ctx context.Context, dctx DataContext, id uuid.UUID, patch func(*Loan) error) (*Loan, error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
	ListActive(ctx context.Context, dctx DataContext) ([]Loan, error)
	ListDueOn(ctx context.Context, dctx DataContext, day int) ([]Loan, error)
	// LockForUpdate acquires a row lock for the payment coordinator (§4.J).
	LockForUpdate(ctx context.Context, dctx DataContext, id uuid.UUID) (*Loan, error)
}
