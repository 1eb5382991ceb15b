package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus is derived, not stored: completed when all paid,
// overdue when started-and-behind, pending when future-start, else
// active (§4.J).
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentActive    InstallmentStatus = "active"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentCompleted InstallmentStatus = "completed"
)

// Installment is a fixed-count payment plan; the last scheduled
// occurrence absorbs the rounding residue so Σ payments = total_amount
// exactly (§3 Installment).
type Installment struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"userId"`
	OrganizationID    *uuid.UUID      `json:"organizationId,omitempty"`
	Name              string          `json:"name"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	NumberOfPayments  int             `json:"numberOfPayments"`
	PaymentsCompleted int             `json:"paymentsCompleted"`
	Type              EntryType       `json:"type"`
	CategoryID        *uuid.UUID      `json:"categoryId,omitempty"`
	StartDate         time.Time       `json:"startDate"`
	DayOfMonth        int             `json:"dayOfMonth"`
	Currency          string          `json:"currency"`
	OriginalAmount    *decimal.Decimal `json:"originalAmount,omitempty"`
	OriginalCurrency  *string         `json:"originalCurrency,omitempty"`
	ExchangeRate      *decimal.Decimal `json:"exchangeRate,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// MonthlyAmount returns ceil_to_cent(total_amount / number_of_payments).
func (i *Installment) MonthlyAmount() decimal.Decimal {
	if i.NumberOfPayments == 0 {
		return decimal.Zero
	}
	raw := i.TotalAmount.Div(decimal.NewFromInt(int64(i.NumberOfPayments)))
	return raw.Mul(decimal.NewFromInt(100)).Ceil().Div(decimal.NewFromInt(100))
}

// PaymentAmountFor returns the per-occurrence amount for the k-th
// payment (1-indexed); the last payment absorbs the rounding residue so
// the sum is exactly TotalAmount.
func (i *Installment) PaymentAmountFor(k int) decimal.Decimal {
	monthly := i.monthlyFloor()
	if k == i.NumberOfPayments {
		paid := monthly.Mul(decimal.NewFromInt(int64(i.NumberOfPayments - 1)))
		return i.TotalAmount.Sub(paid)
	}
	return monthly
}

// monthlyFloor is total/n truncated (not rounded up) to 2 decimals — the
// building block PaymentAmountFor uses so the residue lands on the last
// row instead of being double-counted.
func (i *Installment) monthlyFloor() decimal.Decimal {
	if i.NumberOfPayments == 0 {
		return decimal.Zero
	}
	return i.TotalAmount.Div(decimal.NewFromInt(int64(i.NumberOfPayments))).Truncate(2)
}

// Status derives the installment's status relative to today.
func (i *Installment) Status(today time.Time) InstallmentStatus {
	if i.PaymentsCompleted >= i.NumberOfPayments {
		return InstallmentCompleted
	}
	if i.StartDate.After(today) {
		return InstallmentPending
	}
	nextDue := i.OccurrenceDate(i.PaymentsCompleted + 1)
	if nextDue.Before(today) {
		return InstallmentOverdue
	}
	return InstallmentActive
}

// OccurrenceDate returns the due date of the k-th payment (1-indexed).
func (i *Installment) OccurrenceDate(k int) time.Time {
	y, m, _ := i.StartDate.Date()
	total := int(m) - 1 + (k - 1)
	year := y + total/12
	month := total%12 + 1
	day := ClampDayToMonth(year, month, i.DayOfMonth)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// AdmitsMonth reports whether month k (1-indexed from start_date) falls
// in (year, month) and hasn't been paid yet (§4.D).
func (i *Installment) AdmitsMonth(year, month int) (k int, ok bool) {
	occY, occM, _ := i.StartDate.Date()
	monthsFromStart := (year-int(occY))*12 + (month - int(occM))
	k = monthsFromStart + 1
	if k < 1 || k > i.NumberOfPayments {
		return 0, false
	}
	if k <= i.PaymentsCompleted {
		return k, false
	}
	return k, true
}

func (i *Installment) Validate() error {
	name, err := ValidateName(i.Name)
	if err != nil {
		return err
	}
	i.Name = name
	if err := ValidateAmount(i.TotalAmount); err != nil {
		return err
	}
	if err := ValidateCurrency(i.Currency); err != nil {
		return err
	}
	if err := ValidateDayOfMonth(i.DayOfMonth); err != nil {
		return err
	}
	if i.NumberOfPayments < 1 || i.NumberOfPayments > 360 {
		return NewSchemaError("number_of_payments must be between 1 and 360")
	}
	return nil
}

// InstallmentRepository persists installments.
type InstallmentRepository interface {
	Create(ctx context.Context, dctx DataContext, inst *Installment) (*Installment, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*Installment, error)
	List(ctx context.Context, dctx DataContext, page Page) (PagedResult[Installment], error)
	Update(ctx context.Context, dctx DataContext, id uuid.UUID, patch func(*Installment) error) (*Installment, error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
	ListOutstanding(ctx context.Context, dctx DataContext) ([]Installment, error)
	ListDueOn(ctx context.Context, dctx DataContext, day int) ([]Installment, error)
	// LockForUpdate acquires a row lock for the payment coordinator (§4.J).
	LockForUpdate(ctx context.Context, dctx DataContext, id uuid.UUID) (*Installment, error)
}
