package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FixedSchedule is a recurring income/expense with a fixed amount and
// day-of-month (§3 FixedSchedule).
type FixedSchedule struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	OrganizationID *uuid.UUID      `json:"organizationId,omitempty"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Type           EntryType       `json:"type"`
	CategoryID     *uuid.UUID      `json:"categoryId,omitempty"`
	DayOfMonth     int             `json:"dayOfMonth"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	IsActive       bool            `json:"isActive"`
	PausedAt       *time.Time      `json:"pausedAt,omitempty"`
	ResumedAt      *time.Time      `json:"resumedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Validate enforces amount/day/date-order floors.
func (f *FixedSchedule) Validate() error {
	name, err := ValidateName(f.Name)
	if err != nil {
		return err
	}
	f.Name = name
	if err := ValidateAmount(f.Amount); err != nil {
		return err
	}
	if err := ValidateCurrency(f.Currency); err != nil {
		return err
	}
	if err := ValidateDayOfMonth(f.DayOfMonth); err != nil {
		return err
	}
	if f.EndDate != nil && f.EndDate.Before(f.StartDate) {
		return NewInvariantError("end_date must be on or after start_date")
	}
	return nil
}

// AdmitsMonth reports whether this schedule is due in the given month,
// per the projection rule of §4.D: start_date <= month_end and (end_date
// absent or end_date >= month_start) and is_active.
func (f *FixedSchedule) AdmitsMonth(monthStart, monthEnd time.Time) bool {
	if !f.IsActive {
		return false
	}
	if f.StartDate.After(monthEnd) {
		return false
	}
	if f.EndDate != nil && f.EndDate.Before(monthStart) {
		return false
	}
	return true
}

// OccurrenceDate returns the emission date within (year, month), clamped
// to the last day of that month (§4.D).
func (f *FixedSchedule) OccurrenceDate(year, month int) time.Time {
	day := ClampDayToMonth(year, month, f.DayOfMonth)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// FixedScheduleRepository persists fixed schedules.
type FixedScheduleRepository interface {
	Create(ctx context.Context, dctx DataContext, fs *FixedSchedule) (*FixedSchedule, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*FixedSchedule, error)
	List(ctx context.Context, dctx DataContext, activeOnly bool, page Page) (PagedResult[FixedSchedule], error)
	Update(ctx context.Context, dctx DataContext, id uuid.UUID, patch func(*FixedSchedule) error) (*FixedSchedule, error)
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
	ListActive(ctx context.Context, dctx DataContext) ([]FixedSchedule, error)
	ListDueOn(ctx context.Context, dctx DataContext, day int) ([]FixedSchedule, error)
}
