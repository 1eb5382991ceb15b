package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
)

const (
	DefaultForecastMonths = 12
	DefaultForecastWeeks  = 12
)

// MonthForecast is one rolled-up month of ComputeMonthlyForecast (§4.E).
type MonthForecast struct {
	Month               time.Time
	Opening             decimal.Decimal
	FixedIncome         decimal.Decimal
	FixedExpenses       decimal.Decimal
	InstallmentPayments decimal.Decimal
	LoanPayments        decimal.Decimal
	ExpectedIncome      decimal.Decimal
	OneTimeIncome       decimal.Decimal
	OneTimeExpenses     decimal.Decimal
	TotalIncome         decimal.Decimal
	TotalExpenses       decimal.Decimal
	Net                 decimal.Decimal
	Closing             decimal.Decimal
}

// MonthlyForecast is the full output of ComputeMonthlyForecast.
type MonthlyForecast struct {
	CurrentBalance     decimal.Decimal
	Months             []MonthForecast
	HasNegativeMonths  bool
	FirstNegativeMonth *time.Time
}

// WeekForecast is one rolled-up week of ComputeWeeklyForecast.
type WeekForecast struct {
	WeekStart time.Time
	WeekEnd   time.Time
	Opening   decimal.Decimal
	Income    decimal.Decimal
	Expenses  decimal.Decimal
	Net       decimal.Decimal
	Closing   decimal.Decimal
}

// WeeklyForecast is the full output of ComputeWeeklyForecast.
type WeeklyForecast struct {
	CurrentBalance     decimal.Decimal
	Weeks              []WeekForecast
	HasNegativeWeeks   bool
	FirstNegativeWeek  *time.Time
}

// ForecastEngine walks forward month-by-month (or week-by-week) producing
// opening/closing balances, net change, and bucketed breakdowns, sourcing
// from the projection service, the ExpectedIncome table, and the current
// bank balance (§4.E).
type ForecastEngine struct {
	projection     *ProjectionService
	bankBalanceRepo domain.BankBalanceRepository
	expectedIncome domain.ExpectedIncomeRepository
	now            func() time.Time
}

func NewForecastEngine(
	projection *ProjectionService,
	bankBalanceRepo domain.BankBalanceRepository,
	expectedIncome domain.ExpectedIncomeRepository,
) *ForecastEngine {
	return &ForecastEngine{
		projection:      projection,
		bankBalanceRepo: bankBalanceRepo,
		expectedIncome:  expectedIncome,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// currentBalance returns the current bank balance, or zero when none has
// been recorded yet.
func (e *ForecastEngine) currentBalance(ctx context.Context, dctx domain.DataContext) (decimal.Decimal, string, error) {
	bal, err := e.bankBalanceRepo.GetCurrent(ctx, dctx)
	if err != nil {
		if de, ok := domain.AsDomainError(err); ok && de.Kind == domain.KindNotFound {
			return decimal.Zero, "", nil
		}
		return decimal.Zero, "", err
	}
	return bal.Balance, bal.Currency, nil
}

// ComputeMonthlyForecast projects `months` months forward from the
// current month (§4.E).
func (e *ForecastEngine) ComputeMonthlyForecast(ctx context.Context, dctx domain.DataContext, months int) (*MonthlyForecast, error) {
	if months <= 0 {
		months = DefaultForecastMonths
	}

	current, base, err := e.currentBalance(ctx, dctx)
	if err != nil {
		return nil, err
	}

	today := e.now()
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	result := &MonthlyForecast{CurrentBalance: current, Months: make([]MonthForecast, 0, months)}
	running := current

	for i := 0; i < months; i++ {
		monthStart := firstOfMonth.AddDate(0, i, 0)
		monthEnd := monthStart.AddDate(0, 1, -1)

		mf := MonthForecast{
			Month: monthStart, Opening: running,
			FixedIncome: decimal.Zero, FixedExpenses: decimal.Zero, InstallmentPayments: decimal.Zero,
			LoanPayments: decimal.Zero, ExpectedIncome: decimal.Zero, OneTimeIncome: decimal.Zero, OneTimeExpenses: decimal.Zero,
		}

		occs, err := e.projection.Expand(ctx, dctx, monthStart, monthEnd, base)
		if err != nil {
			return nil, err
		}
		for _, o := range occs {
			switch {
			case o.Provenance == "fixed" && o.Type == domain.EntryTypeIncome:
				mf.FixedIncome = mf.FixedIncome.Add(o.Amount)
			case o.Provenance == "fixed":
				mf.FixedExpenses = mf.FixedExpenses.Add(o.Amount)
			case o.Provenance == "installment":
				mf.InstallmentPayments = mf.InstallmentPayments.Add(o.Amount)
			case o.Provenance == "loan":
				mf.LoanPayments = mf.LoanPayments.Add(o.Amount)
			case o.Provenance == "one_time" && o.Type == domain.EntryTypeIncome:
				mf.OneTimeIncome = mf.OneTimeIncome.Add(o.Amount)
			case o.Provenance == "one_time":
				mf.OneTimeExpenses = mf.OneTimeExpenses.Add(o.Amount)
			}
		}

		ei, err := e.expectedIncome.GetForMonth(ctx, dctx, monthStart)
		if err != nil {
			if de, ok := domain.AsDomainError(err); !ok || de.Kind != domain.KindNotFound {
				return nil, err
			}
		} else {
			mf.ExpectedIncome = ei.ExpectedAmount
		}

		mf.TotalIncome = mf.FixedIncome.Add(mf.ExpectedIncome).Add(mf.OneTimeIncome)
		mf.TotalExpenses = mf.FixedExpenses.Add(mf.InstallmentPayments).Add(mf.LoanPayments).Add(mf.OneTimeExpenses)
		mf.Net = mf.TotalIncome.Sub(mf.TotalExpenses)
		mf.Closing = mf.Opening.Add(mf.Net)

		if mf.Closing.IsNegative() && result.FirstNegativeMonth == nil {
			m := monthStart
			result.FirstNegativeMonth = &m
			result.HasNegativeMonths = true
		}

		result.Months = append(result.Months, mf)
		running = mf.Closing
	}

	return result, nil
}

// ComputeWeeklyForecast is the symmetric weekly projection, default 12
// weeks, matching day_of_month occurrences to the calendar week they fall
// in day-by-day.
func (e *ForecastEngine) ComputeWeeklyForecast(ctx context.Context, dctx domain.DataContext, weeks int) (*WeeklyForecast, error) {
	if weeks <= 0 {
		weeks = DefaultForecastWeeks
	}

	current, base, err := e.currentBalance(ctx, dctx)
	if err != nil {
		return nil, err
	}

	today := e.now()
	weekStart := startOfWeek(today)

	result := &WeeklyForecast{CurrentBalance: current, Weeks: make([]WeekForecast, 0, weeks)}
	running := current

	for i := 0; i < weeks; i++ {
		wStart := weekStart.AddDate(0, 0, i*7)
		wEnd := wStart.AddDate(0, 0, 6)

		occs, err := e.projection.Expand(ctx, dctx, wStart, wEnd, base)
		if err != nil {
			return nil, err
		}

		wf := WeekForecast{WeekStart: wStart, WeekEnd: wEnd, Opening: running, Income: decimal.Zero, Expenses: decimal.Zero}
		for _, o := range occs {
			if o.Type == domain.EntryTypeIncome {
				wf.Income = wf.Income.Add(o.Amount)
			} else {
				wf.Expenses = wf.Expenses.Add(o.Amount)
			}
		}
		wf.Net = wf.Income.Sub(wf.Expenses)
		wf.Closing = wf.Opening.Add(wf.Net)

		if wf.Closing.IsNegative() && result.FirstNegativeWeek == nil {
			w := wStart
			result.FirstNegativeWeek = &w
			result.HasNegativeWeeks = true
		}

		result.Weeks = append(result.Weeks, wf)
		running = wf.Closing
	}

	return result, nil
}

// startOfWeek returns the Monday on or before t, at midnight UTC.
func startOfWeek(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDate(0, 0, -offset)
}
