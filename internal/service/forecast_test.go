package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/testutil"
)

func TestComputeMonthlyForecast_NegativeMonthDetection(t *testing.T) {
	// Scenario (d): current_balance=200, fixed_expense=15000/mo (day 1),
	// no income, 3-month forecast. Month 1 closing = -14800.
	txnRepo := testutil.NewMockTransactionRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	loanRepo := testutil.NewMockLoanRepository()
	bankRepo := testutil.NewMockBankBalanceRepository()
	eiRepo := testutil.NewMockExpectedIncomeRepository()

	fixedRepo.Add(domain.FixedSchedule{
		Name: "Rent", Amount: decimal.NewFromInt(15000), Currency: "ILS",
		Type: domain.EntryTypeExpense, DayOfMonth: 1,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true,
	})
	bankRepo.SetCurrent(domain.BankBalance{Balance: decimal.NewFromInt(200), Currency: "ILS", IsCurrent: true})

	projection := NewProjectionService(txnRepo, fixedRepo, instRepo, loanRepo, nil)
	engine := NewForecastEngine(projection, bankRepo, eiRepo)
	engine.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	dctx := domain.DataContext{UserID: uuid.New()}
	mf, err := engine.ComputeMonthlyForecast(context.Background(), dctx, 3)
	if err != nil {
		t.Fatalf("ComputeMonthlyForecast() error = %v", err)
	}

	if !mf.Months[0].Closing.Equal(decimal.NewFromInt(-14800)) {
		t.Errorf("month 1 closing = %s, want -14800", mf.Months[0].Closing)
	}
	if !mf.HasNegativeMonths {
		t.Error("expected HasNegativeMonths=true")
	}
	wantFirst := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if mf.FirstNegativeMonth == nil || !mf.FirstNegativeMonth.Equal(wantFirst) {
		t.Errorf("FirstNegativeMonth = %v, want %v", mf.FirstNegativeMonth, wantFirst)
	}
}

func TestComputeMonthlyForecast_ExpectedIncomeAddsToTotalIncome(t *testing.T) {
	txnRepo := testutil.NewMockTransactionRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	loanRepo := testutil.NewMockLoanRepository()
	bankRepo := testutil.NewMockBankBalanceRepository()
	eiRepo := testutil.NewMockExpectedIncomeRepository()

	bankRepo.SetCurrent(domain.BankBalance{Balance: decimal.Zero, Currency: "ILS", IsCurrent: true})
	eiRepo.Set(domain.ExpectedIncome{
		Month: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ExpectedAmount: decimal.NewFromInt(5000),
	})

	projection := NewProjectionService(txnRepo, fixedRepo, instRepo, loanRepo, nil)
	engine := NewForecastEngine(projection, bankRepo, eiRepo)
	engine.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	dctx := domain.DataContext{UserID: uuid.New()}
	mf, err := engine.ComputeMonthlyForecast(context.Background(), dctx, 1)
	if err != nil {
		t.Fatalf("ComputeMonthlyForecast() error = %v", err)
	}

	if !mf.Months[0].ExpectedIncome.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("ExpectedIncome = %s, want 5000", mf.Months[0].ExpectedIncome)
	}
	if !mf.Months[0].Closing.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Closing = %s, want 5000", mf.Months[0].Closing)
	}
}

func TestComputeMonthlyForecast_NoBankBalance_DefaultsToZero(t *testing.T) {
	txnRepo := testutil.NewMockTransactionRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	loanRepo := testutil.NewMockLoanRepository()
	bankRepo := testutil.NewMockBankBalanceRepository()
	eiRepo := testutil.NewMockExpectedIncomeRepository()

	projection := NewProjectionService(txnRepo, fixedRepo, instRepo, loanRepo, nil)
	engine := NewForecastEngine(projection, bankRepo, eiRepo)
	engine.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	dctx := domain.DataContext{UserID: uuid.New()}
	mf, err := engine.ComputeMonthlyForecast(context.Background(), dctx, 1)
	if err != nil {
		t.Fatalf("ComputeMonthlyForecast() error = %v", err)
	}
	if !mf.CurrentBalance.IsZero() {
		t.Errorf("CurrentBalance = %s, want 0 when no bank balance recorded", mf.CurrentBalance)
	}
}
