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

type alertTestFixture struct {
	engine    *AlertEngine
	alertRepo *testutil.MockAlertRepository
	txnRepo   *testutil.MockTransactionRepository
	bankRepo  *testutil.MockBankBalanceRepository
	instRepo  *testutil.MockInstallmentRepository
	loanRepo  *testutil.MockLoanRepository
}

func newTestAlertEngine(t *testing.T, now time.Time) alertTestFixture {
	t.Helper()
	txnRepo := testutil.NewMockTransactionRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	loanRepo := testutil.NewMockLoanRepository()
	bankRepo := testutil.NewMockBankBalanceRepository()
	eiRepo := testutil.NewMockExpectedIncomeRepository()
	alertRepo := testutil.NewMockAlertRepository()

	projection := NewProjectionService(txnRepo, fixedRepo, instRepo, loanRepo, nil)
	forecast := NewForecastEngine(projection, bankRepo, eiRepo)
	forecast.now = func() time.Time { return now }

	engine := NewAlertEngine(alertRepo, txnRepo, instRepo, loanRepo, forecast)
	engine.now = func() time.Time { return now }
	return alertTestFixture{engine, alertRepo, txnRepo, bankRepo, instRepo, loanRepo}
}

func TestGenerateAlerts_NegativeCashflowCritical(t *testing.T) {
	// Scenario (d): a deeply negative month produces a critical
	// negative_cashflow alert.
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	f := newTestAlertEngine(t, now)

	f.bankRepo.SetCurrent(domain.BankBalance{Balance: decimal.NewFromInt(200), Currency: "ILS", IsCurrent: true})
	dctx := domain.DataContext{UserID: uuid.New()}
	f.txnRepo.Add(domain.Transaction{
		UserID: dctx.UserID, Amount: decimal.NewFromInt(20000), Currency: "ILS",
		Type: domain.EntryTypeExpense, EntryPattern: domain.EntryPatternOneTime,
		Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	})

	alerts, err := f.engine.Generate(context.Background(), dctx)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var found bool
	for _, a := range alerts {
		if a.AlertType == "negative_cashflow" && a.Severity == domain.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Error("expected a critical negative_cashflow alert")
	}
}

func TestGenerateAlerts_PreservesIsReadAcrossRegeneration(t *testing.T) {
	// Invariant 7: regenerating alerts after no state change leaves
	// is_read values unchanged on surviving alerts.
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	f := newTestAlertEngine(t, now)

	f.bankRepo.SetCurrent(domain.BankBalance{Balance: decimal.NewFromInt(200), Currency: "ILS", IsCurrent: true})
	dctx := domain.DataContext{UserID: uuid.New()}
	f.txnRepo.Add(domain.Transaction{
		UserID: dctx.UserID, Amount: decimal.NewFromInt(20000), Currency: "ILS",
		Type: domain.EntryTypeExpense, EntryPattern: domain.EntryPatternOneTime,
		Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	})

	first, err := f.engine.Generate(context.Background(), dctx)
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected at least one alert")
	}

	if err := f.alertRepo.MarkRead(context.Background(), dctx, first[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	second, err := f.engine.Generate(context.Background(), dctx)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	var matched bool
	for _, a := range second {
		if a.ID == first[0].ID {
			matched = true
			if !a.IsRead {
				t.Error("is_read did not survive regeneration")
			}
			if !a.CreatedAt.Equal(first[0].CreatedAt) {
				t.Error("created_at did not survive regeneration")
			}
		}
	}
	if !matched {
		t.Fatal("expected the original alert's key to still be present after regeneration")
	}
}

func TestGenerateAlerts_LoanEndingSoon(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	f := newTestAlertEngine(t, now)
	f.bankRepo.SetCurrent(domain.BankBalance{Balance: decimal.NewFromInt(10000), Currency: "ILS", IsCurrent: true})

	dctx := domain.DataContext{UserID: uuid.New()}
	f.loanRepo.Add(domain.Loan{
		UserID: dctx.UserID, Name: "Almost done", OriginalAmount: decimal.NewFromInt(1000),
		MonthlyPayment: decimal.NewFromInt(500), RemainingBalance: decimal.NewFromInt(500),
		TotalPayments: 10, PaymentsMade: 9, Status: domain.LoanActive, Currency: "ILS",
		DayOfMonth: 1, StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	alerts, err := f.engine.Generate(context.Background(), dctx)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	var found bool
	for _, a := range alerts {
		if a.AlertType == "loan_ending_soon" {
			found = true
		}
	}
	if !found {
		t.Error("expected a loan_ending_soon alert for a loan with 1 payment remaining")
	}
}
