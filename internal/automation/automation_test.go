package automation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/testutil"
)

func TestProcess_FixedSchedule_IdempotentAcrossCalls(t *testing.T) {
	// Scenario (e): a fixed schedule due on the 15th is charged exactly
	// once per reference date, however many times Process is re-run.
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	loanRepo := testutil.NewMockLoanRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	txnRepo := testutil.NewMockTransactionRepository()

	fixedRepo.Add(domain.FixedSchedule{
		Name: "Rent", Amount: decimal.NewFromInt(3000), Currency: "ILS",
		Type: domain.EntryTypeExpense, DayOfMonth: 15,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true,
	})

	p := NewProcessor(loanRepo, fixedRepo, instRepo, txnRepo)
	dctx := domain.DataContext{UserID: uuid.New()}
	referenceDate := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	result, err := p.Process(context.Background(), dctx, referenceDate, false)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.FixedCharged != 1 || result.Skipped != 0 {
		t.Fatalf("first call: FixedCharged=%d Skipped=%d, want 1, 0", result.FixedCharged, result.Skipped)
	}

	result, err = p.Process(context.Background(), dctx, referenceDate, false)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.FixedCharged != 0 || result.Skipped != 1 {
		t.Fatalf("second call: FixedCharged=%d Skipped=%d, want 0, 1", result.FixedCharged, result.Skipped)
	}

	txns, _ := txnRepo.ListInRange(context.Background(), dctx, referenceDate, referenceDate)
	if len(txns) != 1 {
		t.Fatalf("expected exactly one transaction, got %d", len(txns))
	}
}

func TestProcess_Preview_WritesNothing(t *testing.T) {
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	loanRepo := testutil.NewMockLoanRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	txnRepo := testutil.NewMockTransactionRepository()

	fixedRepo.Add(domain.FixedSchedule{
		Name: "Rent", Amount: decimal.NewFromInt(3000), Currency: "ILS",
		Type: domain.EntryTypeExpense, DayOfMonth: 15,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true,
	})

	p := NewProcessor(loanRepo, fixedRepo, instRepo, txnRepo)
	dctx := domain.DataContext{UserID: uuid.New()}
	referenceDate := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	result, err := p.Process(context.Background(), dctx, referenceDate, true)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.FixedCharged != 1 {
		t.Fatalf("preview FixedCharged = %d, want 1", result.FixedCharged)
	}

	txns, _ := txnRepo.ListInRange(context.Background(), dctx, referenceDate, referenceDate)
	if len(txns) != 0 {
		t.Fatalf("preview must not write transactions, found %d", len(txns))
	}
}

func TestProcess_Loan_MaterialisesAndAdvancesCounters(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	txnRepo := testutil.NewMockTransactionRepository()

	loan := loanRepo.Add(domain.Loan{
		Name: "Car loan", OriginalAmount: decimal.NewFromInt(10000), MonthlyPayment: decimal.NewFromInt(1000),
		RemainingBalance: decimal.NewFromInt(10000), TotalPayments: 10, PaymentsMade: 0,
		Status: domain.LoanActive, Currency: "ILS", DayOfMonth: 1,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	p := NewProcessor(loanRepo, fixedRepo, instRepo, txnRepo)
	dctx := domain.DataContext{UserID: uuid.New()}
	referenceDate := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result, err := p.Process(context.Background(), dctx, referenceDate, false)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.LoansCharged != 1 {
		t.Fatalf("LoansCharged = %d, want 1", result.LoansCharged)
	}

	updated, _ := loanRepo.Get(context.Background(), dctx, loan.ID)
	if updated.PaymentsMade != 1 {
		t.Errorf("PaymentsMade = %d, want 1", updated.PaymentsMade)
	}
	if !updated.RemainingBalance.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("RemainingBalance = %s, want 9000", updated.RemainingBalance)
	}
}
