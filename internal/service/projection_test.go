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

func TestExpand_DoesNotDoubleCountMaterialisedFixedOccurrence(t *testing.T) {
	txnRepo := testutil.NewMockTransactionRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	loanRepo := testutil.NewMockLoanRepository()

	fixed := fixedRepo.Add(domain.FixedSchedule{
		Name: "Salary", Amount: decimal.NewFromInt(10000), Currency: "ILS",
		Type: domain.EntryTypeIncome, DayOfMonth: 1, IsActive: true,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	// The February occurrence was already materialised manually; the
	// projection must not also emit a virtual one for February (§4.D).
	txnRepo.Add(domain.Transaction{
		Amount: decimal.NewFromInt(10000), Currency: "ILS", Type: domain.EntryTypeIncome,
		Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), EntryPattern: domain.EntryPatternRecurring,
		RecurringSourceID: &fixed.ID,
	})

	svc := NewProjectionService(txnRepo, fixedRepo, instRepo, loanRepo, nil)
	dctx := domain.DataContext{UserID: uuid.New()}

	occs, err := svc.Expand(context.Background(), dctx,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	var febCount int
	for _, o := range occs {
		if o.Date.Month() == time.February {
			febCount++
		}
	}
	if febCount != 1 {
		t.Errorf("February occurrence count = %d, want 1 (materialised row only, no virtual duplicate)", febCount)
	}
}

func TestExpand_EndOfMonthClampingForFixedSchedule(t *testing.T) {
	txnRepo := testutil.NewMockTransactionRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	loanRepo := testutil.NewMockLoanRepository()

	fixedRepo.Add(domain.FixedSchedule{
		Name: "Rent", Amount: decimal.NewFromInt(2000), Currency: "ILS",
		Type: domain.EntryTypeExpense, DayOfMonth: 31, IsActive: true,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	svc := NewProjectionService(txnRepo, fixedRepo, instRepo, loanRepo, nil)
	dctx := domain.DataContext{UserID: uuid.New()}

	occs, err := svc.Expand(context.Background(), dctx,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence in February, got %d", len(occs))
	}
	if occs[0].Date.Day() != 28 {
		t.Errorf("occurrence day = %d, want 28 (clamped, not rolled into March)", occs[0].Date.Day())
	}
}

func TestTotals_AggregatesIncomeAndExpense(t *testing.T) {
	txnRepo := testutil.NewMockTransactionRepository()
	fixedRepo := testutil.NewMockFixedScheduleRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	loanRepo := testutil.NewMockLoanRepository()

	fixedRepo.Add(domain.FixedSchedule{
		Name: "Salary", Amount: decimal.NewFromInt(10000), Currency: "ILS",
		Type: domain.EntryTypeIncome, DayOfMonth: 1, IsActive: true,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	fixedRepo.Add(domain.FixedSchedule{
		Name: "Rent", Amount: decimal.NewFromInt(3000), Currency: "ILS",
		Type: domain.EntryTypeExpense, DayOfMonth: 1, IsActive: true,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	svc := NewProjectionService(txnRepo, fixedRepo, instRepo, loanRepo, nil)
	dctx := domain.DataContext{UserID: uuid.New()}

	totals, err := svc.Totals(context.Background(), dctx,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if !totals.IncomeTotal.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("IncomeTotal = %s, want 10000", totals.IncomeTotal)
	}
	if !totals.ExpenseTotal.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("ExpenseTotal = %s, want 3000", totals.ExpenseTotal)
	}
}
