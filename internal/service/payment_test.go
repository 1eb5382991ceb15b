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

func TestRecordLoanPayment_Lifecycle(t *testing.T) {
	// Scenario (b): original=10000, monthly=1000, interest=0, n=10. Ten
	// RecordPayment calls complete the loan; an eleventh is rejected.
	loanRepo := testutil.NewMockLoanRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	txnRepo := testutil.NewMockTransactionRepository()
	coord := NewPaymentCoordinator(loanRepo, instRepo, txnRepo, nil)

	loan := loanRepo.Add(domain.Loan{
		Name: "Car loan", OriginalAmount: decimal.NewFromInt(10000), MonthlyPayment: decimal.NewFromInt(1000),
		RemainingBalance: decimal.NewFromInt(10000), TotalPayments: 10, PaymentsMade: 0,
		Status: domain.LoanActive, Currency: "ILS", DayOfMonth: 1,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	dctx := domain.DataContext{UserID: uuid.New()}

	var lastLoan *domain.Loan
	for i := 0; i < 10; i++ {
		_, updated, err := coord.RecordLoanPayment(context.Background(), dctx, loan.ID, decimal.NewFromInt(1000))
		if err != nil {
			t.Fatalf("payment %d: unexpected error %v", i+1, err)
		}
		lastLoan = updated
	}

	if lastLoan.Status != domain.LoanCompleted {
		t.Errorf("status = %s, want completed", lastLoan.Status)
	}
	if !lastLoan.RemainingBalance.IsZero() {
		t.Errorf("remaining balance = %s, want 0", lastLoan.RemainingBalance)
	}

	if _, _, err := coord.RecordLoanPayment(context.Background(), dctx, loan.ID, decimal.NewFromInt(1000)); err == nil {
		t.Fatal("expected error on 11th payment of a completed loan")
	}

	updated, err := coord.ReverseLoanPayment(context.Background(), dctx, loan.ID)
	if err != nil {
		t.Fatalf("ReverseLoanPayment() error = %v", err)
	}
	if updated.Status != domain.LoanActive {
		t.Errorf("status after reverse = %s, want active", updated.Status)
	}
	if updated.PaymentsMade != 9 {
		t.Errorf("payments_made after reverse = %d, want 9", updated.PaymentsMade)
	}
	if !updated.RemainingBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("remaining_balance after reverse = %s, want 1000", updated.RemainingBalance)
	}
}

func TestRecordLoanPayment_OverpaymentRejected(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	txnRepo := testutil.NewMockTransactionRepository()
	coord := NewPaymentCoordinator(loanRepo, instRepo, txnRepo, nil)

	loan := loanRepo.Add(domain.Loan{
		Name: "Car loan", OriginalAmount: decimal.NewFromInt(10000), MonthlyPayment: decimal.NewFromInt(1000),
		RemainingBalance: decimal.NewFromInt(10000), TotalPayments: 10, PaymentsMade: 0,
		Status: domain.LoanActive, Currency: "ILS", DayOfMonth: 1,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	dctx := domain.DataContext{UserID: uuid.New()}

	if _, _, err := coord.RecordLoanPayment(context.Background(), dctx, loan.ID, decimal.NewFromInt(10001)); err == nil {
		t.Fatal("expected error paying more than the remaining balance")
	}
}

func TestReverseLoanPayment_NoPaymentsRejected(t *testing.T) {
	loanRepo := testutil.NewMockLoanRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	txnRepo := testutil.NewMockTransactionRepository()
	coord := NewPaymentCoordinator(loanRepo, instRepo, txnRepo, nil)

	loan := loanRepo.Add(domain.Loan{
		Name: "Fresh loan", OriginalAmount: decimal.NewFromInt(5000), MonthlyPayment: decimal.NewFromInt(500),
		RemainingBalance: decimal.NewFromInt(5000), TotalPayments: 10, PaymentsMade: 0,
		Status: domain.LoanActive, Currency: "ILS", DayOfMonth: 1,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	dctx := domain.DataContext{UserID: uuid.New()}

	if _, err := coord.ReverseLoanPayment(context.Background(), dctx, loan.ID); err == nil {
		t.Fatal("expected error reversing a loan with zero payments made")
	}
}

func TestRecordInstallmentPayment_RoundingResidueOnLastPayment(t *testing.T) {
	// Scenario (a): total=1000, n=3 -> [333.33, 333.33, 333.34].
	loanRepo := testutil.NewMockLoanRepository()
	instRepo := testutil.NewMockInstallmentRepository()
	txnRepo := testutil.NewMockTransactionRepository()
	coord := NewPaymentCoordinator(loanRepo, instRepo, txnRepo, nil)

	inst := instRepo.Add(domain.Installment{
		Name: "Appliance", TotalAmount: decimal.NewFromInt(1000), NumberOfPayments: 3,
		Type: domain.EntryTypeExpense, Currency: "ILS", DayOfMonth: 1,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	dctx := domain.DataContext{UserID: uuid.New()}

	sum := decimal.Zero
	for i := 0; i < 3; i++ {
		txn, _, err := coord.RecordInstallmentPayment(context.Background(), dctx, inst.ID)
		if err != nil {
			t.Fatalf("payment %d: unexpected error %v", i+1, err)
		}
		sum = sum.Add(txn.Amount)
	}
	if !sum.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("sum of installment payments = %s, want 1000.00", sum)
	}

	if _, _, err := coord.RecordInstallmentPayment(context.Background(), dctx, inst.ID); err == nil {
		t.Fatal("expected error on a 4th payment of a 3-payment installment")
	}
}
