package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/amortization"
	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// PaymentCoordinator is the single place loan and installment payments are
// recorded or reversed: it locks the source row, writes the materialised
// transaction, updates the running counters, and appends the audit entry,
// all as one logical unit (§4.J).
type PaymentCoordinator struct {
	loanRepo        domain.LoanRepository
	installmentRepo domain.InstallmentRepository
	transactionRepo domain.TransactionRepository
	audit           *audit.Recorder
	now             func() time.Time
}

func NewPaymentCoordinator(
	loanRepo domain.LoanRepository,
	installmentRepo domain.InstallmentRepository,
	transactionRepo domain.TransactionRepository,
	auditRecorder *audit.Recorder,
) *PaymentCoordinator {
	return &PaymentCoordinator{
		loanRepo: loanRepo, installmentRepo: installmentRepo, transactionRepo: transactionRepo,
		audit: auditRecorder, now: func() time.Time { return time.Now().UTC() },
	}
}

// RecordLoanPayment materialises a payment against a loan, advancing
// payments_made and reducing remaining_balance by amount (§4.J). Rejects
// a completed loan, a loan with no payments left, or amount exceeding
// remaining_balance.
func (c *PaymentCoordinator) RecordLoanPayment(ctx context.Context, dctx domain.DataContext, loanID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, *domain.Loan, error) {
	loan, err := c.loanRepo.LockForUpdate(ctx, dctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	if loan.Status == domain.LoanCompleted || loan.PaymentsMade >= loan.TotalPayments {
		return nil, nil, domain.ErrLoanCompleted
	}
	if amount.GreaterThan(loan.RemainingBalance) {
		return nil, nil, domain.ErrLoanOverpayment
	}

	k := loan.PaymentsMade + 1
	year, month := monthForOccurrence(loan.StartDate, k)
	date := loan.OccurrenceDate(year, month)

	userID, orgID := dctx.Stamp()
	txn := &domain.Transaction{
		UserID: userID, OrganizationID: orgID, Amount: amount, Currency: loan.Currency,
		Type: domain.EntryTypeExpense, CategoryID: loan.CategoryID,
		Description:  "Loan payment: " + loan.Name,
		Date:         date,
		EntryPattern: domain.EntryPatternRecurring,
		IsRecurring:  true,
		LoanID:       &loan.ID,
	}
	txn, err = c.transactionRepo.Create(ctx, dctx, txn)
	if err != nil {
		return nil, nil, err
	}

	loan, err = c.loanRepo.Update(ctx, dctx, loan.ID, func(l *domain.Loan) error {
		l.PaymentsMade++
		l.RemainingBalance = l.RemainingBalance.Sub(amount)
		if l.RemainingBalance.IsNegative() {
			l.RemainingBalance = decimal.Zero
		}
		if l.PaymentsMade >= l.TotalPayments {
			l.Status = domain.LoanCompleted
			l.RemainingBalance = decimal.Zero
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if c.audit != nil {
		_ = c.audit.Record(ctx, audit.Entry{
			TableName: "loans", RecordID: loan.ID, UserID: userID, Action: "PAYMENT_RECORDED",
			NewValues:      map[string]any{"payments_made": loan.PaymentsMade, "transaction_id": txn.ID},
			OrganizationID: orgID,
		})
	}

	return txn, loan, nil
}

// ReverseLoanPayment undoes the most recent recorded payment: deletes its
// transaction and rolls payments_made/remaining_balance back.
func (c *PaymentCoordinator) ReverseLoanPayment(ctx context.Context, dctx domain.DataContext, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := c.loanRepo.LockForUpdate(ctx, dctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.PaymentsMade == 0 {
		return nil, domain.ErrLoanNoPaymentsToReverse
	}

	k := loan.PaymentsMade
	year, month := monthForOccurrence(loan.StartDate, k)
	date := loan.OccurrenceDate(year, month)

	txn, err := c.findSourceTransaction(ctx, dctx, date, func(t domain.Transaction) bool {
		return t.LoanID != nil && *t.LoanID == loan.ID
	})
	if err != nil {
		return nil, err
	}
	if txn != nil {
		if err := c.transactionRepo.Delete(ctx, dctx, txn.ID); err != nil {
			return nil, err
		}
	}

	wasCompleted := loan.Status == domain.LoanCompleted
	params := loan.AmortizationParams()
	loan, err = c.loanRepo.Update(ctx, dctx, loan.ID, func(l *domain.Loan) error {
		l.PaymentsMade--
		if l.PaymentsMade == 0 {
			l.RemainingBalance = l.OriginalAmount
		} else {
			l.RemainingBalance = amortization.RemainingBalanceAfter(params, l.PaymentsMade, c.now())
		}
		if wasCompleted {
			l.Status = domain.LoanActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.audit != nil {
		userID, orgID := dctx.Stamp()
		_ = c.audit.Record(ctx, audit.Entry{
			TableName: "loans", RecordID: loan.ID, UserID: userID, Action: "PAYMENT_REVERSED",
			NewValues: map[string]any{"payments_made": loan.PaymentsMade}, OrganizationID: orgID,
		})
	}

	return loan, nil
}

// RecordInstallmentPayment materialises the next due installment payment.
func (c *PaymentCoordinator) RecordInstallmentPayment(ctx context.Context, dctx domain.DataContext, installmentID uuid.UUID) (*domain.Transaction, *domain.Installment, error) {
	inst, err := c.installmentRepo.LockForUpdate(ctx, dctx, installmentID)
	if err != nil {
		return nil, nil, err
	}
	if inst.PaymentsCompleted >= inst.NumberOfPayments {
		return nil, nil, domain.ErrInstallmentCompleted
	}

	k := inst.PaymentsCompleted + 1
	date := inst.OccurrenceDate(k)
	amount := inst.PaymentAmountFor(k)

	userID, orgID := dctx.Stamp()
	txn := &domain.Transaction{
		UserID: userID, OrganizationID: orgID, Amount: amount, Currency: inst.Currency,
		Type: inst.Type, CategoryID: inst.CategoryID,
		Description:       "Installment: " + inst.Name,
		Date:              date,
		EntryPattern:      domain.EntryPatternInstallment,
		IsRecurring:       true,
		InstallmentID:     &inst.ID,
		InstallmentNumber: &k,
	}
	txn, err = c.transactionRepo.Create(ctx, dctx, txn)
	if err != nil {
		return nil, nil, err
	}

	inst, err = c.installmentRepo.Update(ctx, dctx, inst.ID, func(i *domain.Installment) error {
		i.PaymentsCompleted++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if c.audit != nil {
		_ = c.audit.Record(ctx, audit.Entry{
			TableName: "installments", RecordID: inst.ID, UserID: userID, Action: "PAYMENT_RECORDED",
			NewValues:      map[string]any{"payments_completed": inst.PaymentsCompleted, "transaction_id": txn.ID},
			OrganizationID: orgID,
		})
	}

	return txn, inst, nil
}

// ReverseInstallmentPayment undoes the most recent installment payment.
func (c *PaymentCoordinator) ReverseInstallmentPayment(ctx context.Context, dctx domain.DataContext, installmentID uuid.UUID) (*domain.Installment, error) {
	inst, err := c.installmentRepo.LockForUpdate(ctx, dctx, installmentID)
	if err != nil {
		return nil, err
	}
	if inst.PaymentsCompleted == 0 {
		return nil, domain.ErrInstallmentNoPaymentsToReverse
	}

	k := inst.PaymentsCompleted
	date := inst.OccurrenceDate(k)

	txn, err := c.findSourceTransaction(ctx, dctx, date, func(t domain.Transaction) bool {
		return t.InstallmentID != nil && *t.InstallmentID == inst.ID
	})
	if err != nil {
		return nil, err
	}
	if txn != nil {
		if err := c.transactionRepo.Delete(ctx, dctx, txn.ID); err != nil {
			return nil, err
		}
	}

	inst, err = c.installmentRepo.Update(ctx, dctx, inst.ID, func(i *domain.Installment) error {
		i.PaymentsCompleted--
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.audit != nil {
		userID, orgID := dctx.Stamp()
		_ = c.audit.Record(ctx, audit.Entry{
			TableName: "installments", RecordID: inst.ID, UserID: userID, Action: "PAYMENT_REVERSED",
			NewValues: map[string]any{"payments_completed": inst.PaymentsCompleted}, OrganizationID: orgID,
		})
	}

	return inst, nil
}

func (c *PaymentCoordinator) findSourceTransaction(ctx context.Context, dctx domain.DataContext, date time.Time, match func(domain.Transaction) bool) (*domain.Transaction, error) {
	txns, err := c.transactionRepo.ListInRange(ctx, dctx, date, date)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		if match(txns[i]) {
			return &txns[i], nil
		}
	}
	return nil, nil
}

// monthForOccurrence returns the calendar (year, month) of the k-th
// occurrence (1-indexed) counted from startDate.
func monthForOccurrence(startDate time.Time, k int) (year, month int) {
	y, m, _ := startDate.Date()
	total := int(m) - 1 + (k - 1)
	year = int(y) + total/12
	month = total%12 + 1
	return year, month
}
