// Package automation materialises recurring loan, fixed-schedule, and
// installment charges into transactions on their due date, idempotently
// (§4.G). It is the write-side counterpart of the read-only projection
// engine in internal/service.
package automation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
)

// Result tallies one run of Process.
type Result struct {
	LoansCharged        int
	FixedCharged        int
	InstallmentsCharged int
	Skipped             int
}

// Processor charges every due recurring source for a data context on a
// reference date, locking each source row before mutating it so a
// concurrent run (or a retried cron tick) cannot double-charge.
type Processor struct {
	loanRepo        domain.LoanRepository
	fixedRepo       domain.FixedScheduleRepository
	installmentRepo domain.InstallmentRepository
	transactionRepo domain.TransactionRepository
}

func NewProcessor(
	loanRepo domain.LoanRepository,
	fixedRepo domain.FixedScheduleRepository,
	installmentRepo domain.InstallmentRepository,
	transactionRepo domain.TransactionRepository,
) *Processor {
	return &Processor{loanRepo: loanRepo, fixedRepo: fixedRepo, installmentRepo: installmentRepo, transactionRepo: transactionRepo}
}

// Process charges every loan, fixed schedule, and installment due on
// referenceDate. When preview is true, nothing is written — the result
// still reports what would have been charged.
func (p *Processor) Process(ctx context.Context, dctx domain.DataContext, referenceDate time.Time, preview bool) (Result, error) {
	var result Result

	loanCharged, loanSkipped, err := p.processLoans(ctx, dctx, referenceDate, preview)
	if err != nil {
		return result, err
	}
	result.LoansCharged = loanCharged
	result.Skipped += loanSkipped

	fixedCharged, fixedSkipped, err := p.processFixed(ctx, dctx, referenceDate, preview)
	if err != nil {
		return result, err
	}
	result.FixedCharged = fixedCharged
	result.Skipped += fixedSkipped

	instCharged, instSkipped, err := p.processInstallments(ctx, dctx, referenceDate, preview)
	if err != nil {
		return result, err
	}
	result.InstallmentsCharged = instCharged
	result.Skipped += instSkipped

	return result, nil
}

func (p *Processor) processLoans(ctx context.Context, dctx domain.DataContext, referenceDate time.Time, preview bool) (charged, skipped int, err error) {
	loans, err := p.loanRepo.ListDueOn(ctx, dctx, referenceDate.Day())
	if err != nil {
		return 0, 0, err
	}

	for i := range loans {
		loan := loans[i]
		if loan.PaymentsMade >= loan.TotalPayments {
			skipped++
			continue
		}
		exists, err := p.transactionRepo.ExistsForSource(ctx, dctx, domain.EntryPatternLoanPayment, loan.ID, referenceDate)
		if err != nil {
			return charged, skipped, err
		}
		if exists {
			skipped++
			continue
		}
		if preview {
			charged++
			continue
		}

		userID, orgID := dctx.Stamp()
		txn := &domain.Transaction{
			UserID: userID, OrganizationID: orgID, Amount: loan.MonthlyPayment, Currency: loan.Currency,
			Type: domain.EntryTypeExpense, CategoryID: loan.CategoryID,
			Description: "Loan payment: " + loan.Name, Date: referenceDate,
			EntryPattern: domain.EntryPatternRecurring, IsRecurring: true, LoanID: &loan.ID,
		}
		if _, err := p.transactionRepo.Create(ctx, dctx, txn); err != nil {
			return charged, skipped, err
		}
		if _, err := p.loanRepo.Update(ctx, dctx, loan.ID, func(l *domain.Loan) error {
			l.PaymentsMade++
			l.RemainingBalance = l.RemainingBalance.Sub(l.MonthlyPayment)
			if l.RemainingBalance.IsNegative() {
				l.RemainingBalance = decimal.Zero
			}
			if l.PaymentsMade >= l.TotalPayments {
				l.Status = domain.LoanCompleted
			}
			return nil
		}); err != nil {
			return charged, skipped, err
		}
		charged++
	}
	return charged, skipped, nil
}

func (p *Processor) processFixed(ctx context.Context, dctx domain.DataContext, referenceDate time.Time, preview bool) (charged, skipped int, err error) {
	fixed, err := p.fixedRepo.ListDueOn(ctx, dctx, referenceDate.Day())
	if err != nil {
		return 0, 0, err
	}

	for i := range fixed {
		f := fixed[i]
		if f.StartDate.After(referenceDate) {
			skipped++
			continue
		}
		if f.EndDate != nil && f.EndDate.Before(referenceDate) {
			skipped++
			continue
		}
		exists, err := p.transactionRepo.ExistsForSource(ctx, dctx, domain.EntryPatternRecurring, f.ID, referenceDate)
		if err != nil {
			return charged, skipped, err
		}
		if exists {
			skipped++
			continue
		}
		if preview {
			charged++
			continue
		}

		userID, orgID := dctx.Stamp()
		txn := &domain.Transaction{
			UserID: userID, OrganizationID: orgID, Amount: f.Amount, Currency: f.Currency,
			Type: f.Type, CategoryID: f.CategoryID,
			Description: "Fixed " + string(f.Type) + ": " + f.Name, Date: referenceDate,
			EntryPattern: domain.EntryPatternRecurring, IsRecurring: true, RecurringSourceID: &f.ID,
		}
		if _, err := p.transactionRepo.Create(ctx, dctx, txn); err != nil {
			return charged, skipped, err
		}
		charged++
	}
	return charged, skipped, nil
}

func (p *Processor) processInstallments(ctx context.Context, dctx domain.DataContext, referenceDate time.Time, preview bool) (charged, skipped int, err error) {
	installments, err := p.installmentRepo.ListDueOn(ctx, dctx, referenceDate.Day())
	if err != nil {
		return 0, 0, err
	}

	for i := range installments {
		inst := installments[i]
		if inst.PaymentsCompleted >= inst.NumberOfPayments {
			skipped++
			continue
		}
		exists, err := p.transactionRepo.ExistsForSource(ctx, dctx, domain.EntryPatternInstallment, inst.ID, referenceDate)
		if err != nil {
			return charged, skipped, err
		}
		if exists {
			skipped++
			continue
		}
		if preview {
			charged++
			continue
		}

		k := inst.PaymentsCompleted + 1
		userID, orgID := dctx.Stamp()
		txn := &domain.Transaction{
			UserID: userID, OrganizationID: orgID, Amount: inst.PaymentAmountFor(k), Currency: inst.Currency,
			Type: inst.Type, CategoryID: inst.CategoryID,
			Description:       "Installment: " + inst.Name,
			Date:              referenceDate,
			EntryPattern:      domain.EntryPatternInstallment,
			IsRecurring:       true,
			InstallmentID:     &inst.ID,
			InstallmentNumber: &k,
		}
		if _, err := p.transactionRepo.Create(ctx, dctx, txn); err != nil {
			return charged, skipped, err
		}
		if _, err := p.installmentRepo.Update(ctx, dctx, inst.ID, func(i *domain.Installment) error {
			i.PaymentsCompleted++
			return nil
		}); err != nil {
			return charged, skipped, err
		}
		charged++
	}
	return charged, skipped, nil
}
