package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/currency"
	"fortunaflow/internal/domain"
)

// Occurrence is one emission of the projection engine — either a
// materialised transaction or a virtual occurrence of a recurring entity
// (§4.D).
type Occurrence struct {
	Type       domain.EntryType
	Date       time.Time
	Amount     decimal.Decimal
	SourceKind string // "transaction" | "fixed" | "installment" | "loan"
	SourceID   uuid.UUID
	// Provenance is the bucket a materialised or virtual emission counts
	// toward regardless of whether it was realised yet: "fixed",
	// "installment", "loan", or "one_time". The forecast engine (§4.E)
	// buckets on this rather than on SourceKind, since a materialised
	// recurring transaction still belongs to its source's bucket.
	Provenance string
}

// ProjectionTotals is the aggregated (income_total, expense_total) view.
type ProjectionTotals struct {
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
}

// monthKey identifies a calendar month for deduplication against
// materialised transactions.
type monthKey struct {
	sourceID uuid.UUID
	year     int
	month    int
}

// ProjectionService expands recurring entities into virtual occurrences
// over a date range, deduplicating against materialised transactions
// (§4.D). It never mutates state — it is the deterministic witness of
// "what the books say will happen if nothing changes."
type ProjectionService struct {
	transactionRepo domain.TransactionRepository
	fixedRepo       domain.FixedScheduleRepository
	installmentRepo domain.InstallmentRepository
	loanRepo        domain.LoanRepository
	currency        *currency.Service
}

func NewProjectionService(
	transactionRepo domain.TransactionRepository,
	fixedRepo domain.FixedScheduleRepository,
	installmentRepo domain.InstallmentRepository,
	loanRepo domain.LoanRepository,
	currencySvc *currency.Service,
) *ProjectionService {
	return &ProjectionService{
		transactionRepo: transactionRepo,
		fixedRepo:       fixedRepo,
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
		currency:        currencySvc,
	}
}

// Expand returns every emission — materialised and virtual — in
// [start, end]. When base is non-empty, each amount is converted into
// base currency; otherwise amounts are returned as stored.
func (s *ProjectionService) Expand(ctx context.Context, dctx domain.DataContext, start, end time.Time, base string) ([]Occurrence, error) {
	txns, err := s.transactionRepo.ListInRange(ctx, dctx, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]Occurrence, 0, len(txns))
	materialised := make(map[monthKey]bool, len(txns))

	for _, t := range txns {
		amount := s.convert(t.Amount, t.Currency, base)
		provenance := "one_time"

		switch {
		case t.RecurringSourceID != nil:
			provenance = "fixed"
			materialised[monthKey{*t.RecurringSourceID, t.Date.Year(), int(t.Date.Month())}] = true
		case t.InstallmentID != nil:
			provenance = "installment"
			materialised[monthKey{*t.InstallmentID, t.Date.Year(), int(t.Date.Month())}] = true
		case t.LoanID != nil:
			provenance = "loan"
			materialised[monthKey{*t.LoanID, t.Date.Year(), int(t.Date.Month())}] = true
		}

		out = append(out, Occurrence{
			Type: t.Type, Date: t.Date, Amount: amount, SourceKind: "transaction", SourceID: t.ID,
			Provenance: provenance,
		})
	}

	fixed, err := s.fixedRepo.ListActive(ctx, dctx)
	if err != nil {
		return nil, err
	}
	installments, err := s.installmentRepo.ListOutstanding(ctx, dctx)
	if err != nil {
		return nil, err
	}
	loans, err := s.loanRepo.ListActive(ctx, dctx)
	if err != nil {
		return nil, err
	}

	for _, month := range monthsIn(start, end) {
		monthStart := time.Date(month.year, time.Month(month.month), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, -1)

		for _, f := range fixed {
			if !f.AdmitsMonth(monthStart, monthEnd) {
				continue
			}
			if materialised[monthKey{f.ID, month.year, month.month}] {
				continue
			}
			date := f.OccurrenceDate(month.year, month.month)
			if date.Before(start) || date.After(end) {
				continue
			}
			out = append(out, Occurrence{
				Type: f.Type, Date: date, Amount: s.convert(f.Amount, f.Currency, base),
				SourceKind: "fixed", SourceID: f.ID, Provenance: "fixed",
			})
		}

		for _, inst := range installments {
			k, ok := inst.AdmitsMonth(month.year, month.month)
			if !ok {
				continue
			}
			if materialised[monthKey{inst.ID, month.year, month.month}] {
				continue
			}
			date := inst.OccurrenceDate(k)
			if date.Before(start) || date.After(end) {
				continue
			}
			out = append(out, Occurrence{
				Type: domain.EntryTypeExpense, Date: date, Amount: s.convert(inst.PaymentAmountFor(k), inst.Currency, base),
				SourceKind: "installment", SourceID: inst.ID, Provenance: "installment",
			})
		}

		for _, loan := range loans {
			_, ok := loan.AdmitsMonth(month.year, month.month)
			if !ok {
				continue
			}
			if materialised[monthKey{loan.ID, month.year, month.month}] {
				continue
			}
			date := loan.OccurrenceDate(month.year, month.month)
			if date.Before(start) || date.After(end) {
				continue
			}
			out = append(out, Occurrence{
				Type: domain.EntryTypeExpense, Date: date, Amount: s.convert(loan.MonthlyPayment, loan.Currency, base),
				SourceKind: "loan", SourceID: loan.ID, Provenance: "loan",
			})
		}
	}

	return out, nil
}

// Totals aggregates Expand into income/expense sums over the range.
func (s *ProjectionService) Totals(ctx context.Context, dctx domain.DataContext, start, end time.Time, base string) (ProjectionTotals, error) {
	occs, err := s.Expand(ctx, dctx, start, end, base)
	if err != nil {
		return ProjectionTotals{}, err
	}
	var totals ProjectionTotals
	totals.IncomeTotal, totals.ExpenseTotal = decimal.Zero, decimal.Zero
	for _, o := range occs {
		if o.Type == domain.EntryTypeIncome {
			totals.IncomeTotal = totals.IncomeTotal.Add(o.Amount)
		} else {
			totals.ExpenseTotal = totals.ExpenseTotal.Add(o.Amount)
		}
	}
	return totals, nil
}

func (s *ProjectionService) convert(amount decimal.Decimal, from, base string) decimal.Decimal {
	if base == "" || s.currency == nil {
		return amount
	}
	converted, _, _ := s.currency.Convert(amount, from, base)
	return converted
}

// monthsIn returns every (year, month) pair touched by [start, end].
func monthsIn(start, end time.Time) []monthKey {
	var months []monthKey
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		months = append(months, monthKey{year: cur.Year(), month: int(cur.Month())})
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}
