package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
)

// DashboardAggregator builds the read-only derived views of §4.F, all
// scoped by the caller's data context.
type DashboardAggregator struct {
	transactionRepo domain.TransactionRepository
	categoryRepo    domain.CategoryRepository
	bankBalanceRepo domain.BankBalanceRepository
	fixedRepo       domain.FixedScheduleRepository
	installmentRepo domain.InstallmentRepository
	loanRepo        domain.LoanRepository
	projection      *ProjectionService
	now             func() time.Time
}

func NewDashboardAggregator(
	transactionRepo domain.TransactionRepository,
	categoryRepo domain.CategoryRepository,
	bankBalanceRepo domain.BankBalanceRepository,
	fixedRepo domain.FixedScheduleRepository,
	installmentRepo domain.InstallmentRepository,
	loanRepo domain.LoanRepository,
	projection *ProjectionService,
) *DashboardAggregator {
	return &DashboardAggregator{
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		bankBalanceRepo: bankBalanceRepo,
		fixedRepo:       fixedRepo,
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
		projection:      projection,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (d *DashboardAggregator) currentBalance(ctx context.Context, dctx domain.DataContext) (decimal.Decimal, string, error) {
	bal, err := d.bankBalanceRepo.GetCurrent(ctx, dctx)
	if err != nil {
		if de, ok := domain.AsDomainError(err); ok && de.Kind == domain.KindNotFound {
			return decimal.Zero, "", nil
		}
		return decimal.Zero, "", err
	}
	return bal.Balance, bal.Currency, nil
}

// Summary returns current balance, month-to-date income/expense/net, and
// the trend vs. the previous month as a percent change.
func (d *DashboardAggregator) Summary(ctx context.Context, dctx domain.DataContext) (*domain.DashboardSummary, error) {
	balance, base, err := d.currentBalance(ctx, dctx)
	if err != nil {
		return nil, err
	}

	today := d.now()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	prevMonthEnd := monthStart.AddDate(0, 0, -1)

	curIncome, curExpense, err := d.realizedTotals(ctx, dctx, monthStart, today)
	if err != nil {
		return nil, err
	}
	prevIncome, prevExpense, err := d.realizedTotals(ctx, dctx, prevMonthStart, prevMonthEnd)
	if err != nil {
		return nil, err
	}

	curNet := curIncome.Sub(curExpense)
	prevNet := prevIncome.Sub(prevExpense)
	_ = base // balance currency; summary amounts are already in the account's own currency

	return &domain.DashboardSummary{
		CurrentBalance:     balance,
		MonthToDateIncome:  curIncome,
		MonthToDateExpense: curExpense,
		MonthToDateNet:     curNet,
		TrendPercent:       percentChange(prevNet, curNet),
	}, nil
}

// percentChange computes (curr-prev)/|prev| * 100, with the two
// documented edge cases: 0->0 is 0, 0->x is 100 (§4.F).
func percentChange(prev, curr decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		if curr.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return curr.Sub(prev).Div(prev.Abs()).Mul(decimal.NewFromInt(100)).Round(2)
}

// realizedTotals sums materialised transactions only (no virtual
// occurrences) — the summary reports what actually happened.
func (d *DashboardAggregator) realizedTotals(ctx context.Context, dctx domain.DataContext, start, end time.Time) (income, expense decimal.Decimal, err error) {
	txns, err := d.transactionRepo.ListInRange(ctx, dctx, start, end)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range txns {
		if t.Type == domain.EntryTypeIncome {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense, nil
}

// PeriodKind selects the period series granularity.
type PeriodKind string

const (
	PeriodWeekly    PeriodKind = "weekly"
	PeriodMonthly   PeriodKind = "monthly"
	PeriodQuarterly PeriodKind = "quarterly"
)

var periodCount = map[PeriodKind]int{
	PeriodWeekly:    12,
	PeriodMonthly:   12,
	PeriodQuarterly: 8,
}

// PeriodSeries returns the last N periods of {label, income, expenses,
// net, running_balance}, with running balance back-computed so the final
// point equals the current balance (§4.F).
func (d *DashboardAggregator) PeriodSeries(ctx context.Context, dctx domain.DataContext, kind PeriodKind) ([]domain.PeriodPoint, error) {
	n, ok := periodCount[kind]
	if !ok {
		return nil, domain.NewSchemaError("period kind must be weekly, monthly, or quarterly")
	}

	balance, _, err := d.currentBalance(ctx, dctx)
	if err != nil {
		return nil, err
	}

	today := d.now()
	bounds := make([][2]time.Time, n)
	labels := make([]string, n)
	switch kind {
	case PeriodWeekly:
		weekStart := startOfWeek(today)
		for i := 0; i < n; i++ {
			s := weekStart.AddDate(0, 0, (i-n+1)*7)
			bounds[i] = [2]time.Time{s, s.AddDate(0, 0, 6)}
			labels[i] = s.Format("2006-01-02")
		}
	case PeriodMonthly:
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			s := monthStart.AddDate(0, i-n+1, 0)
			bounds[i] = [2]time.Time{s, s.AddDate(0, 1, -1)}
			labels[i] = s.Format("2006-01")
		}
	case PeriodQuarterly:
		qStart := time.Date(today.Year(), (((int(today.Month())-1)/3)*3)+1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			s := qStart.AddDate(0, (i-n+1)*3, 0)
			bounds[i] = [2]time.Time{s, s.AddDate(0, 3, -1)}
			labels[i] = s.Format("2006") + "-Q" + itoa((int(s.Month())-1)/3+1)
		}
	}

	points := make([]domain.PeriodPoint, n)
	for i, b := range bounds {
		income, expense, err := d.realizedTotals(ctx, dctx, b[0], b[1])
		if err != nil {
			return nil, err
		}
		points[i] = domain.PeriodPoint{PeriodLabel: labels[i], Income: income, Expenses: expense, Net: income.Sub(expense)}
	}

	// Back-compute running balance: the last point equals current
	// balance, earlier points subtract net moving backwards.
	running := balance
	for i := n - 1; i >= 0; i-- {
		points[i].RunningBalance = running
		running = running.Sub(points[i].Net)
	}

	return points, nil
}

func parseCategoryKey(key string) (uuid.UUID, error) {
	return uuid.Parse(key)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [8]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// CategoryBreakdown groups current-month expense transactions by
// category, with uncategorised rolled into one bucket.
func (d *DashboardAggregator) CategoryBreakdown(ctx context.Context, dctx domain.DataContext) ([]domain.CategoryBreakdownItem, error) {
	today := d.now()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	txns, err := d.transactionRepo.ListInRange(ctx, dctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]decimal.Decimal)
	names := make(map[string]string)
	total := decimal.Zero

	for _, t := range txns {
		if t.Type != domain.EntryTypeExpense {
			continue
		}
		key := "uncategorized"
		name := "Uncategorized"
		if t.CategoryID != nil {
			key = t.CategoryID.String()
			if _, seen := names[key]; !seen {
				if cat, err := d.categoryRepo.Get(ctx, dctx, *t.CategoryID); err == nil {
					name = cat.Name
				}
			} else {
				name = names[key]
			}
		}
		sums[key] = sums[key].Add(t.Amount)
		names[key] = name
		total = total.Add(t.Amount)
	}

	items := make([]domain.CategoryBreakdownItem, 0, len(sums))
	for key, amount := range sums {
		item := domain.CategoryBreakdownItem{CategoryName: names[key], Amount: amount}
		if key != "uncategorized" {
			if id, err := parseCategoryKey(key); err == nil {
				item.CategoryID = &id
			}
		}
		if total.IsPositive() {
			item.Percent = amount.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		}
		items = append(items, item)
	}
	return items, nil
}

// UpcomingPayments unions the next occurrence of every active fixed
// schedule, outstanding installment, and active loan within the next
// `days` days, sorted by due date.
func (d *DashboardAggregator) UpcomingPayments(ctx context.Context, dctx domain.DataContext, days int) ([]domain.UpcomingPayment, error) {
	today := d.now()
	windowEnd := today.AddDate(0, 0, days)

	var out []domain.UpcomingPayment

	fixed, err := d.fixedRepo.ListActive(ctx, dctx)
	if err != nil {
		return nil, err
	}
	for _, f := range fixed {
		if date, ok := nextOccurrenceInWindow(today, windowEnd, func(y, m int) (time.Time, bool) {
			monthStart := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
			if !f.AdmitsMonth(monthStart, monthStart.AddDate(0, 1, -1)) {
				return time.Time{}, false
			}
			return f.OccurrenceDate(y, m), true
		}); ok {
			out = append(out, domain.UpcomingPayment{Kind: "fixed", SourceID: f.ID, Name: f.Name, Amount: f.Amount, DueDate: date})
		}
	}

	installments, err := d.installmentRepo.ListOutstanding(ctx, dctx)
	if err != nil {
		return nil, err
	}
	for _, inst := range installments {
		k := inst.PaymentsCompleted + 1
		date := inst.OccurrenceDate(k)
		if !date.Before(today) && !date.After(windowEnd) {
			out = append(out, domain.UpcomingPayment{Kind: "installment", SourceID: inst.ID, Name: inst.Name, Amount: inst.PaymentAmountFor(k), DueDate: date})
		}
	}

	loans, err := d.loanRepo.ListActive(ctx, dctx)
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		if date, ok := nextOccurrenceInWindow(today, windowEnd, func(y, m int) (time.Time, bool) {
			if _, ok := loan.AdmitsMonth(y, m); !ok {
				return time.Time{}, false
			}
			return loan.OccurrenceDate(y, m), true
		}); ok {
			out = append(out, domain.UpcomingPayment{Kind: "loan", SourceID: loan.ID, Name: loan.Name, Amount: loan.MonthlyPayment, DueDate: date})
		}
	}

	sortUpcomingByDate(out)
	return out, nil
}

// nextOccurrenceInWindow scans the current and following month for the
// first admitted occurrence landing in [today, windowEnd].
func nextOccurrenceInWindow(today, windowEnd time.Time, occurrence func(year, month int) (time.Time, bool)) (time.Time, bool) {
	for i := 0; i < 2; i++ {
		t := today.AddDate(0, i, 0)
		if date, ok := occurrence(t.Year(), int(t.Month())); ok {
			if !date.Before(today) && !date.After(windowEnd) {
				return date, true
			}
		}
	}
	return time.Time{}, false
}

func sortUpcomingByDate(items []domain.UpcomingPayment) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].DueDate.Before(items[j-1].DueDate); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// FinancialHealthScore computes the weighted 0-100 score of §4.F from
// five factors: savings ratio (0.30), debt ratio (0.25), balance trend
// (0.20), expense stability (0.15), emergency fund (0.10).
func (d *DashboardAggregator) FinancialHealthScore(ctx context.Context, dctx domain.DataContext) (*domain.FinancialHealthScore, error) {
	today := d.now()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	monthlyExpenses := make([]decimal.Decimal, 3)
	monthlyIncome := make([]decimal.Decimal, 3)
	monthlyDebt := make([]decimal.Decimal, 3)
	for i := 0; i < 3; i++ {
		s := monthStart.AddDate(0, -i, 0)
		e := s.AddDate(0, 1, -1)
		occs, err := d.projection.Expand(ctx, dctx, s, e, "")
		if err != nil {
			return nil, err
		}
		income, expense, debt := decimal.Zero, decimal.Zero, decimal.Zero
		for _, o := range occs {
			if o.Type == domain.EntryTypeIncome {
				income = income.Add(o.Amount)
			} else {
				expense = expense.Add(o.Amount)
			}
			if o.Provenance == "loan" || o.Provenance == "installment" {
				debt = debt.Add(o.Amount)
			}
		}
		monthlyIncome[i] = income
		monthlyExpenses[i] = expense
		monthlyDebt[i] = debt
	}

	balance, _, err := d.currentBalance(ctx, dctx)
	if err != nil {
		return nil, err
	}

	savingsScore := savingsRatioScore(monthlyIncome[0], monthlyExpenses[0])
	debtScore := debtRatioScore(monthlyIncome[0], monthlyDebt[0])
	trendScore := balanceTrendScore(monthlyIncome[0].Sub(monthlyExpenses[0]), monthlyIncome[1].Sub(monthlyExpenses[1]))
	stabilityScore := expenseStabilityScore(monthlyExpenses)
	emergencyScore := emergencyFundScore(balance, monthlyExpenses)

	factors := []domain.HealthFactor{
		{Name: "savings_ratio", Score: savingsScore, Weight: decimal.NewFromFloat(0.30)},
		{Name: "debt_ratio", Score: debtScore, Weight: decimal.NewFromFloat(0.25)},
		{Name: "balance_trend", Score: trendScore, Weight: decimal.NewFromFloat(0.20)},
		{Name: "expense_stability", Score: stabilityScore, Weight: decimal.NewFromFloat(0.15)},
		{Name: "emergency_fund", Score: emergencyScore, Weight: decimal.NewFromFloat(0.10)},
	}

	weighted := decimal.Zero
	for _, f := range factors {
		weighted = weighted.Add(decimal.NewFromInt(int64(f.Score)).Mul(f.Weight))
	}
	score := int(weighted.Round(0).IntPart())

	return &domain.FinancialHealthScore{Score: score, Grade: gradeFor(score), Factors: factors}, nil
}

func savingsRatioScore(income, expense decimal.Decimal) int {
	if income.IsZero() {
		if expense.IsPositive() {
			return 0
		}
		return 50
	}
	ratio := income.Sub(expense).Div(income)
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(0.20)):
		return 100
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(0.10)):
		return 75
	case ratio.GreaterThanOrEqual(decimal.Zero):
		return 50
	default:
		return 0
	}
}

func debtRatioScore(income, debt decimal.Decimal) int {
	if income.IsZero() {
		if debt.IsZero() {
			return 100
		}
		return 0
	}
	ratio := debt.Div(income)
	switch {
	case ratio.LessThan(decimal.NewFromFloat(0.30)):
		return 100
	case ratio.LessThanOrEqual(decimal.NewFromFloat(0.50)):
		return 60
	default:
		return 20
	}
}

func balanceTrendScore(thisNet, prevNet decimal.Decimal) int {
	switch {
	case thisNet.GreaterThan(prevNet):
		return 100
	case thisNet.Equal(prevNet):
		return 70
	default:
		return 30
	}
}

// expenseStabilityScore uses the coefficient of variation (stddev/mean)
// of the last 3 months of expenses.
func expenseStabilityScore(monthly []decimal.Decimal) int {
	mean := decimal.Zero
	for _, m := range monthly {
		mean = mean.Add(m)
	}
	if mean.IsZero() {
		return 100
	}
	mean = mean.Div(decimal.NewFromInt(int64(len(monthly))))
	meanF, _ := mean.Float64()
	if meanF == 0 {
		return 100
	}

	var sumSq float64
	for _, m := range monthly {
		v, _ := m.Float64()
		diff := v - meanF
		sumSq += diff * diff
	}
	variance := sumSq / float64(len(monthly))
	cv := math.Sqrt(variance) / meanF

	switch {
	case cv < 0.15:
		return 100
	case cv < 0.30:
		return 70
	default:
		return 30
	}
}

func emergencyFundScore(balance decimal.Decimal, monthlyExpenses []decimal.Decimal) int {
	avg := decimal.Zero
	nonZero := 0
	for _, m := range monthlyExpenses {
		if m.IsPositive() {
			avg = avg.Add(m)
			nonZero++
		}
	}
	if nonZero == 0 {
		if balance.IsPositive() {
			return 100
		}
		return 50
	}
	avg = avg.Div(decimal.NewFromInt(int64(nonZero)))
	monthsCovered := balance.Div(avg)
	switch {
	case monthsCovered.GreaterThanOrEqual(decimal.NewFromInt(3)):
		return 100
	case monthsCovered.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return 60
	default:
		return 20
	}
}

func gradeFor(score int) domain.HealthGrade {
	switch {
	case score >= 80:
		return domain.GradeExcellent
	case score >= 60:
		return domain.GradeGood
	case score >= 40:
		return domain.GradeFair
	case score >= 20:
		return domain.GradePoor
	default:
		return domain.GradeCritical
	}
}
