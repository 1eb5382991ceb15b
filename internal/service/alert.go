package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fortunaflow/internal/domain"
)

const (
	highSingleExpenseThreshold = 5000
	highExpensesNetThreshold   = -10000
	approachingNegativeCeiling = 1000
	criticalCashflowFloor      = -5000
	highIncomeMultiplier       = 1.5
	upcomingPaymentWindowDays  = 3
	loanEndingSoonPayments     = 3
	installmentEndingSoonPmts = 2
	alertForecastMonths        = 6
)

// AlertEngine regenerates the full set of alerts for a data context by
// comparing fresh forecast and entity scans against everything already
// stored under the prefix, dismissed alerts included, via the repository's
// convergent-set Reconcile (§4.H). is_read, is_dismissed and created_at
// survive across regenerations because matching is keyed, not a
// delete-then-recreate.
type AlertEngine struct {
	alertRepo       domain.AlertRepository
	transactionRepo domain.TransactionRepository
	installmentRepo domain.InstallmentRepository
	loanRepo        domain.LoanRepository
	forecast        *ForecastEngine
	now             func() time.Time
}

func NewAlertEngine(
	alertRepo domain.AlertRepository,
	transactionRepo domain.TransactionRepository,
	installmentRepo domain.InstallmentRepository,
	loanRepo domain.LoanRepository,
	forecast *ForecastEngine,
) *AlertEngine {
	return &AlertEngine{
		alertRepo: alertRepo, transactionRepo: transactionRepo, installmentRepo: installmentRepo,
		loanRepo: loanRepo, forecast: forecast, now: func() time.Time { return time.Now().UTC() },
	}
}

// Generate rebuilds every alert for the context and reconciles the result
// against storage in one pass.
func (e *AlertEngine) Generate(ctx context.Context, dctx domain.DataContext) ([]domain.Alert, error) {
	var fresh []domain.Alert

	forecastAlerts, err := e.forecastAlerts(ctx, dctx)
	if err != nil {
		// A broken forecast degrades gracefully: entity-based alerts still
		// regenerate, matching the teacher's fallback behaviour.
		forecastAlerts = nil
	}
	fresh = append(fresh, forecastAlerts...)

	entityAlerts, err := e.entityAlerts(ctx, dctx)
	if err != nil {
		return nil, err
	}
	fresh = append(fresh, entityAlerts...)

	return e.alertRepo.Reconcile(ctx, dctx, "", fresh)
}

func (e *AlertEngine) forecastAlerts(ctx context.Context, dctx domain.DataContext) ([]domain.Alert, error) {
	mf, err := e.forecast.ComputeMonthlyForecast(ctx, dctx, alertForecastMonths)
	if err != nil {
		return nil, err
	}

	var alerts []domain.Alert
	for _, m := range mf.Months {
		month := m.Month

		switch {
		case m.Closing.IsNegative():
			severity := domain.SeverityWarning
			title := fmt.Sprintf("Negative balance expected in %s", month.Format("January 2006"))
			if m.Closing.LessThan(decimal.NewFromInt(criticalCashflowFloor)) {
				severity = domain.SeverityCritical
			}
			message := fmt.Sprintf(
				"Projected closing balance for %s is %s.\nIncome: %s, Expenses: %s, Net: %s.",
				month.Format("January 2006"), m.Closing.StringFixed(2), m.TotalIncome.StringFixed(2),
				m.TotalExpenses.StringFixed(2), m.Net.StringFixed(2))
			alerts = append(alerts, e.monthAlert("negative_cashflow", severity, title, message, month))

		case m.Closing.GreaterThanOrEqual(decimal.Zero) && m.Closing.LessThan(decimal.NewFromInt(approachingNegativeCeiling)):
			title := fmt.Sprintf("Low balance expected in %s", month.Format("January 2006"))
			message := fmt.Sprintf("Projected closing balance for %s is only %s.", month.Format("January 2006"), m.Closing.StringFixed(2))
			alerts = append(alerts, e.monthAlert("approaching_negative", domain.SeverityInfo, title, message, month))
		}

		if m.Net.LessThan(decimal.NewFromInt(highExpensesNetThreshold)) {
			title := fmt.Sprintf("High-expense month: %s", month.Format("January 2006"))
			message := fmt.Sprintf("Expenses in %s are unusually high. Income: %s, Expenses: %s, Net: %s.",
				month.Format("January 2006"), m.TotalIncome.StringFixed(2), m.TotalExpenses.StringFixed(2), m.Net.StringFixed(2))
			alerts = append(alerts, e.monthAlert("high_expenses", domain.SeverityInfo, title, message, month))
		}
	}
	return alerts, nil
}

func (e *AlertEngine) monthAlert(alertType string, severity domain.AlertSeverity, title, message string, month time.Time) domain.Alert {
	m := month
	return domain.Alert{
		Key:               fmt.Sprintf("%s:%s", alertType, month.Format("2006-01")),
		AlertType:         alertType,
		Severity:          severity,
		Title:             title,
		Message:           message,
		RelatedEntityType: "forecast",
		RelatedMonth:      &m,
	}
}

func (e *AlertEngine) entityAlerts(ctx context.Context, dctx domain.DataContext) ([]domain.Alert, error) {
	today := e.now()
	var alerts []domain.Alert

	hs, err := e.highSingleExpenseAlerts(ctx, dctx, today)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, hs...)

	hi, err := e.highIncomeAlert(ctx, dctx, today)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, hi...)

	installments, err := e.installmentRepo.ListOutstanding(ctx, dctx)
	if err != nil {
		return nil, err
	}
	loans, err := e.loanRepo.ListActive(ctx, dctx)
	if err != nil {
		return nil, err
	}

	alerts = append(alerts, installmentLifecycleAlerts(installments, today)...)
	alerts = append(alerts, loanLifecycleAlerts(loans, today)...)

	return alerts, nil
}

func (e *AlertEngine) highSingleExpenseAlerts(ctx context.Context, dctx domain.DataContext, today time.Time) ([]domain.Alert, error) {
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	txns, err := e.transactionRepo.ListInRange(ctx, dctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	var alerts []domain.Alert
	threshold := decimal.NewFromInt(highSingleExpenseThreshold)
	for i := range txns {
		t := txns[i]
		if t.Type != domain.EntryTypeExpense || !t.Amount.GreaterThan(threshold) {
			continue
		}
		desc := t.Description
		if desc == "" {
			desc = "no description"
		}
		title := fmt.Sprintf("Large expense recorded: %s", t.Amount.StringFixed(2))
		message := fmt.Sprintf("A large one-time expense was recorded.\nAmount: %s\nDescription: %s\nDate: %s",
			t.Amount.StringFixed(2), desc, t.Date.Format("2006-01-02"))
		id := t.ID
		alerts = append(alerts, domain.Alert{
			Key: fmt.Sprintf("high_single_expense:%s", id), AlertType: "high_single_expense",
			Severity: domain.SeverityWarning, Title: title, Message: message,
			RelatedEntityType: "transaction", RelatedEntityID: &id,
		})
	}
	return alerts, nil
}

func (e *AlertEngine) highIncomeAlert(ctx context.Context, dctx domain.DataContext, today time.Time) ([]domain.Alert, error) {
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	current, err := sumIncome(ctx, e.transactionRepo, dctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	if !current.IsPositive() {
		return nil, nil
	}

	prevStart := monthStart.AddDate(0, -3, 0)
	prevEnd := monthStart.AddDate(0, 0, -1)
	prevTotal, err := sumIncome(ctx, e.transactionRepo, dctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}
	avg := prevTotal.Div(decimal.NewFromInt(3))
	if !avg.IsPositive() || current.LessThanOrEqual(avg.Mul(decimal.NewFromFloat(highIncomeMultiplier))) {
		return nil, nil
	}

	title := fmt.Sprintf("Unusually high income: %s", monthStart.Format("January 2006"))
	message := fmt.Sprintf("Income this month: %s. 3-month average: %s.", current.StringFixed(2), avg.StringFixed(2))
	return []domain.Alert{e.monthAlert("high_income", domain.SeverityInfo, title, message, monthStart)}, nil
}

func sumIncome(ctx context.Context, repo domain.TransactionRepository, dctx domain.DataContext, start, end time.Time) (decimal.Decimal, error) {
	txns, err := repo.ListInRange(ctx, dctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range txns {
		if t.Type == domain.EntryTypeIncome {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func installmentLifecycleAlerts(installments []domain.Installment, today time.Time) []domain.Alert {
	var alerts []domain.Alert
	for i := range installments {
		inst := installments[i]
		remaining := inst.NumberOfPayments - inst.PaymentsCompleted
		if remaining <= 0 {
			continue
		}
		id := inst.ID
		due := inst.OccurrenceDate(inst.PaymentsCompleted + 1)

		switch {
		case due.Before(today):
			title := fmt.Sprintf("Payment overdue: %s", inst.Name)
			message := fmt.Sprintf("Installment payment for %s was due on %s and has not been recorded.",
				inst.Name, due.Format("2006-01-02"))
			alerts = append(alerts, domain.Alert{
				Key: fmt.Sprintf("payment_overdue:installment:%s", id), AlertType: "payment_overdue",
				Severity: domain.SeverityCritical, Title: title, Message: message,
				RelatedEntityType: "installment", RelatedEntityID: &id,
			})
		case !due.Before(today) && !due.After(today.AddDate(0, 0, upcomingPaymentWindowDays)):
			title := fmt.Sprintf("Upcoming payment: %s", inst.Name)
			message := fmt.Sprintf("Installment payment for %s is due on %s.", inst.Name, due.Format("2006-01-02"))
			alerts = append(alerts, domain.Alert{
				Key: fmt.Sprintf("upcoming_payment:installment:%s:%s", id, due.Format("2006-01-02")), AlertType: "upcoming_payment",
				Severity: domain.SeverityInfo, Title: title, Message: message,
				RelatedEntityType: "installment", RelatedEntityID: &id,
			})
		}

		if remaining < installmentEndingSoonPmts {
			title := fmt.Sprintf("Installment plan ending soon: %s", inst.Name)
			message := fmt.Sprintf("%d payment(s) remaining on %s.", remaining, inst.Name)
			alerts = append(alerts, domain.Alert{
				Key: fmt.Sprintf("installment_ending_soon:%s", id), AlertType: "installment_ending_soon",
				Severity: domain.SeverityInfo, Title: title, Message: message,
				RelatedEntityType: "installment", RelatedEntityID: &id,
			})
		}
	}
	return alerts
}

func loanLifecycleAlerts(loans []domain.Loan, today time.Time) []domain.Alert {
	var alerts []domain.Alert
	for i := range loans {
		loan := loans[i]
		remaining := loan.TotalPayments - loan.PaymentsMade
		if remaining <= 0 {
			continue
		}
		id := loan.ID
		year, month := monthForOccurrence(loan.StartDate, loan.PaymentsMade+1)
		due := loan.OccurrenceDate(year, month)

		switch {
		case due.Before(today):
			title := fmt.Sprintf("Payment overdue: %s", loan.Name)
			message := fmt.Sprintf("Loan payment for %s was due on %s and has not been recorded.",
				loan.Name, due.Format("2006-01-02"))
			alerts = append(alerts, domain.Alert{
				Key: fmt.Sprintf("payment_overdue:loan:%s", id), AlertType: "payment_overdue",
				Severity: domain.SeverityCritical, Title: title, Message: message,
				RelatedEntityType: "loan", RelatedEntityID: &id,
			})
		case !due.Before(today) && !due.After(today.AddDate(0, 0, upcomingPaymentWindowDays)):
			title := fmt.Sprintf("Upcoming payment: %s", loan.Name)
			message := fmt.Sprintf("Loan payment for %s is due on %s.", loan.Name, due.Format("2006-01-02"))
			alerts = append(alerts, domain.Alert{
				Key: fmt.Sprintf("upcoming_payment:loan:%s:%s", id, due.Format("2006-01-02")), AlertType: "upcoming_payment",
				Severity: domain.SeverityInfo, Title: title, Message: message,
				RelatedEntityType: "loan", RelatedEntityID: &id,
			})
		}

		if remaining < loanEndingSoonPayments {
			title := fmt.Sprintf("Loan ending soon: %s", loan.Name)
			message := fmt.Sprintf("%d payment(s) remaining on %s.", remaining, loan.Name)
			alerts = append(alerts, domain.Alert{
				Key: fmt.Sprintf("loan_ending_soon:%s", id), AlertType: "loan_ending_soon",
				Severity: domain.SeverityInfo, Title: title, Message: message,
				RelatedEntityType: "loan", RelatedEntityID: &id,
			})
		}
	}
	return alerts
}
