// Package amortization computes the Spitzer (constant-payment,
// declining-balance) schedule for a loan, per (C). Pure function of loan
// parameters and payments_made — no I/O.
package amortization

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPaymentTooLow is returned by ValidateAmortizes when monthly_payment
// does not exceed the first period's interest on the original amount —
// the loan would never amortise (InvalidLoan, §4.C). Callers that need a
// domain-typed invariant error wrap this one.
var ErrPaymentTooLow = errors.New("monthly payment does not cover interest on the original amount")

// RowStatus tags a schedule row relative to today.
type RowStatus string

const (
	StatusPaid    RowStatus = "paid"
	StatusOverdue RowStatus = "overdue"
	StatusDue     RowStatus = "due"
	StatusFuture  RowStatus = "future"
)

// Row is one payment of the schedule.
type Row struct {
	Index          int
	PaymentDate    time.Time
	Interest       decimal.Decimal
	Principal      decimal.Decimal
	PaymentAmount  decimal.Decimal
	RemainingAfter decimal.Decimal
	Status         RowStatus
}

// Params are the loan fields the schedule is a pure function of.
type Params struct {
	OriginalAmount     decimal.Decimal
	MonthlyPayment     decimal.Decimal
	InterestRateAnnual decimal.Decimal // percent, e.g. 12 for 12%
	TotalPayments      int
	StartDate          time.Time
	DayOfMonth         int
	PaymentsMade       int
}

var hundred = decimal.NewFromInt(100)
var twelve = decimal.NewFromInt(12)

// MonthlyRate returns interest_rate/100/12, or zero when there is no
// interest.
func (p Params) MonthlyRate() decimal.Decimal {
	if p.InterestRateAnnual.IsZero() {
		return decimal.Zero
	}
	return p.InterestRateAnnual.Div(hundred).Div(twelve)
}

// ValidateAmortizes enforces that monthly_payment is strictly greater than
// the first month's interest on the original amount — otherwise the loan
// would never amortise (InvalidLoan error per 4.C).
func (p Params) ValidateAmortizes() error {
	rate := p.MonthlyRate()
	if rate.IsZero() {
		return nil
	}
	firstInterest := p.OriginalAmount.Mul(rate).Round(2)
	if p.MonthlyPayment.LessThanOrEqual(firstInterest) {
		return ErrPaymentTooLow
	}
	return nil
}

// BuildSchedule computes the full schedule, rows 1..TotalPayments.
func BuildSchedule(p Params, today time.Time) []Row {
	rows := make([]Row, 0, p.TotalPayments)
	remaining := p.OriginalAmount
	rate := p.MonthlyRate()

	for i := 1; i <= p.TotalPayments; i++ {
		paymentDate := addMonthsClamped(p.StartDate, i-1, p.DayOfMonth)

		interest := remaining.Mul(rate).Round(2)

		var principal, paymentAmount decimal.Decimal
		if i < p.TotalPayments {
			principal = p.MonthlyPayment.Sub(interest)
			if principal.GreaterThan(remaining) {
				principal = remaining
			}
			paymentAmount = p.MonthlyPayment
		} else {
			// Last row absorbs all rounding drift.
			principal = remaining
			paymentAmount = remaining.Add(interest)
		}

		remaining = remaining.Sub(principal)
		if remaining.LessThan(decimal.NewFromFloat(0.01)) {
			remaining = decimal.Zero
		}

		rows = append(rows, Row{
			Index:          i,
			PaymentDate:    paymentDate,
			Interest:       interest,
			Principal:      principal,
			PaymentAmount:  paymentAmount,
			RemainingAfter: remaining,
			Status:         rowStatus(i, paymentDate, p.PaymentsMade, today),
		})
	}
	return rows
}

// RemainingBalanceAfter returns the remaining_balance immediately after
// the given number of payments, reconstructed from the schedule rather
// than guessed — used by Loan.ReversePayment (4.J) so interest accrual
// stays consistent.
func RemainingBalanceAfter(p Params, payments int, today time.Time) decimal.Decimal {
	if payments <= 0 {
		return p.OriginalAmount
	}
	rows := BuildSchedule(p, today)
	if payments > len(rows) {
		payments = len(rows)
	}
	return rows[payments-1].RemainingAfter
}

func rowStatus(index int, paymentDate time.Time, paymentsMade int, today time.Time) RowStatus {
	if index <= paymentsMade {
		return StatusPaid
	}
	if paymentDate.Before(today) {
		return StatusOverdue
	}
	if paymentDate.Year() == today.Year() && paymentDate.Month() == today.Month() {
		return StatusDue
	}
	return StatusFuture
}

// addMonthsClamped adds n months to start and clamps the day-of-month to
// the last day of the resulting month (end-of-month clamping, §9).
func addMonthsClamped(start time.Time, n int, dayOfMonth int) time.Time {
	y, m, _ := start.Date()
	total := int(m) - 1 + n
	year := y + total/12
	month := total%12 + 1
	if month <= 0 {
		month += 12
		year--
	}
	day := clampDayToMonth(year, month, dayOfMonth)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// clampDayToMonth mirrors domain.ClampDayToMonth — duplicated here (rather
// than imported) so this package stays a dependency-free leaf; domain
// depends on amortization for Params, so the reverse import would cycle.
func clampDayToMonth(year, month, day int) int {
	last := daysInMonth(year, month)
	if day > last {
		return last
	}
	return day
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	default:
		return 30
	}
}
