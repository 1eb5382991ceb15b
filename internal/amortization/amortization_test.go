package amortization

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildSchedule_ZeroInterest_SumsToOriginal(t *testing.T) {
	// Scenario (b): original=10000, monthly=1000, interest=0, n=10.
	p := Params{
		OriginalAmount:     decimal.NewFromInt(10000),
		MonthlyPayment:     decimal.NewFromInt(1000),
		InterestRateAnnual: decimal.Zero,
		TotalPayments:      10,
		StartDate:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		DayOfMonth:         15,
	}
	rows := BuildSchedule(p, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}

	sumPrincipal := decimal.Zero
	for _, r := range rows {
		sumPrincipal = sumPrincipal.Add(r.Principal)
		if !r.Interest.IsZero() {
			t.Errorf("row %d: expected zero interest, got %s", r.Index, r.Interest)
		}
		if !r.Principal.Add(r.Interest).Equal(r.PaymentAmount) {
			t.Errorf("row %d: principal+interest != payment_amount", r.Index)
		}
	}
	if !sumPrincipal.Equal(p.OriginalAmount) {
		t.Errorf("sum(principal) = %s, want %s", sumPrincipal, p.OriginalAmount)
	}
	if !rows[9].RemainingAfter.IsZero() {
		t.Errorf("final remaining balance = %s, want 0", rows[9].RemainingAfter)
	}
}

func TestBuildSchedule_WithInterest_LastRowAbsorbsResidue(t *testing.T) {
	// Scenario (c): original=12000, monthly=1066.19, interest=12%, n=12.
	p := Params{
		OriginalAmount:     decimal.NewFromFloat(12000),
		MonthlyPayment:     decimal.NewFromFloat(1066.19),
		InterestRateAnnual: decimal.NewFromInt(12),
		TotalPayments:      12,
		StartDate:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DayOfMonth:         1,
	}
	rows := BuildSchedule(p, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	sumPrincipal := decimal.Zero
	for i, r := range rows {
		sumPrincipal = sumPrincipal.Add(r.Principal)
		if !r.Principal.Add(r.Interest).Equal(r.PaymentAmount) {
			t.Errorf("row %d: principal(%s)+interest(%s) != payment_amount(%s)", i+1, r.Principal, r.Interest, r.PaymentAmount)
		}
	}
	if !sumPrincipal.Equal(p.OriginalAmount) {
		t.Errorf("sum(principal) = %s, want %s", sumPrincipal, p.OriginalAmount)
	}
	if !rows[len(rows)-1].RemainingAfter.IsZero() {
		t.Errorf("final remaining balance = %s, want 0", rows[len(rows)-1].RemainingAfter)
	}
}

func TestValidateAmortizes_RejectsNonAmortizingPayment(t *testing.T) {
	p := Params{
		OriginalAmount:     decimal.NewFromInt(100000),
		MonthlyPayment:     decimal.NewFromInt(10),
		InterestRateAnnual: decimal.NewFromInt(24),
		TotalPayments:      12,
		StartDate:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DayOfMonth:         1,
	}
	if err := p.ValidateAmortizes(); err == nil {
		t.Fatal("expected InvalidLoan error when monthly payment does not cover interest")
	}
}

func TestBuildSchedule_EndOfMonthClamping(t *testing.T) {
	// A day_of_month=31 schedule starting in January lands on the last
	// day of February, not March 3 (§9 end-of-month clamping).
	p := Params{
		OriginalAmount: decimal.NewFromInt(1000),
		MonthlyPayment: decimal.NewFromInt(500),
		TotalPayments:  3,
		StartDate:      time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		DayOfMonth:     31,
	}
	rows := BuildSchedule(p, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	if rows[1].PaymentDate.Day() != 28 || rows[1].PaymentDate.Month() != time.February {
		t.Errorf("row 2 date = %s, want Feb 28 2026", rows[1].PaymentDate)
	}
}

func TestRemainingBalanceAfter_ZeroPaymentsReturnsOriginal(t *testing.T) {
	p := Params{
		OriginalAmount: decimal.NewFromInt(5000),
		MonthlyPayment: decimal.NewFromInt(500),
		TotalPayments:  10,
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DayOfMonth:     1,
	}
	got := RemainingBalanceAfter(p, 0, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if !got.Equal(p.OriginalAmount) {
		t.Errorf("RemainingBalanceAfter(0) = %s, want %s", got, p.OriginalAmount)
	}
}
