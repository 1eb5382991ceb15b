package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardSummary is the headline KPI block (§4.F).
type DashboardSummary struct {
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	MonthToDateIncome decimal.Decimal `json:"monthToDateIncome"`
	MonthToDateExpense decimal.Decimal `json:"monthToDateExpense"`
	MonthToDateNet   decimal.Decimal `json:"monthToDateNet"`
	TrendPercent     decimal.Decimal `json:"trendPercent"`
}

// PeriodPoint is one point of a period series; running balance is
// back-computed so the final point equals the current balance.
type PeriodPoint struct {
	PeriodLabel    string          `json:"periodLabel"`
	Income         decimal.Decimal `json:"income"`
	Expenses       decimal.Decimal `json:"expenses"`
	Net            decimal.Decimal `json:"net"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
}

// CategoryBreakdownItem is one category's share of current-month
// expenses.
type CategoryBreakdownItem struct {
	CategoryID   *uuid.UUID      `json:"categoryId,omitempty"`
	CategoryName string          `json:"categoryName"`
	Amount       decimal.Decimal `json:"amount"`
	Percent      decimal.Decimal `json:"percent"`
}

// UpcomingPayment is one due occurrence within the lookahead window.
type UpcomingPayment struct {
	Kind      string          `json:"kind"` // fixed | installment | loan
	SourceID  uuid.UUID       `json:"sourceId"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   time.Time       `json:"dueDate"`
}

// HealthGrade is a closed enumeration for the financial health score.
type HealthGrade string

const (
	GradeExcellent HealthGrade = "excellent"
	GradeGood      HealthGrade = "good"
	GradeFair      HealthGrade = "fair"
	GradePoor      HealthGrade = "poor"
	GradeCritical  HealthGrade = "critical"
)

// HealthFactor is one weighted input to the financial health score.
type HealthFactor struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`  // 0-100 bucketed
	Weight decimal.Decimal `json:"weight"`
}

// FinancialHealthScore is the weighted-sum output of §4.F.
type FinancialHealthScore struct {
	Score   int            `json:"score"`
	Grade   HealthGrade    `json:"grade"`
	Factors []HealthFactor `json:"factors"`
}
