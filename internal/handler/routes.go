package handler

import (
	"github.com/labstack/echo/v4"

	"fortunaflow/internal/middleware"
)

// Handlers bundles every route handler RegisterRoutes wires up.
type Handlers struct {
	Transaction      *TransactionHandler
	Category         *CategoryHandler
	FixedSchedule    *FixedScheduleHandler
	Installment      *InstallmentHandler
	Loan             *LoanHandler
	BankBalance      *BankBalanceHandler
	ExpectedIncome   *ExpectedIncomeHandler
	Subscription     *SubscriptionHandler
	CreditCard       *CreditCardHandler
	Alert            *AlertHandler
	Approval         *ApprovalHandler
	Organization     *OrganizationHandler
	Dashboard        *DashboardHandler
	Forecast         *ForecastHandler
	Automation       *AutomationHandler
	Audit            *AuditHandler
}

// RegisterRoutes wires every handler into its route group under
// /api/v1, all protected by Auth0 JWT validation (§4.I, §6).
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h *Handlers) {
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	txn := api.Group("/transactions")
	txn.POST("", h.Transaction.Create)
	txn.GET("", h.Transaction.List)
	txn.GET("/export", h.Transaction.ExportCSV)
	txn.POST("/bulk", h.Transaction.BulkCreate)
	txn.PUT("/bulk-update", h.Transaction.BulkUpdate)
	txn.POST("/bulk-delete", h.Transaction.BulkDelete)
	txn.GET("/:id", h.Transaction.Get)
	txn.PUT("/:id", h.Transaction.Update)
	txn.DELETE("/:id", h.Transaction.Delete)

	cat := api.Group("/categories")
	cat.POST("", h.Category.Create)
	cat.GET("", h.Category.List)
	cat.GET("/:id", h.Category.Get)
	cat.PUT("/:id", h.Category.Update)
	cat.POST("/:id/archive", h.Category.Archive)
	cat.DELETE("/:id", h.Category.Delete)

	fixed := api.Group("/fixed-schedules")
	fixed.POST("", h.FixedSchedule.Create)
	fixed.GET("", h.FixedSchedule.List)
	fixed.GET("/:id", h.FixedSchedule.Get)
	fixed.PUT("/:id", h.FixedSchedule.Update)
	fixed.POST("/:id/pause", h.FixedSchedule.Pause)
	fixed.POST("/:id/resume", h.FixedSchedule.Resume)
	fixed.DELETE("/:id", h.FixedSchedule.Delete)

	inst := api.Group("/installments")
	inst.POST("", h.Installment.Create)
	inst.GET("", h.Installment.List)
	inst.GET("/outstanding", h.Installment.Outstanding)
	inst.GET("/:id", h.Installment.Get)
	inst.PUT("/:id", h.Installment.Update)
	inst.DELETE("/:id", h.Installment.Delete)
	inst.POST("/:id/payments", h.Installment.RecordPayment)
	inst.DELETE("/:id/payments", h.Installment.ReversePayment)

	loan := api.Group("/loans")
	loan.POST("", h.Loan.Create)
	loan.GET("", h.Loan.List)
	loan.GET("/active", h.Loan.Active)
	loan.GET("/:id", h.Loan.Get)
	loan.PUT("/:id", h.Loan.Update)
	loan.DELETE("/:id", h.Loan.Delete)
	loan.POST("/:id/pause", h.Loan.Pause)
	loan.POST("/:id/resume", h.Loan.Resume)
	loan.GET("/:id/schedule", h.Loan.Schedule)
	loan.POST("/:id/payments", h.Loan.RecordPayment)
	loan.DELETE("/:id/payments", h.Loan.ReversePayment)

	balances := api.Group("/bank-balances")
	balances.POST("", h.BankBalance.Create)
	balances.GET("", h.BankBalance.List)
	balances.GET("/current", h.BankBalance.Current)
	balances.DELETE("/:id", h.BankBalance.Delete)

	expected := api.Group("/expected-income")
	expected.PUT("", h.ExpectedIncome.Upsert)
	expected.GET("", h.ExpectedIncome.List)
	expected.GET("/month", h.ExpectedIncome.ForMonth)
	expected.DELETE("/:id", h.ExpectedIncome.Delete)

	sub := api.Group("/subscriptions")
	sub.POST("", h.Subscription.Create)
	sub.GET("", h.Subscription.List)
	sub.GET("/due-renewals", h.Subscription.DueRenewals)
	sub.GET("/:id", h.Subscription.Get)
	sub.PUT("/:id", h.Subscription.Update)
	sub.DELETE("/:id", h.Subscription.Delete)
	sub.POST("/:id/pause", h.Subscription.Pause)
	sub.POST("/:id/resume", h.Subscription.Resume)

	cc := api.Group("/credit-cards")
	cc.POST("", h.CreditCard.Create)
	cc.GET("", h.CreditCard.List)
	cc.GET("/:id", h.CreditCard.Get)
	cc.PUT("/:id", h.CreditCard.Update)
	cc.DELETE("/:id", h.CreditCard.Delete)

	alerts := api.Group("/alerts")
	alerts.POST("/generate", h.Alert.Generate)
	alerts.GET("", h.Alert.List)
	alerts.POST("/:id/read", h.Alert.MarkRead)
	alerts.POST("/:id/dismiss", h.Alert.Dismiss)

	approvals := api.Group("/approvals")
	approvals.POST("", h.Approval.Submit)
	approvals.GET("", h.Approval.List)
	approvals.GET("/:id", h.Approval.Get)
	approvals.POST("/:id/approve", h.Approval.Approve)
	approvals.POST("/:id/reject", h.Approval.Reject)

	orgs := api.Group("/organizations")
	orgs.POST("", h.Organization.Create)
	orgs.GET("/:id", h.Organization.Get)
	orgs.PUT("/:id", h.Organization.Update)
	orgs.DELETE("/:id", h.Organization.Delete)
	orgs.GET("/:id/members", h.Organization.ListMembers)
	orgs.POST("/:id/members", h.Organization.AddMember)
	orgs.DELETE("/:id/members/:userId", h.Organization.RemoveMember)
	orgs.PUT("/:id/members/:userId/role", h.Organization.ChangeMemberRole)
	orgs.POST("/:id/members/:userId/reactivate", h.Organization.ReactivateMember)

	dashboard := api.Group("/dashboard")
	dashboard.GET("/summary", h.Dashboard.Summary)
	dashboard.GET("/periods", h.Dashboard.PeriodSeries)
	dashboard.GET("/category-breakdown", h.Dashboard.CategoryBreakdown)
	dashboard.GET("/upcoming-payments", h.Dashboard.UpcomingPayments)
	dashboard.GET("/health-score", h.Dashboard.FinancialHealthScore)

	forecast := api.Group("/forecast")
	forecast.GET("/monthly", h.Forecast.Monthly)
	forecast.GET("/weekly", h.Forecast.Weekly)

	api.POST("/automation/process", h.Automation.Process)

	audit := api.Group("/audit")
	audit.GET("", h.Audit.ListForOrganization)
	audit.GET("/:table/:id", h.Audit.ListForRecord)
}
