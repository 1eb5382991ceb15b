package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/automation"
	"fortunaflow/internal/config"
	"fortunaflow/internal/currency"
	"fortunaflow/internal/handler"
	"fortunaflow/internal/middleware"
	"fortunaflow/internal/repository/postgres"
	"fortunaflow/internal/service"
	"fortunaflow/internal/tenancy"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	orgRepo := postgres.NewOrganizationRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	fixedRepo := postgres.NewFixedScheduleRepository(pool)
	installmentRepo := postgres.NewInstallmentRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	bankBalanceRepo := postgres.NewBankBalanceRepository(pool)
	expectedIncomeRepo := postgres.NewExpectedIncomeRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	creditCardRepo := postgres.NewCreditCardRepository(pool)
	alertRepo := postgres.NewAlertRepository(pool)
	approvalRepo := postgres.NewExpenseApprovalRepository(pool)
	auditRepo := postgres.NewAuditLogRepository(pool)

	auditRecorder := audit.NewRecorder(auditRepo)

	// Exchange rates are static until a live provider is wired in; a
	// missing pair fails open rather than blocking the write path.
	rateTable := currency.NewStaticRateTable(map[string]decimal.Decimal{
		"USD/ILS": decimal.NewFromFloat(3.7),
		"ILS/USD": decimal.NewFromFloat(0.27),
		"EUR/ILS": decimal.NewFromFloat(4.0),
		"ILS/EUR": decimal.NewFromFloat(0.25),
		"USD/EUR": decimal.NewFromFloat(0.92),
		"EUR/USD": decimal.NewFromFloat(1.09),
	})
	currencySvc := currency.NewService(rateTable)

	// Services
	categoryService := service.NewCategoryService(categoryRepo, auditRecorder)
	transactionService := service.NewTransactionService(transactionRepo, auditRecorder)
	fixedScheduleService := service.NewFixedScheduleService(fixedRepo, auditRecorder)
	installmentService := service.NewInstallmentService(installmentRepo, auditRecorder)
	loanService := service.NewLoanService(loanRepo, auditRecorder)
	paymentCoordinator := service.NewPaymentCoordinator(loanRepo, installmentRepo, transactionRepo, auditRecorder)
	bankBalanceService := service.NewBankBalanceService(bankBalanceRepo, auditRecorder)
	expectedIncomeService := service.NewExpectedIncomeService(expectedIncomeRepo)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, creditCardRepo, auditRecorder)
	creditCardService := service.NewCreditCardService(creditCardRepo, auditRecorder)
	approvalService := service.NewApprovalService(approvalRepo, transactionRepo, auditRecorder)
	organizationService := service.NewOrganizationService(orgRepo, userRepo, auditRecorder)

	projectionService := service.NewProjectionService(transactionRepo, fixedRepo, installmentRepo, loanRepo, currencySvc)
	forecastEngine := service.NewForecastEngine(projectionService, bankBalanceRepo, expectedIncomeRepo)
	dashboardAggregator := service.NewDashboardAggregator(transactionRepo, categoryRepo, bankBalanceRepo, fixedRepo, installmentRepo, loanRepo, projectionService)
	alertEngine := service.NewAlertEngine(alertRepo, transactionRepo, installmentRepo, loanRepo, forecastEngine)

	processor := automation.NewProcessor(loanRepo, fixedRepo, installmentRepo, transactionRepo)
	scheduler := automation.NewScheduler(processor, userRepo, orgRepo, cfg.AutomationCronSpec)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start automation scheduler")
	}

	tenancyBuilder := tenancy.NewBuilder(userRepo, orgRepo)

	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, tenancyBuilder)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Handlers
	handlers := &handler.Handlers{
		Transaction:    handler.NewTransactionHandler(transactionService, categoryService),
		Category:       handler.NewCategoryHandler(categoryService),
		FixedSchedule:  handler.NewFixedScheduleHandler(fixedScheduleService),
		Installment:    handler.NewInstallmentHandler(installmentService, paymentCoordinator),
		Loan:           handler.NewLoanHandler(loanService, paymentCoordinator),
		BankBalance:    handler.NewBankBalanceHandler(bankBalanceService),
		ExpectedIncome: handler.NewExpectedIncomeHandler(expectedIncomeService),
		Subscription:   handler.NewSubscriptionHandler(subscriptionService),
		CreditCard:     handler.NewCreditCardHandler(creditCardService),
		Alert:          handler.NewAlertHandler(alertEngine, alertRepo),
		Approval:       handler.NewApprovalHandler(approvalService),
		Organization:   handler.NewOrganizationHandler(organizationService),
		Dashboard:      handler.NewDashboardHandler(dashboardAggregator),
		Forecast:       handler.NewForecastHandler(forecastEngine),
		Automation:     handler.NewAutomationHandler(processor),
		Audit:          handler.NewAuditHandler(auditRepo),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Organization-Id"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", "v1")
			return next(c)
		}
	})

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handlers)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
