package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// BankBalanceService records snapshot balances, the anchor the forecast
// and projection engines start compounding occurrences from.
type BankBalanceService struct {
	repo  domain.BankBalanceRepository
	audit *audit.Recorder
}

func NewBankBalanceService(repo domain.BankBalanceRepository, auditRecorder *audit.Recorder) *BankBalanceService {
	return &BankBalanceService{repo: repo, audit: auditRecorder}
}

func (s *BankBalanceService) Create(ctx context.Context, dctx domain.DataContext, bal *domain.BankBalance) (*domain.BankBalance, error) {
	if err := bal.Validate(); err != nil {
		return nil, err
	}
	bal.IsCurrent = true
	created, err := s.repo.Create(ctx, dctx, bal)
	if err != nil {
		return nil, err
	}
	userID, orgID := dctx.Stamp()
	if s.audit != nil {
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "bank_balances", RecordID: created.ID, UserID: userID, Action: "CREATE",
			NewValues:      map[string]any{"balance": created.Balance.String(), "effective_date": created.EffectiveDate},
			OrganizationID: orgID,
		})
	}
	return created, nil
}

func (s *BankBalanceService) Current(ctx context.Context, dctx domain.DataContext) (*domain.BankBalance, error) {
	return s.repo.GetCurrent(ctx, dctx)
}

func (s *BankBalanceService) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.BankBalance], error) {
	return s.repo.List(ctx, dctx, page)
}

func (s *BankBalanceService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	return s.repo.Delete(ctx, dctx, id)
}

// ExpectedIncomeService owns per-month expected-income overrides the
// projection engine substitutes for a month with no realized income yet.
type ExpectedIncomeService struct {
	repo domain.ExpectedIncomeRepository
}

func NewExpectedIncomeService(repo domain.ExpectedIncomeRepository) *ExpectedIncomeService {
	return &ExpectedIncomeService{repo: repo}
}

func (s *ExpectedIncomeService) Upsert(ctx context.Context, dctx domain.DataContext, ei *domain.ExpectedIncome) (*domain.ExpectedIncome, error) {
	if err := ei.Validate(); err != nil {
		return nil, err
	}
	ei.Month = time.Date(ei.Month.Year(), ei.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.repo.Upsert(ctx, dctx, ei)
}

func (s *ExpectedIncomeService) ForMonth(ctx context.Context, dctx domain.DataContext, month time.Time) (*domain.ExpectedIncome, error) {
	return s.repo.GetForMonth(ctx, dctx, month)
}

func (s *ExpectedIncomeService) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.ExpectedIncome], error) {
	return s.repo.List(ctx, dctx, page)
}

func (s *ExpectedIncomeService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	return s.repo.Delete(ctx, dctx, id)
}
