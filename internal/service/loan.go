package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/amortization"
	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// LoanService owns loan CRUD and the amortisation schedule view.
// Payment recording/reversal lives in PaymentCoordinator.
type LoanService struct {
	repo  domain.LoanRepository
	audit *audit.Recorder
}

func NewLoanService(repo domain.LoanRepository, auditRecorder *audit.Recorder) *LoanService {
	return &LoanService{repo: repo, audit: auditRecorder}
}

func (s *LoanService) Create(ctx context.Context, dctx domain.DataContext, loan *domain.Loan) (*domain.Loan, error) {
	if err := loan.Validate(); err != nil {
		return nil, err
	}
	loan.RemainingBalance = loan.OriginalAmount
	loan.Status = domain.LoanActive
	created, err := s.repo.Create(ctx, dctx, loan)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "CREATE", created.ID, loanAuditFields(created))
	return created, nil
}

func (s *LoanService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Loan, error) {
	return s.repo.Get(ctx, dctx, id)
}

func (s *LoanService) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.Loan], error) {
	return s.repo.List(ctx, dctx, page)
}

func (s *LoanService) Active(ctx context.Context, dctx domain.DataContext) ([]domain.Loan, error) {
	return s.repo.ListActive(ctx, dctx)
}

func (s *LoanService) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Loan) error) (*domain.Loan, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(l *domain.Loan) error {
		if err := patch(l); err != nil {
			return err
		}
		return l.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "UPDATE", id, loanAuditFields(updated))
	return updated, nil
}

// Pause flips a loan out of the automation processor's due set without
// losing its position in the amortisation schedule.
func (s *LoanService) Pause(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Loan, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(l *domain.Loan) error {
		l.Status = domain.LoanPaused
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "PAUSE", id, loanAuditFields(updated))
	return updated, nil
}

func (s *LoanService) Resume(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Loan, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(l *domain.Loan) error {
		if l.Status == domain.LoanPaused {
			l.Status = domain.LoanActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "RESUME", id, loanAuditFields(updated))
	return updated, nil
}

func (s *LoanService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, dctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, dctx, "DELETE", id, nil)
	return nil
}

// Schedule returns the full amortisation schedule for a loan, the
// breakdown handler exposes for a "view schedule" screen.
func (s *LoanService) Schedule(ctx context.Context, dctx domain.DataContext, id uuid.UUID, today time.Time) ([]amortization.Row, error) {
	loan, err := s.repo.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	return amortization.BuildSchedule(loan.AmortizationParams(), today), nil
}

func (s *LoanService) recordAudit(ctx context.Context, dctx domain.DataContext, action string, id uuid.UUID, after map[string]any) {
	if s.audit == nil {
		return
	}
	userID, orgID := dctx.Stamp()
	_ = s.audit.Record(ctx, audit.Entry{TableName: "loans", RecordID: id, UserID: userID, Action: action, NewValues: after, OrganizationID: orgID})
}

func loanAuditFields(l *domain.Loan) map[string]any {
	return map[string]any{"name": l.Name, "original_amount": l.OriginalAmount.String(), "status": l.Status}
}
