package service

import (
	"context"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// InstallmentService owns installment CRUD. Payment recording/reversal
// lives in PaymentCoordinator, the single place that mutates
// payments_completed alongside its materialised transaction.
type InstallmentService struct {
	repo  domain.InstallmentRepository
	audit *audit.Recorder
}

func NewInstallmentService(repo domain.InstallmentRepository, auditRecorder *audit.Recorder) *InstallmentService {
	return &InstallmentService{repo: repo, audit: auditRecorder}
}

func (s *InstallmentService) Create(ctx context.Context, dctx domain.DataContext, inst *domain.Installment) (*domain.Installment, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, dctx, inst)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "CREATE", created.ID, installmentAuditFields(created))
	return created, nil
}

func (s *InstallmentService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Installment, error) {
	return s.repo.Get(ctx, dctx, id)
}

func (s *InstallmentService) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.Installment], error) {
	return s.repo.List(ctx, dctx, page)
}

func (s *InstallmentService) Outstanding(ctx context.Context, dctx domain.DataContext) ([]domain.Installment, error) {
	return s.repo.ListOutstanding(ctx, dctx)
}

func (s *InstallmentService) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Installment) error) (*domain.Installment, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(inst *domain.Installment) error {
		if err := patch(inst); err != nil {
			return err
		}
		return inst.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "UPDATE", id, installmentAuditFields(updated))
	return updated, nil
}

func (s *InstallmentService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, dctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, dctx, "DELETE", id, nil)
	return nil
}

func (s *InstallmentService) recordAudit(ctx context.Context, dctx domain.DataContext, action string, id uuid.UUID, after map[string]any) {
	if s.audit == nil {
		return
	}
	userID, orgID := dctx.Stamp()
	_ = s.audit.Record(ctx, audit.Entry{TableName: "installments", RecordID: id, UserID: userID, Action: action, NewValues: after, OrganizationID: orgID})
}

func installmentAuditFields(i *domain.Installment) map[string]any {
	return map[string]any{"name": i.Name, "total_amount": i.TotalAmount.String(), "number_of_payments": i.NumberOfPayments}
}
