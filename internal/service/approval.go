package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
	"fortunaflow/internal/tenancy"
)

// ApprovalService runs the org-scoped expense approval workflow (§4.K):
// a member submits a request, an admin or owner approves or rejects it,
// and approval materialises the spend as a transaction in one step.
type ApprovalService struct {
	repo            domain.ExpenseApprovalRepository
	transactionRepo domain.TransactionRepository
	audit           *audit.Recorder
}

func NewApprovalService(repo domain.ExpenseApprovalRepository, transactionRepo domain.TransactionRepository, auditRecorder *audit.Recorder) *ApprovalService {
	return &ApprovalService{repo: repo, transactionRepo: transactionRepo, audit: auditRecorder}
}

// Submit requires at least member role; any org member may request an
// approval for their own spend.
func (s *ApprovalService) Submit(ctx context.Context, dctx domain.DataContext, approval *domain.ExpenseApproval) (*domain.ExpenseApproval, error) {
	if err := tenancy.Require(dctx, tenancy.ActionApprovalSubmit); err != nil {
		return nil, err
	}
	if err := approval.Validate(); err != nil {
		return nil, err
	}
	approval.OrganizationID = dctx.OrganizationID
	approval.RequestedBy = dctx.UserID
	approval.Status = domain.ApprovalPending
	approval.RequestedAt = time.Now().UTC()

	created, err := s.repo.Create(ctx, dctx, approval)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		orgID := &dctx.OrganizationID
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "expense_approvals", RecordID: created.ID, UserID: dctx.UserID, Action: "SUBMIT",
			NewValues: map[string]any{"amount": created.Amount.String(), "description": created.Description}, OrganizationID: orgID,
		})
	}
	return created, nil
}

func (s *ApprovalService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.ExpenseApproval, error) {
	return s.repo.Get(ctx, dctx, id)
}

func (s *ApprovalService) List(ctx context.Context, dctx domain.DataContext, status *domain.ApprovalStatus, page domain.Page) (domain.PagedResult[domain.ExpenseApproval], error) {
	return s.repo.List(ctx, dctx, status, page)
}

// Approve requires admin role or better; it resolves the request and
// materialises the spend as an expense transaction in the same call.
func (s *ApprovalService) Approve(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.ExpenseApproval, error) {
	if err := tenancy.Require(dctx, tenancy.ActionApprovalResolve); err != nil {
		return nil, err
	}
	approval, err := s.repo.LockForUpdate(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if approval.Status != domain.ApprovalPending {
		return nil, domain.ErrApprovalAlreadyResolved
	}

	orgID := dctx.OrganizationID
	txn := &domain.Transaction{
		UserID: approval.RequestedBy, OrganizationID: &orgID,
		Amount: approval.Amount, Currency: approval.Currency,
		Type: domain.EntryTypeExpense, CategoryID: approval.CategoryID,
		Description:  approvalDescription(approval),
		Date:         time.Now().UTC(),
		EntryPattern: domain.EntryPatternOneTime,
	}
	txn, err = s.transactionRepo.Create(ctx, dctx, txn)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	approved := dctx.UserID
	approval.Status = domain.ApprovalApproved
	approval.ApprovedBy = &approved
	approval.TransactionID = &txn.ID
	approval.ResolvedAt = &now

	resolved, err := s.repo.Resolve(ctx, dctx, approval)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "expense_approvals", RecordID: resolved.ID, UserID: dctx.UserID, Action: "APPROVE",
			NewValues: map[string]any{"transaction_id": txn.ID}, OrganizationID: &orgID,
		})
	}
	return resolved, nil
}

// Reject requires admin role or better and a non-empty reason.
func (s *ApprovalService) Reject(ctx context.Context, dctx domain.DataContext, id uuid.UUID, reason string) (*domain.ExpenseApproval, error) {
	if err := tenancy.Require(dctx, tenancy.ActionApprovalResolve); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, domain.ErrApprovalRejectionReasonRequired
	}
	approval, err := s.repo.LockForUpdate(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if approval.Status != domain.ApprovalPending {
		return nil, domain.ErrApprovalAlreadyResolved
	}

	now := time.Now().UTC()
	approval.Status = domain.ApprovalRejected
	approval.RejectionReason = &reason
	approval.ResolvedAt = &now

	resolved, err := s.repo.Resolve(ctx, dctx, approval)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		orgID := dctx.OrganizationID
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "expense_approvals", RecordID: resolved.ID, UserID: dctx.UserID, Action: "REJECT",
			NewValues: map[string]any{"reason": reason}, OrganizationID: &orgID,
		})
	}
	return resolved, nil
}

func approvalDescription(a *domain.ExpenseApproval) string {
	if a.Description != "" {
		return a.Description
	}
	return "Approved expense"
}
