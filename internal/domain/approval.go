package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalStatus is a closed enumeration; both terminal transitions
// reject a second call with a conflict error (ErrApprovalAlreadyResolved).
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ExpenseApproval is an org-scoped spend request gated by role (§3).
type ExpenseApproval struct {
	ID               uuid.UUID       `json:"id"`
	OrganizationID   uuid.UUID       `json:"organizationId"`
	RequestedBy      uuid.UUID       `json:"requestedBy"`
	Status           ApprovalStatus  `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	CategoryID       *uuid.UUID      `json:"categoryId,omitempty"`
	Description      string          `json:"description"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	ApprovedBy       *uuid.UUID      `json:"approvedBy,omitempty"`
	TransactionID    *uuid.UUID      `json:"transactionId,omitempty"`
	RequestedAt      time.Time       `json:"requestedAt"`
	ResolvedAt       *time.Time      `json:"resolvedAt,omitempty"`
}

func (a *ExpenseApproval) Validate() error {
	if err := ValidateAmount(a.Amount); err != nil {
		return err
	}
	if err := ValidateCurrency(a.Currency); err != nil {
		return err
	}
	desc, err := ValidateName(a.Description)
	if err != nil {
		return err
	}
	a.Description = desc
	return nil
}

// ExpenseApprovalRepository persists approvals.
type ExpenseApprovalRepository interface {
	Create(ctx context.Context, dctx DataContext, a *ExpenseApproval) (*ExpenseApproval, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*ExpenseApproval, error)
	List(ctx context.Context, dctx DataContext, status *ApprovalStatus, page Page) (PagedResult[ExpenseApproval], error)
	// LockForUpdate acquires a row lock before a terminal transition.
	LockForUpdate(ctx context.Context, dctx DataContext, id uuid.UUID) (*ExpenseApproval, error)
	Resolve(ctx context.Context, dctx DataContext, a *ExpenseApproval) (*ExpenseApproval, error)
}

// AuditLogEntry is an append-only mutation record (§3, §4.L).
type AuditLogEntry struct {
	ID             uuid.UUID         `json:"id"`
	TableName      string            `json:"tableName"`
	RecordID       uuid.UUID         `json:"recordId"`
	UserID         uuid.UUID         `json:"userId"`
	Action         string            `json:"action"`
	OldValues      map[string]any    `json:"oldValues,omitempty"`
	NewValues      map[string]any    `json:"newValues,omitempty"`
	ChangedAt      time.Time         `json:"changedAt"`
	OrganizationID *uuid.UUID        `json:"organizationId,omitempty"`
}

// AuditLogRepository appends and lists audit entries; reads are
// org-scoped and role-gated at the service layer (owner|admin).
type AuditLogRepository interface {
	Append(ctx context.Context, entry *AuditLogEntry) error
	ListForOrganization(ctx context.Context, orgID uuid.UUID, page Page) (PagedResult[AuditLogEntry], error)
	ListForRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]AuditLogEntry, error)
}
