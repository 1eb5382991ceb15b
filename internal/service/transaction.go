package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// MaxBulkTransactions caps BulkCreate/BulkDelete at 500 rows per call.
const MaxBulkTransactions = 500

// TransactionService owns transaction CRUD, bulk import/cleanup, and the
// ownership-filtered row source CSV export reads from.
type TransactionService struct {
	repo  domain.TransactionRepository
	audit *audit.Recorder
}

func NewTransactionService(repo domain.TransactionRepository, auditRecorder *audit.Recorder) *TransactionService {
	return &TransactionService{repo: repo, audit: auditRecorder}
}

func (s *TransactionService) Create(ctx context.Context, dctx domain.DataContext, txn *domain.Transaction) (*domain.Transaction, error) {
	if err := txn.Validate(); err != nil {
		return nil, err
	}
	txn.EntryPattern = domain.EntryPatternOneTime
	created, err := s.repo.Create(ctx, dctx, txn)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "CREATE", created.ID, transactionAuditFields(created))
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Transaction, error) {
	return s.repo.Get(ctx, dctx, id)
}

func (s *TransactionService) List(ctx context.Context, dctx domain.DataContext, filter domain.TransactionFilter, page domain.Page) (domain.PagedResult[domain.Transaction], error) {
	return s.repo.List(ctx, dctx, filter, page)
}

func (s *TransactionService) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Transaction) error) (*domain.Transaction, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(t *domain.Transaction) error {
		if err := patch(t); err != nil {
			return err
		}
		return t.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "UPDATE", id, transactionAuditFields(updated))
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, dctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, dctx, "DELETE", id, nil)
	return nil
}

// BulkCreate validates and inserts up to MaxBulkTransactions rows as one
// logical unit, emitting one audit entry per created row, tagged
// BULK_CREATE.
func (s *TransactionService) BulkCreate(ctx context.Context, dctx domain.DataContext, txns []*domain.Transaction) ([]*domain.Transaction, error) {
	if len(txns) == 0 {
		return nil, domain.NewSchemaError("at least one transaction is required")
	}
	if len(txns) > MaxBulkTransactions {
		return nil, domain.NewSchemaError("at most 500 transactions may be submitted per call")
	}
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		t.EntryPattern = domain.EntryPatternOneTime
	}
	created, err := s.repo.BulkCreate(ctx, dctx, txns)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		userID, orgID := dctx.Stamp()
		action := audit.BulkAction("CREATE")
		for _, t := range created {
			_ = s.audit.Record(ctx, audit.Entry{
				TableName: "transactions", RecordID: t.ID, UserID: userID, Action: action,
				NewValues: transactionAuditFields(t), OrganizationID: orgID,
			})
		}
	}
	return created, nil
}

// BulkUpdateItem pairs an id with the patch to apply; used by BulkUpdate.
type BulkUpdateItem struct {
	ID    uuid.UUID
	Patch func(*domain.Transaction) error
}

// BulkUpdate applies each item's patch independently, tagging every
// affected row BULK_UPDATE (one audit entry per row, per §9 Open
// Question resolution). A single item's failure does not abort the
// rest — the caller gets back a per-id error slice the same length as
// items.
func (s *TransactionService) BulkUpdate(ctx context.Context, dctx domain.DataContext, items []BulkUpdateItem) ([]*domain.Transaction, []error) {
	if len(items) > MaxBulkTransactions {
		return nil, []error{domain.NewSchemaError("at most 500 updates may be submitted per call")}
	}
	results := make([]*domain.Transaction, len(items))
	errs := make([]error, len(items))
	for i, item := range items {
		updated, err := s.repo.Update(ctx, dctx, item.ID, func(t *domain.Transaction) error {
			if err := item.Patch(t); err != nil {
				return err
			}
			return t.Validate()
		})
		if err != nil {
			errs[i] = err
			continue
		}
		results[i] = updated
		if s.audit != nil {
			userID, orgID := dctx.Stamp()
			_ = s.audit.Record(ctx, audit.Entry{
				TableName: "transactions", RecordID: updated.ID, UserID: userID, Action: audit.BulkAction("UPDATE"),
				NewValues: transactionAuditFields(updated), OrganizationID: orgID,
			})
		}
	}
	return results, errs
}

// BulkDelete removes up to MaxBulkTransactions rows by ID as one logical
// unit, emitting one audit entry per deleted row tagged BULK_DELETE so
// the history stays row-traceable instead of a single rollup note.
func (s *TransactionService) BulkDelete(ctx context.Context, dctx domain.DataContext, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, domain.NewSchemaError("at least one id is required")
	}
	if len(ids) > MaxBulkTransactions {
		return 0, domain.NewSchemaError("at most 500 ids may be submitted per call")
	}
	count, err := s.repo.BulkDelete(ctx, dctx, ids)
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		userID, orgID := dctx.Stamp()
		action := audit.BulkAction("DELETE")
		for _, id := range ids {
			_ = s.audit.Record(ctx, audit.Entry{TableName: "transactions", RecordID: id, UserID: userID, Action: action, OrganizationID: orgID})
		}
	}
	return count, nil
}

// Export returns the ownership-filtered row set the csvexport package
// serialises; it never paginates, matching the repository's dedicated
// export path.
func (s *TransactionService) Export(ctx context.Context, dctx domain.DataContext, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	return s.repo.ExportRows(ctx, dctx, filter)
}

func (s *TransactionService) recordAudit(ctx context.Context, dctx domain.DataContext, action string, id uuid.UUID, after map[string]any) {
	if s.audit == nil {
		return
	}
	userID, orgID := dctx.Stamp()
	_ = s.audit.Record(ctx, audit.Entry{TableName: "transactions", RecordID: id, UserID: userID, Action: action, NewValues: after, OrganizationID: orgID})
}

func transactionAuditFields(t *domain.Transaction) map[string]any {
	return map[string]any{"amount": t.Amount.String(), "type": t.Type, "date": t.Date.Format(time.RFC3339)}
}
