package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortunaflow/internal/domain"
)

// ExpenseApprovalRepository is the pgx-backed implementation of
// domain.ExpenseApprovalRepository. Approvals are always organization-
// scoped (§3), so filtering is a plain organization_id predicate rather
// than the personal/org OwnershipFilter.
type ExpenseApprovalRepository struct {
	pool *pgxpool.Pool
}

func NewExpenseApprovalRepository(pool *pgxpool.Pool) *ExpenseApprovalRepository {
	return &ExpenseApprovalRepository{pool: pool}
}

const approvalColumns = `
	id, organization_id, requested_by, status, amount, currency, category_id, description, rejection_reason,
	approved_by, transaction_id, requested_at, resolved_at`

func (r *ExpenseApprovalRepository) Create(ctx context.Context, dctx domain.DataContext, a *domain.ExpenseApproval) (*domain.ExpenseApproval, error) {
	a.ID = uuid.New()
	a.OrganizationID = dctx.OrganizationID
	a.Status = domain.ApprovalPending
	a.RequestedAt = time.Now().UTC()

	q := `INSERT INTO expense_approvals (` + approvalColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.pool.Exec(ctx, q, a.ID, a.OrganizationID, a.RequestedBy, a.Status, decimalToPgNumeric(a.Amount),
		a.Currency, a.CategoryID, a.Description, a.RejectionReason, a.ApprovedBy, a.TransactionID, a.RequestedAt, a.ResolvedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create expense approval", err)
	}
	return a, nil
}

func (r *ExpenseApprovalRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.ExpenseApproval, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+approvalColumns+` FROM expense_approvals WHERE id = $1 AND organization_id = $2`, id, dctx.OrganizationID)
	return scanApproval(row)
}

func (r *ExpenseApprovalRepository) List(ctx context.Context, dctx domain.DataContext, status *domain.ApprovalStatus, page domain.Page) (domain.PagedResult[domain.ExpenseApproval], error) {
	page = page.Normalize()
	where := "organization_id = $1"
	args := []any{dctx.OrganizationID}
	if status != nil {
		args = append(args, *status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM expense_approvals WHERE %s`, where), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.ExpenseApproval]{}, domain.NewDependencyError("failed to count approvals", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM expense_approvals WHERE %s ORDER BY requested_at DESC LIMIT $%d OFFSET $%d`,
		approvalColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.ExpenseApproval]{}, domain.NewDependencyError("failed to list approvals", err)
	}
	defer rows.Close()

	items := make([]domain.ExpenseApproval, 0, page.PageSize)
	for rows.Next() {
		a, err := scanApprovalRows(rows)
		if err != nil {
			return domain.PagedResult[domain.ExpenseApproval]{}, err
		}
		items = append(items, *a)
	}
	return domain.NewPagedResult(items, total, page), nil
}

// LockForUpdate takes a row lock before a terminal approve/reject
// transition, preventing a double-resolution race (§4.K).
func (r *ExpenseApprovalRepository) LockForUpdate(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.ExpenseApproval, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+approvalColumns+` FROM expense_approvals WHERE id = $1 AND organization_id = $2 FOR UPDATE`,
		id, dctx.OrganizationID)
	return scanApproval(row)
}

func (r *ExpenseApprovalRepository) Resolve(ctx context.Context, dctx domain.DataContext, a *domain.ExpenseApproval) (*domain.ExpenseApproval, error) {
	now := time.Now().UTC()
	a.ResolvedAt = &now
	const q = `
		UPDATE expense_approvals SET status=$3, rejection_reason=$4, approved_by=$5, transaction_id=$6, resolved_at=$7
		WHERE id=$1 AND organization_id=$2`
	tag, err := r.pool.Exec(ctx, q, a.ID, dctx.OrganizationID, a.Status, a.RejectionReason, a.ApprovedBy, a.TransactionID, a.ResolvedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to resolve expense approval", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrApprovalNotFound
	}
	return a, nil
}

func scanApproval(row pgx.Row) (*domain.ExpenseApproval, error) {
	var a domain.ExpenseApproval
	var amount pgtype.Numeric
	err := row.Scan(&a.ID, &a.OrganizationID, &a.RequestedBy, &a.Status, &amount, &a.Currency, &a.CategoryID,
		&a.Description, &a.RejectionReason, &a.ApprovedBy, &a.TransactionID, &a.RequestedAt, &a.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrApprovalNotFound
		}
		return nil, domain.NewDependencyError("failed to scan expense approval", err)
	}
	a.Amount = pgNumericToDecimal(amount)
	return &a, nil
}

func scanApprovalRows(rows pgx.Rows) (*domain.ExpenseApproval, error) {
	var a domain.ExpenseApproval
	var amount pgtype.Numeric
	err := rows.Scan(&a.ID, &a.OrganizationID, &a.RequestedBy, &a.Status, &amount, &a.Currency, &a.CategoryID,
		&a.Description, &a.RejectionReason, &a.ApprovedBy, &a.TransactionID, &a.RequestedAt, &a.ResolvedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan expense approval", err)
	}
	a.Amount = pgNumericToDecimal(amount)
	return &a, nil
}

// AuditLogRepository is the pgx-backed implementation of
// domain.AuditLogRepository — append-only, written inside the caller's
// mutation transaction (§4.L).
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{pool: pool}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	entry.ID = uuid.New()
	entry.ChangedAt = time.Now().UTC()
	oldValues, err := json.Marshal(entry.OldValues)
	if err != nil {
		return domain.NewDependencyError("failed to marshal old values", err)
	}
	newValues, err := json.Marshal(entry.NewValues)
	if err != nil {
		return domain.NewDependencyError("failed to marshal new values", err)
	}
	const q = `
		INSERT INTO audit_log (id, table_name, record_id, user_id, action, old_values, new_values, changed_at, organization_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = r.pool.Exec(ctx, q, entry.ID, entry.TableName, entry.RecordID, entry.UserID, entry.Action,
		oldValues, newValues, entry.ChangedAt, entry.OrganizationID)
	if err != nil {
		return domain.NewDependencyError("failed to append audit log entry", err)
	}
	return nil
}

func (r *AuditLogRepository) ListForOrganization(ctx context.Context, orgID uuid.UUID, page domain.Page) (domain.PagedResult[domain.AuditLogEntry], error) {
	page = page.Normalize()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_log WHERE organization_id = $1`, orgID).Scan(&total); err != nil {
		return domain.PagedResult[domain.AuditLogEntry]{}, domain.NewDependencyError("failed to count audit log", err)
	}

	const q = `
		SELECT id, table_name, record_id, user_id, action, old_values, new_values, changed_at, organization_id
		FROM audit_log WHERE organization_id = $1 ORDER BY changed_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, orgID, page.PageSize, page.Offset())
	if err != nil {
		return domain.PagedResult[domain.AuditLogEntry]{}, domain.NewDependencyError("failed to list audit log", err)
	}
	defer rows.Close()

	items, err := scanAuditRows(rows)
	if err != nil {
		return domain.PagedResult[domain.AuditLogEntry]{}, err
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *AuditLogRepository) ListForRecord(ctx context.Context, tableName string, recordID uuid.UUID) ([]domain.AuditLogEntry, error) {
	const q = `
		SELECT id, table_name, record_id, user_id, action, old_values, new_values, changed_at, organization_id
		FROM audit_log WHERE table_name = $1 AND record_id = $2 ORDER BY changed_at DESC`
	rows, err := r.pool.Query(ctx, q, tableName, recordID)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list audit log for record", err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func scanAuditRows(rows pgx.Rows) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		var oldValues, newValues []byte
		err := rows.Scan(&e.ID, &e.TableName, &e.RecordID, &e.UserID, &e.Action, &oldValues, &newValues, &e.ChangedAt, &e.OrganizationID)
		if err != nil {
			return nil, domain.NewDependencyError("failed to scan audit log entry", err)
		}
		if len(oldValues) > 0 {
			if err := json.Unmarshal(oldValues, &e.OldValues); err != nil {
				return nil, domain.NewDependencyError("failed to unmarshal old values", err)
			}
		}
		if len(newValues) > 0 {
			if err := json.Unmarshal(newValues, &e.NewValues); err != nil {
				return nil, domain.NewDependencyError("failed to unmarshal new values", err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}
