package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/tenancy"
)

// AlertRepository is the pgx-backed implementation of domain.AlertRepository.
type AlertRepository struct {
	pool *pgxpool.Pool
}

func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

const alertColumns = `
	id, user_id, organization_id, key, alert_type, severity, title, message, related_entity_type,
	related_entity_id, related_month, is_read, is_dismissed, created_at`

func (r *AlertRepository) ListNonDismissedByKeyPrefix(ctx context.Context, dctx domain.DataContext, prefix string) ([]domain.Alert, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM alerts WHERE key LIKE $1 AND is_dismissed = false AND %s`, alertColumns, filter)
	rows, err := r.pool.Query(ctx, q, append([]any{prefix + "%"}, args...)...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list alerts by key prefix", err)
	}
	defer rows.Close()
	return scanAlertRowsAll(rows)
}

func (r *AlertRepository) List(ctx context.Context, dctx domain.DataContext, unreadOnly bool, page domain.Page) (domain.PagedResult[domain.Alert], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	where := filter + " AND is_dismissed = false"
	if unreadOnly {
		where += " AND is_read = false"
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM alerts WHERE %s`, where), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Alert]{}, domain.NewDependencyError("failed to count alerts", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM alerts WHERE %s ORDER BY severity DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		alertColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.Alert]{}, domain.NewDependencyError("failed to list alerts", err)
	}
	defer rows.Close()

	items, err := scanAlertRowsAll(rows)
	if err != nil {
		return domain.PagedResult[domain.Alert]{}, err
	}
	return domain.NewPagedResult(items, total, page), nil
}

// Reconcile implements the convergent-set protocol of §4.H: all existing
// alerts under keyPrefix, dismissed ones included, are matched against
// fresh by key; matches keep their id/is_read/is_dismissed/created_at
// (a dismissed alert stays dismissed), misses on the fresh side are
// inserted, and existing keys absent from fresh are deleted — all inside
// one transaction so a concurrent reader never observes a half-applied
// regeneration.
func (r *AlertRepository) Reconcile(ctx context.Context, dctx domain.DataContext, keyPrefix string, fresh []domain.Alert) ([]domain.Alert, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.NewDependencyError("failed to begin alert reconcile", err)
	}
	defer tx.Rollback(ctx)

	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	existingRows, err := tx.Query(ctx, fmt.Sprintf(`SELECT %s FROM alerts WHERE key LIKE $1 AND %s`, alertColumns, filter),
		append([]any{keyPrefix + "%"}, fargs...)...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to load existing alerts", err)
	}
	existing, err := scanAlertRowsAll(existingRows)
	existingRows.Close()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]domain.Alert, len(existing))
	for _, a := range existing {
		byKey[a.Key] = a
	}

	userID, orgID := dctx.Stamp()
	now := time.Now().UTC()
	freshKeys := make(map[string]bool, len(fresh))
	result := make([]domain.Alert, 0, len(fresh))

	for _, a := range fresh {
		freshKeys[a.Key] = true
		if old, ok := byKey[a.Key]; ok {
			a.ID = old.ID
			a.IsRead = old.IsRead
			a.IsDismissed = old.IsDismissed
			a.CreatedAt = old.CreatedAt
			const upd = `UPDATE alerts SET title=$2, message=$3, severity=$4, related_entity_id=$5, related_month=$6 WHERE id=$1`
			if _, err := tx.Exec(ctx, upd, a.ID, a.Title, a.Message, a.Severity, a.RelatedEntityID, a.RelatedMonth); err != nil {
				return nil, domain.NewDependencyError("failed to update alert", err)
			}
		} else {
			a.ID = uuid.New()
			a.UserID = userID
			a.OrganizationID = orgID
			a.CreatedAt = now
			ins := `INSERT INTO alerts (` + alertColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
			_, err := tx.Exec(ctx, ins, a.ID, a.UserID, a.OrganizationID, a.Key, a.AlertType, a.Severity, a.Title,
				a.Message, a.RelatedEntityType, a.RelatedEntityID, a.RelatedMonth, a.IsRead, a.IsDismissed, a.CreatedAt)
			if err != nil {
				return nil, domain.NewDependencyError("failed to insert alert", err)
			}
		}
		result = append(result, a)
	}

	for _, old := range existing {
		if !freshKeys[old.Key] {
			if _, err := tx.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, old.ID); err != nil {
				return nil, domain.NewDependencyError("failed to prune stale alert", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewDependencyError("failed to commit alert reconcile", err)
	}
	return result, nil
}

func (r *AlertRepository) MarkRead(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`UPDATE alerts SET is_read = true WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to mark alert read", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepository) Dismiss(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`UPDATE alerts SET is_dismissed = true WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to dismiss alert", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

func scanAlertRowsAll(rows pgx.Rows) ([]domain.Alert, error) {
	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		err := rows.Scan(&a.ID, &a.UserID, &a.OrganizationID, &a.Key, &a.AlertType, &a.Severity, &a.Title, &a.Message,
			&a.RelatedEntityType, &a.RelatedEntityID, &a.RelatedMonth, &a.IsRead, &a.IsDismissed, &a.CreatedAt)
		if err != nil {
			return nil, domain.NewDependencyError("failed to scan alert", err)
		}
		out = append(out, a)
	}
	return out, nil
}
