package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/tenancy"
)

// CategoryRepository is the pgx-backed implementation of
// domain.CategoryRepository (§4.A Entity Store).
type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) Create(ctx context.Context, dctx domain.DataContext, cat *domain.Category) (*domain.Category, error) {
	userID, orgID := dctx.Stamp()
	cat.ID = uuid.New()
	cat.UserID = userID
	cat.OrganizationID = orgID
	now := time.Now().UTC()
	cat.CreatedAt, cat.UpdatedAt = now, now

	const q = `
		INSERT INTO categories (id, user_id, organization_id, name, name_he, type, color, icon, is_archived, parent_id, display_order, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.pool.Exec(ctx, q, cat.ID, cat.UserID, cat.OrganizationID, cat.Name, cat.NameHe, cat.Type,
		cat.Color, cat.Icon, cat.IsArchived, cat.ParentID, cat.DisplayOrder, cat.CreatedAt, cat.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create category", err)
	}
	return cat, nil
}

func (r *CategoryRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Category, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`
		SELECT id, user_id, organization_id, name, name_he, type, color, icon, is_archived, parent_id, display_order, created_at, updated_at
		FROM categories WHERE id = $1 AND %s`, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanCategory(row)
}

func (r *CategoryRepository) List(ctx context.Context, dctx domain.DataContext, includeArchived bool, page domain.Page) (domain.PagedResult[domain.Category], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	where := filter
	if !includeArchived {
		where += " AND is_archived = false"
	}
	var total int
	countQ := fmt.Sprintf(`SELECT count(*) FROM categories WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Category]{}, domain.NewDependencyError("failed to count categories", err)
	}

	q := fmt.Sprintf(`
		SELECT id, user_id, organization_id, name, name_he, type, color, icon, is_archived, parent_id, display_order, created_at, updated_at
		FROM categories WHERE %s ORDER BY display_order ASC, name ASC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.Category]{}, domain.NewDependencyError("failed to list categories", err)
	}
	defer rows.Close()

	items := make([]domain.Category, 0, page.PageSize)
	for rows.Next() {
		cat, err := scanCategoryRows(rows)
		if err != nil {
			return domain.PagedResult[domain.Category]{}, err
		}
		items = append(items, *cat)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *CategoryRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Category) error) (*domain.Category, error) {
	cat, err := r.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch(cat); err != nil {
		return nil, err
	}
	cat.UpdatedAt = time.Now().UTC()

	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(9)
	q := fmt.Sprintf(`
		UPDATE categories SET name=$2, name_he=$3, type=$4, color=$5, icon=$6, is_archived=$7, display_order=$8, updated_at=$9
		WHERE id=$1 AND %s`, filter)
	args := append([]any{id, cat.Name, cat.NameHe, cat.Type, cat.Color, cat.Icon, cat.IsArchived, cat.DisplayOrder, cat.UpdatedAt}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update category", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrCategoryNotFound
	}
	return cat, nil
}

func (r *CategoryRepository) Archive(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(2)
	q := fmt.Sprintf(`UPDATE categories SET is_archived=true, updated_at=$2 WHERE id=$1 AND %s`, filter)
	args := append([]any{id, time.Now().UTC()}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return domain.NewDependencyError("failed to archive category", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM categories WHERE id=$1 AND %s`, filter)
	args := append([]any{id}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return domain.NewDependencyError("failed to delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) HasDependents(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM transactions WHERE category_id = $1
			UNION ALL SELECT 1 FROM fixed_schedules WHERE category_id = $1
			UNION ALL SELECT 1 FROM installments WHERE category_id = $1
			UNION ALL SELECT 1 FROM loans WHERE category_id = $1
		)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, domain.NewDependencyError("failed to check category dependents", err)
	}
	return exists, nil
}

func (r *CategoryRepository) ExistsActiveDuplicate(ctx context.Context, dctx domain.DataContext, name string, entryType domain.EntryType, excludeID *uuid.UUID) (bool, error) {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(2)
	q := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM categories WHERE name=$1 AND type=$2 AND is_archived=false AND %s AND ($4::uuid IS NULL OR id != $4))`, filter)
	args := append([]any{name, entryType}, fargs...)
	args = append(args, excludeID)
	var exists bool
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&exists); err != nil {
		return false, domain.NewDependencyError("failed to check category duplicate", err)
	}
	return exists, nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.UserID, &c.OrganizationID, &c.Name, &c.NameHe, &c.Type, &c.Color, &c.Icon,
		&c.IsArchived, &c.ParentID, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, domain.NewDependencyError("failed to scan category", err)
	}
	return &c, nil
}

func scanCategoryRows(rows pgx.Rows) (*domain.Category, error) {
	var c domain.Category
	err := rows.Scan(&c.ID, &c.UserID, &c.OrganizationID, &c.Name, &c.NameHe, &c.Type, &c.Color, &c.Icon,
		&c.IsArchived, &c.ParentID, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan category", err)
	}
	return &c, nil
}
