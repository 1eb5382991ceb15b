package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortunaflow/internal/domain"
)

// OrganizationRepository is the pgx-backed implementation of
// domain.OrganizationRepository.
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	org.ID = uuid.New()
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	const q = `
		INSERT INTO organizations (id, name, slug, owner_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, q, org.ID, org.Name, org.Slug, org.OwnerID, org.IsActive, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create organization", err)
	}
	return org, nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, slug, owner_id, is_active, created_at, updated_at FROM organizations WHERE id = $1`, id)
	return scanOrganization(row)
}

func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, slug, owner_id, is_active, created_at, updated_at FROM organizations WHERE slug = $1`, slug)
	return scanOrganization(row)
}

func (r *OrganizationRepository) Update(ctx context.Context, org *domain.Organization) (*domain.Organization, error) {
	org.UpdatedAt = time.Now().UTC()
	const q = `UPDATE organizations SET name=$2, slug=$3, is_active=$4, updated_at=$5 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, org.ID, org.Name, org.Slug, org.IsActive, org.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update organization", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}

func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return domain.NewDependencyError("failed to delete organization", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

func (r *OrganizationRepository) AddMember(ctx context.Context, member *domain.OrgMember) (*domain.OrgMember, error) {
	member.ID = uuid.New()
	now := time.Now().UTC()
	member.CreatedAt, member.UpdatedAt = now, now
	const q = `
		INSERT INTO org_members (id, organization_id, user_id, role, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, q, member.ID, member.OrganizationID, member.UserID, member.Role, member.IsActive, member.CreatedAt, member.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to add member", err)
	}
	return member, nil
}

func (r *OrganizationRepository) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*domain.OrgMember, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, user_id, role, is_active, created_at, updated_at
		FROM org_members WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	return scanOrgMember(row)
}

func (r *OrganizationRepository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]domain.OrgMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, user_id, role, is_active, created_at, updated_at
		FROM org_members WHERE organization_id = $1 AND is_active = true ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list members", err)
	}
	defer rows.Close()

	var out []domain.OrgMember
	for rows.Next() {
		var m domain.OrgMember
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, domain.NewDependencyError("failed to scan member", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *OrganizationRepository) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role domain.Role) error {
	const q = `UPDATE org_members SET role=$3, updated_at=$4 WHERE organization_id=$1 AND user_id=$2`
	tag, err := r.pool.Exec(ctx, q, orgID, userID, role, time.Now().UTC())
	if err != nil {
		return domain.NewDependencyError("failed to update member role", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("member not found")
	}
	return nil
}

func (r *OrganizationRepository) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	const q = `UPDATE org_members SET is_active=false, updated_at=$3 WHERE organization_id=$1 AND user_id=$2`
	tag, err := r.pool.Exec(ctx, q, orgID, userID, time.Now().UTC())
	if err != nil {
		return domain.NewDependencyError("failed to remove member", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("member not found")
	}
	return nil
}

func (r *OrganizationRepository) ReactivateMember(ctx context.Context, orgID, userID uuid.UUID) (*domain.OrgMember, error) {
	const q = `UPDATE org_members SET is_active=true, updated_at=$3 WHERE organization_id=$1 AND user_id=$2`
	tag, err := r.pool.Exec(ctx, q, orgID, userID, time.Now().UTC())
	if err != nil {
		return nil, domain.NewDependencyError("failed to reactivate member", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.NewNotFoundError("member not found")
	}
	return r.GetMember(ctx, orgID, userID)
}

func (r *OrganizationRepository) ListActive(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, owner_id, is_active, created_at, updated_at FROM organizations WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list active organizations", err)
	}
	defer rows.Close()

	var out []domain.Organization
	for rows.Next() {
		var o domain.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, domain.NewDependencyError("failed to scan organization", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var o domain.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, domain.NewDependencyError("failed to scan organization", err)
	}
	return &o, nil
}

func scanOrgMember(row pgx.Row) (*domain.OrgMember, error) {
	var m domain.OrgMember
	err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("member not found")
		}
		return nil, domain.NewDependencyError("failed to scan member", err)
	}
	return &m, nil
}
