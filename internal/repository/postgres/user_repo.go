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

// UserRepository is the pgx-backed implementation of domain.UserRepository.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, auth0_id, username, email, name, picture_url, is_admin, is_super_admin, is_active, current_organization_id, created_at, updated_at`

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth0_id = $1`, auth0ID)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.ID = uuid.New()
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	const q = `
		INSERT INTO users (id, auth0_id, username, email, name, picture_url, is_admin, is_super_admin, is_active, current_organization_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, q, user.ID, user.Auth0ID, user.Username, user.Email, user.Name, user.PictureURL,
		user.IsAdmin, user.IsSuperAdmin, user.IsActive, user.CurrentOrganizationID, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create user", err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.UpdatedAt = time.Now().UTC()
	const q = `
		UPDATE users SET username=$2, email=$3, name=$4, picture_url=$5, is_active=$6, updated_at=$7
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, user.ID, user.Username, user.Email, user.Name, user.PictureURL, user.IsActive, user.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update user", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// CreateOrGetByAuth0ID implements the login-provisioning upsert: the first
// request bearing a new Auth0 subject creates the local User row, every
// subsequent one just returns it (no password to reconcile, Auth0 owns
// credentials).
func (r *UserRepository) CreateOrGetByAuth0ID(ctx context.Context, auth0ID, email string, name, pictureURL *string) (*domain.User, error) {
	existing, err := r.GetByAuth0ID(ctx, auth0ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	username := email
	user := &domain.User{
		Auth0ID:    auth0ID,
		Username:   username,
		Email:      email,
		Name:       name,
		PictureURL: pictureURL,
		IsActive:   true,
	}
	return r.Create(ctx, user)
}

func (r *UserRepository) SetCurrentOrganization(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID) error {
	const q = `UPDATE users SET current_organization_id = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, orgID, time.Now().UTC())
	if err != nil {
		return domain.NewDependencyError("failed to set current organization", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete refuses to remove admin users outright — enforced here rather
// than relying only on a storage-level trigger.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin || user.IsSuperAdmin {
		return domain.NewInvariantError("admin users cannot be deleted")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return domain.NewDependencyError("failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListActive(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list active users", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Auth0ID, &u.Username, &u.Email, &u.Name, &u.PictureURL, &u.IsAdmin, &u.IsSuperAdmin,
			&u.IsActive, &u.CurrentOrganizationID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, domain.NewDependencyError("failed to scan user", err)
		}
		out = append(out, u)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Auth0ID, &u.Username, &u.Email, &u.Name, &u.PictureURL, &u.IsAdmin, &u.IsSuperAdmin,
		&u.IsActive, &u.CurrentOrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.NewDependencyError("failed to scan user", err)
	}
	return &u, nil
}
