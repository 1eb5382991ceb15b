package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated principal. Credential storage
// (password_hash) is delegated to the Auth0 boundary (§1 non-goal: token
// minting) — the entity here carries only what the core needs to build a
// DataContext and enforce admin-deletion protection.
type User struct {
	ID                   uuid.UUID  `json:"id"`
	Auth0ID              string     `json:"auth0Id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	Name                 *string    `json:"name"`
	PictureURL           *string    `json:"pictureUrl"`
	IsAdmin              bool       `json:"isAdmin"`
	IsSuperAdmin         bool       `json:"isSuperAdmin"`
	IsActive             bool       `json:"isActive"`
	CurrentOrganizationID *uuid.UUID `json:"currentOrganizationId,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Validate enforces the entity-store floors for User.
func (u *User) Validate() error {
	if _, err := ValidateName(u.Username); err != nil {
		return err
	}
	return nil
}

// UserRepository defines persistence operations for User. Admin rows
// cannot be hard-deleted — enforced at this layer, not just the storage
// trigger the original system relied on.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByAuth0ID(ctx context.Context, auth0ID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	CreateOrGetByAuth0ID(ctx context.Context, auth0ID, email string, name, pictureURL *string) (*User, error)
	SetCurrentOrganization(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListActive enumerates every active user, the owner-scope set the
	// automation scheduler walks once per tick (§4.G).
	ListActive(ctx context.Context) ([]User, error)
}
