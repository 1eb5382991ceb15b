package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Organization groups users under a shared owner_scope (§3 Organization).
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   uuid.UUID `json:"ownerId"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *Organization) Validate() error {
	clean, err := ValidateName(o.Name)
	if err != nil {
		return err
	}
	o.Name = clean
	return nil
}

// OrgMember is the (org, user) membership relation; unique per pair.
type OrgMember struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organizationId"`
	UserID         uuid.UUID     `json:"userId"`
	Role           Role          `json:"role"`
	IsActive       bool          `json:"isActive"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// OrganizationRepository persists organizations and their memberships.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) (*Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	Update(ctx context.Context, org *Organization) (*Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListActive enumerates every active organization, the other half of
	// the owner-scope set the automation scheduler walks once per tick
	// (§4.G) — individual users cover the non-org scopes.
	ListActive(ctx context.Context) ([]Organization, error)

	AddMember(ctx context.Context, member *OrgMember) (*OrgMember, error)
	GetMember(ctx context.Context, orgID, userID uuid.UUID) (*OrgMember, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]OrgMember, error)
	UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role Role) error
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
	ReactivateMember(ctx context.Context, orgID, userID uuid.UUID) (*OrgMember, error)
}
