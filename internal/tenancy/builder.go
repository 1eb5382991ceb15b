package tenancy

import (
	"context"

	"github.com/google/uuid"

	"fortunaflow/internal/domain"
)

// Builder resolves an authenticated Auth0 subject into a User row and,
// when the caller asks to act within an organization, verifies active
// membership before admitting the org-scoped view (§4.I). It implements
// middleware.DataContextProvider without the middleware package needing
// to import tenancy or the repositories directly.
type Builder struct {
	users domain.UserRepository
	orgs  domain.OrganizationRepository
}

func NewBuilder(users domain.UserRepository, orgs domain.OrganizationRepository) *Builder {
	return &Builder{users: users, orgs: orgs}
}

// BuildDataContext resolves auth0ID to a User and, when requestedOrgID is
// non-empty, verifies the user is an active member of that organization.
// An inactive/missing membership falls back to the personal context
// rather than erroring, mirroring the "current_organization_id if
// member_of_that_org else nil" rule of §3 DataContext — a caller that
// explicitly wants the org view and doesn't have it should see NotFound
// from the next ownership-filtered query, not a 401 here.
func (b *Builder) BuildDataContext(ctx context.Context, auth0ID string, requestedOrgID *string) (domain.DataContext, error) {
	user, err := b.users.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return domain.DataContext{}, err
	}
	if !user.IsActive {
		return domain.DataContext{}, domain.NewAuthError("user is not active")
	}

	orgID := user.CurrentOrganizationID
	if requestedOrgID != nil && *requestedOrgID != "" {
		parsed, err := uuid.Parse(*requestedOrgID)
		if err != nil {
			return domain.DataContext{}, domain.NewSchemaError("invalid organization id")
		}
		orgID = &parsed
	}
	if orgID == nil {
		return domain.DataContext{UserID: user.ID}, nil
	}

	member, err := b.orgs.GetMember(ctx, *orgID, user.ID)
	if err != nil || !member.IsActive {
		return domain.DataContext{UserID: user.ID}, nil
	}
	return domain.DataContext{UserID: user.ID, OrganizationID: *orgID, IsOrgContext: true, Role: member.Role}, nil
}
