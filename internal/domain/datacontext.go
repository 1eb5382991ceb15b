package domain

import "github.com/google/uuid"

// DataContext is derived per request from the authenticated principal and
// current organisation; it is never stashed in ambient/thread-local state
// (§9) — every repository method takes it as an explicit argument. It is
// a data-model concept (§3) even though the combinators that operate on
// it live in internal/tenancy.
type DataContext struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID // zero value when personal
	IsOrgContext   bool
	Role           Role // only meaningful when IsOrgContext
}

// HasOrg reports whether OrganizationID is set.
func (c DataContext) HasOrg() bool {
	return c.IsOrgContext && c.OrganizationID != uuid.Nil
}

// Stamp returns the (user_id, organization_id) pair a Create should stamp
// on a new row for this context.
func (c DataContext) Stamp() (userID uuid.UUID, orgID *uuid.UUID) {
	if c.HasOrg() {
		return c.UserID, &c.OrganizationID
	}
	return c.UserID, nil
}
