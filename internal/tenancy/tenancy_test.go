package tenancy

import (
	"testing"

	"github.com/google/uuid"

	"fortunaflow/internal/domain"
)

func TestOwnershipFilter_PersonalContext(t *testing.T) {
	userID := uuid.New()
	dctx := DataContext{UserID: userID}
	sql, args := NewOwnershipFilter(dctx).SQL(0)

	if sql != "user_id = $1 AND organization_id IS NULL" {
		t.Errorf("SQL = %q", sql)
	}
	if len(args) != 1 || args[0] != userID {
		t.Errorf("args = %v, want [%v]", args, userID)
	}
}

func TestOwnershipFilter_OrgContext(t *testing.T) {
	orgID := uuid.New()
	dctx := DataContext{UserID: uuid.New(), OrganizationID: orgID, IsOrgContext: true}
	sql, args := NewOwnershipFilter(dctx).SQL(0)

	if sql != "organization_id = $1" {
		t.Errorf("SQL = %q", sql)
	}
	if len(args) != 1 || args[0] != orgID {
		t.Errorf("args = %v, want [%v]", args, orgID)
	}
}

func TestRequire_InsufficientRoleRejected(t *testing.T) {
	dctx := DataContext{UserID: uuid.New(), OrganizationID: uuid.New(), IsOrgContext: true, Role: RoleViewer}
	if err := Require(dctx, ActionAuditView); err == nil {
		t.Fatal("expected a viewer to be rejected from audit_view")
	}
}

func TestRequire_SufficientRoleAllowed(t *testing.T) {
	dctx := DataContext{UserID: uuid.New(), OrganizationID: uuid.New(), IsOrgContext: true, Role: RoleAdmin}
	if err := Require(dctx, ActionAuditView); err != nil {
		t.Errorf("expected admin to pass audit_view, got %v", err)
	}
}

func TestCanRemoveMember_OwnerCannotSelfRemove(t *testing.T) {
	owner := DataContext{UserID: uuid.New(), OrganizationID: uuid.New(), IsOrgContext: true, Role: RoleOwner}
	if err := CanRemoveMember(owner, owner.UserID, RoleOwner); err == nil {
		t.Fatal("expected owner self-removal to be rejected")
	}
}

func TestCanRemoveMember_MemberCanAlwaysSelfRemove(t *testing.T) {
	member := DataContext{UserID: uuid.New(), OrganizationID: uuid.New(), IsOrgContext: true, Role: RoleMember}
	if err := CanRemoveMember(member, member.UserID, RoleMember); err != nil {
		t.Errorf("expected member self-removal to be allowed, got %v", err)
	}
}

func TestCanRemoveMember_AdminCannotRemoveOwnerOrAdmin(t *testing.T) {
	admin := DataContext{UserID: uuid.New(), OrganizationID: uuid.New(), IsOrgContext: true, Role: RoleAdmin}
	otherAdmin := uuid.New()

	if err := CanRemoveMember(admin, otherAdmin, RoleAdmin); err == nil {
		t.Fatal("expected admin removing another admin to be rejected")
	}
	ownerID := uuid.New()
	if err := CanRemoveMember(admin, ownerID, RoleOwner); err == nil {
		t.Fatal("expected admin removing the owner to be rejected")
	}
}

func TestCanChangeMemberRole_CannotChangeOwnRole(t *testing.T) {
	owner := DataContext{UserID: uuid.New(), OrganizationID: uuid.New(), IsOrgContext: true, Role: RoleOwner}
	if err := CanChangeMemberRole(owner, owner.UserID); err == nil {
		t.Fatal("expected self role-change to be rejected")
	}
}

func TestRoleAtLeast_Hierarchy(t *testing.T) {
	if !domain.RoleOwner.AtLeast(domain.RoleAdmin) {
		t.Error("owner should satisfy admin floor")
	}
	if domain.RoleViewer.AtLeast(domain.RoleMember) {
		t.Error("viewer should not satisfy member floor")
	}
}
