// Package tenancy builds and applies the data context every scoped
// query composes against, and gates organisation actions by role.
package tenancy

import (
	"github.com/google/uuid"

	"fortunaflow/internal/domain"
)

// Role is re-exported from domain so callers outside the tenancy package
// don't need to import both packages for the same enumeration.
type Role = domain.Role

const (
	RoleOwner  = domain.RoleOwner
	RoleAdmin  = domain.RoleAdmin
	RoleMember = domain.RoleMember
	RoleViewer = domain.RoleViewer
)

// DataContext is re-exported from domain — it is a data-model concept
// (§3) shared by repositories (which must not import tenancy) and the
// combinators below.
type DataContext = domain.DataContext

// OwnershipFilter is the predicate every scoped SQL query composes first,
// so a missing ownership filter is a type error rather than a runtime
// bug. SQL renders the WHERE fragment and its bind parameters, starting
// at placeholder number argOffset+1.
type OwnershipFilter struct {
	ctx DataContext
}

// NewOwnershipFilter builds the filter for the given context.
func NewOwnershipFilter(ctx DataContext) OwnershipFilter {
	return OwnershipFilter{ctx: ctx}
}

// SQL renders the ownership predicate for a table that carries user_id
// and organization_id columns, using $N placeholders starting at
// argOffset+1. Returns the fragment and the values to bind.
//
//	personal: user_id = $1 AND organization_id IS NULL
//	org:      organization_id = $1
func (f OwnershipFilter) SQL(argOffset int) (string, []any) {
	if f.ctx.HasOrg() {
		return placeholder("organization_id = $", argOffset+1), []any{f.ctx.OrganizationID}
	}
	return placeholder("user_id = $", argOffset+1) + " AND organization_id IS NULL", []any{f.ctx.UserID}
}

func placeholder(prefix string, n int) string {
	return prefix + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// action is one of the gated org operations in §4.I.
type action string

const (
	ActionOrgUpdate       action = "org_update"
	ActionOrgDelete       action = "org_delete"
	ActionMemberAdd       action = "member_add"
	ActionMemberRemove    action = "member_remove"
	ActionMemberRoleChange action = "member_role_change"
	ActionAuditView       action = "audit_view"
	ActionReportManage    action = "report_manage"
	ActionApprovalResolve action = "approval_resolve"
	ActionApprovalSubmit  action = "approval_submit"
)

// capabilityFloor is the minimum role required for each gated action.
var capabilityFloor = map[action]Role{
	ActionOrgUpdate:        RoleAdmin,
	ActionOrgDelete:        RoleOwner,
	ActionMemberAdd:        RoleAdmin,
	ActionMemberRemove:     RoleAdmin,
	ActionMemberRoleChange: RoleOwner,
	ActionAuditView:        RoleAdmin,
	ActionReportManage:     RoleAdmin,
	ActionApprovalResolve:  RoleAdmin,
	ActionApprovalSubmit:   RoleMember,
}

// Require checks the context's role against the floor for action, with
// the carve-outs from §4.I applied by the caller (member-add/remove self
// and owner-vs-admin rules are target-specific and checked by the caller
// via the helpers below).
func Require(ctx DataContext, a action) error {
	floor, ok := capabilityFloor[a]
	if !ok {
		return domain.NewPermissionError("unknown action")
	}
	if !ctx.IsOrgContext || !ctx.Role.AtLeast(floor) {
		return domain.NewPermissionError("insufficient role for this action")
	}
	return nil
}

// CanRemoveMember lets any org member remove themselves unless they are
// the owner; removing someone else requires the action floor plus the
// admin-cannot-remove-owner-or-other-admins carve-out.
func CanRemoveMember(actor DataContext, targetUserID uuid.UUID, targetRole Role) error {
	if actor.IsOrgContext && actor.UserID == targetUserID {
		if actor.Role == RoleOwner {
			return domain.NewInvariantError("owner cannot self-remove; transfer ownership or delete the organization")
		}
		return nil // users may always self-remove unless owner
	}
	if err := Require(actor, ActionMemberRemove); err != nil {
		return err
	}
	if actor.Role == RoleAdmin && (targetRole == RoleOwner || targetRole == RoleAdmin) {
		return domain.NewPermissionError("admin cannot remove the owner or another admin")
	}
	return nil
}

// CanChangeMemberRole forbids an owner from changing their own role via
// this action (ownership transfer is a distinct operation).
func CanChangeMemberRole(actor DataContext, targetUserID uuid.UUID) error {
	if err := Require(actor, ActionMemberRoleChange); err != nil {
		return err
	}
	if actor.UserID == targetUserID {
		return domain.NewInvariantError("cannot change own role")
	}
	return nil
}
