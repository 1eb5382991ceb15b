package domain

// Role is a closed enumeration; owner ⊃ admin ⊃ member ⊃ viewer (§4.I).
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// AtLeast reports whether r meets or exceeds the minimum required role.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}
