package models

// PermissionLevel is an ordered rank gating which moderation operations an
// actor may invoke. Higher values may do everything lower values may.
type PermissionLevel int

const (
	LevelMember PermissionLevel = iota
	LevelAux
	LevelMod
	LevelAdmin
	LevelOwner
)

// String returns the display name for a permission level.
func (l PermissionLevel) String() string {
	switch l {
	case LevelOwner:
		return "owner"
	case LevelAdmin:
		return "admin"
	case LevelMod:
		return "mod"
	case LevelAux:
		return "aux"
	default:
		return "member"
	}
}

// Role is the stored role assigned to a member within a group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMod    Role = "mod"
	RoleAux    Role = "aux"
	RoleMember Role = "member"
)

// Level maps a stored role onto the permission ladder. Unknown or empty
// roles rank as plain members.
func (r Role) Level() PermissionLevel {
	switch r {
	case RoleOwner:
		return LevelOwner
	case RoleAdmin:
		return LevelAdmin
	case RoleMod:
		return LevelMod
	case RoleAux:
		return LevelAux
	default:
		return LevelMember
	}
}

// ParseRole validates a user-supplied role name. The owner role is assigned
// by configuration only, so it is not accepted here.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleMod, RoleAux, RoleMember:
		return Role(s), true
	}
	return "", false
}
