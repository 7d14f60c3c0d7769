package models

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	Roles        []UserRole `json:"roles"`
}

// UserRole is a tiered permission level. Higher tiers imply the lower ones.
type UserRole string

const (
	RoleViewer UserRole = "viewer"
	RoleEditor UserRole = "editor"
	RoleAdmin  UserRole = "admin"
)

var roleTier = map[UserRole]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

func IsValidRole(role UserRole) bool {
	_, ok := roleTier[role]
	return ok
}

func IsValidRoleList(roles []UserRole) bool {
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if !IsValidRole(role) {
			return false
		}
	}
	return true
}

// NormalizeRoles removes duplicates while keeping the input order.
func NormalizeRoles(roles []UserRole) []UserRole {
	seen := make(map[UserRole]struct{}, len(roles))
	out := make([]UserRole, 0, len(roles))
	for _, role := range roles {
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

// EnsureDefaultRole guarantees every user carries at least the viewer role.
func EnsureDefaultRole(roles []UserRole) []UserRole {
	for _, role := range roles {
		if role == RoleViewer {
			return roles
		}
	}
	return append(roles, RoleViewer)
}

func HighestRole(roles []UserRole) UserRole {
	highest := RoleViewer
	for _, role := range roles {
		if roleTier[role] > roleTier[highest] {
			highest = role
		}
	}
	return highest
}

// HasAtLeast reports whether any held role meets the required tier.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	for _, role := range roles {
		if roleTier[role] >= roleTier[required] {
			return true
		}
	}
	return false
}
