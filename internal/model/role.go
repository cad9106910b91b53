package model

import "strings"

// Role is the closed set of account roles known to the portal.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

var roles = []Role{RoleStudent, RoleTeacher, RoleParent, RoleAdmin}

func Roles() []Role {
	return append([]Role(nil), roles...)
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleAdmin:
		return true
	default:
		return false
	}
}

func ParseRole(value string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(value)))
	return role, role.Valid()
}
