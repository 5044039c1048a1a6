package domain

import "strings"

// Role is the closed set of caller roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleInternal   Role = "internal"
	RoleClient     Role = "client"
)

// ParseRole maps stored or submitted role strings, including the legacy
// uppercase values, onto a Role. Unknown values come back lowercased and
// fail Valid.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN":
		return RoleAdmin
	case "MANAGER":
		return RoleManager
	case "TECH", "TECHNICIAN":
		return RoleTechnician
	case "INTERNAL":
		return RoleInternal
	case "CLIENT":
		return RoleClient
	}
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleInternal, RoleClient:
		return true
	}
	return false
}

// IsStaff is true for admins and managers.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager
}

// IsTechnician is true for external and internal technicians.
func (r Role) IsTechnician() bool {
	return r == RoleTechnician || r == RoleInternal
}

// Caller identifies who is making a request. A nil *Caller is anonymous.
type Caller struct {
	UserID string
	Role   Role
}

// Anonymous reports whether no authenticated identity is present.
func (c *Caller) Anonymous() bool {
	return c == nil || c.UserID == ""
}

// HasRole reports whether the caller holds one of roles.
func (c *Caller) HasRole(roles ...Role) bool {
	if c.Anonymous() {
		return false
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
