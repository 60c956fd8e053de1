package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role names. Every user carries at least RoleUser.
const (
	RoleUser     = "USER"
	RoleEmployee = "EMPLOYEE"
	RoleManager  = "MANAGER"
	RoleAdmin    = "ADMIN"
)

// KnownRoles lists all assignable roles
var KnownRoles = []string{RoleUser, RoleEmployee, RoleManager, RoleAdmin}

// rolePrivilege orders roles for display purposes only. Authorization
// always checks membership, never the primary role.
var rolePrivilege = map[string]int{
	RoleUser:     1,
	RoleEmployee: 2,
	RoleManager:  3,
	RoleAdmin:    4,
}

// PrimaryRole returns the highest-privilege role in the set, or an
// empty string for an empty set.
func PrimaryRole(roles []string) string {
	primary := ""
	best := 0
	for _, r := range roles {
		if p := rolePrivilege[r]; p > best {
			best = p
			primary = r
		}
	}
	return primary
}

// IsKnownRole reports whether the role name is one of the defined roles
func IsKnownRole(role string) bool {
	for _, r := range KnownRoles {
		if r == role {
			return true
		}
	}
	return false
}

type UserRole struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_roles_user_role"`
	Role      string    `gorm:"column:role;not null;uniqueIndex:idx_user_roles_user_role"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
