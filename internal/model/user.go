package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User account statuses
const (
	StatusInactive = "INACTIVE"
	StatusActive   = "ACTIVE"
	StatusBanned   = "BANNED"
)

type User struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	FirstName     string         `gorm:"column:first_name;not null"`
	LastName      string         `gorm:"column:last_name;not null"`
	Email         string         `gorm:"column:email;uniqueIndex:idx_users_email,where:deleted_at IS NULL;not null"`
	Password      string         `gorm:"column:password"`
	Status        string         `gorm:"column:status;default:INACTIVE;not null"`
	EmailVerified bool           `gorm:"column:email_verified;default:false;not null"`
	Provider      string         `gorm:"column:provider"`
	ProviderID    string         `gorm:"column:provider_id"`
	AvatarURL     string         `gorm:"column:avatar_url"`
	LastLogin     *time.Time     `gorm:"column:last_login"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"column:deleted_at;index"`

	// Single-use tokens embedded on the user row
	VerificationToken     *string    `gorm:"column:verification_token;index:idx_users_verification_token,where:verification_token IS NOT NULL"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at"`
	ResetToken            *string    `gorm:"column:reset_token;index:idx_users_reset_token,where:reset_token IS NOT NULL"`
	ResetExpiresAt        *time.Time `gorm:"column:reset_expires_at"`

	Roles []UserRole `gorm:"foreignKey:UserID"`
}

// BeforeCreate assigns the primary key
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FullName combines first and last name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasRole reports whether the given role is assigned
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// RoleNames lists the assigned role names
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	return names
}
