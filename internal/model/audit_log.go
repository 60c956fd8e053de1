package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions
const (
	AuditActionRegister       = "REGISTER"
	AuditActionVerifyEmail    = "VERIFY_EMAIL"
	AuditActionLogin          = "LOGIN"
	AuditActionLoginFailed    = "LOGIN_FAILED"
	AuditActionLogout         = "LOGOUT"
	AuditActionRefresh        = "REFRESH_TOKEN"
	AuditActionForgotPassword = "FORGOT_PASSWORD"
	AuditActionResetPassword  = "RESET_PASSWORD"
	AuditActionOAuthLogin     = "OAUTH_LOGIN"
	AuditActionRoleAssigned   = "ROLE_ASSIGNED"
	AuditActionRoleRemoved    = "ROLE_REMOVED"
	AuditActionRolesReplaced  = "ROLES_REPLACED"
	AuditActionStatusChanged  = "STATUS_CHANGED"
	AuditActionProfileUpdated = "PROFILE_UPDATED"
	AuditActionUserDeleted    = "USER_DELETED"
)

// AuditLog records a security-relevant event. OldValue and NewValue hold
// snapshots of the changed fields where a change occurred.
type AuditLog struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID     `gorm:"column:user_id;type:uuid;index"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid"`
	Action    string         `gorm:"column:action;not null;index"`
	Detail    string         `gorm:"column:detail"`
	OldValue  datatypes.JSON `gorm:"column:old_value"`
	NewValue  datatypes.JSON `gorm:"column:new_value"`
	ClientIP  string         `gorm:"column:client_ip"`
	UserAgent string         `gorm:"column:user_agent"`
	CreatedAt time.Time      `gorm:"column:created_at;index"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
